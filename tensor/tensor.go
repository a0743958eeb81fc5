// Copyright 2026 CAREamics Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense arrays the data
// pipeline operates on.
//
// Arrays are row-major, CPU-resident and hold float32 throughout: image
// volumes are converted to float32 on read and stay that way through
// normalization, patching and stitching.
//
// Example:
//
//	a := tensor.New(tensor.Shape{2, 3})
//	a.Set(1.5, 0, 1)
//	b := a.Clone()
package tensor

import (
	"github.com/careamics-ml/careamics/internal/tensor"
)

// Shape represents the dimensions of an array.
// Example: Shape{2, 3, 4} represents a 3D array with dimensions 2×3×4.
type Shape = tensor.Shape

// Array is a dense row-major float32 array.
type Array = tensor.Array

// New creates a zero-filled array with the given shape.
func New(shape Shape) *Array {
	return tensor.New(shape)
}

// FromSlice creates an array backed by the given data.
// The slice length must equal the number of elements implied by shape.
func FromSlice(data []float32, shape Shape) (*Array, error) {
	return tensor.FromSlice(data, shape)
}
