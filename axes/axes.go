// Copyright 2026 CAREamics Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package axes validates axis descriptors and canonicalizes image volumes.
//
// An axis descriptor is a string over {S, T, C, Z, Y, X} naming the
// dimensions of an image volume in order, for example "TYX" for a time
// series of 2D frames. Canonicalization reshapes a volume into the fixed
// layout (N, C, Y, X) or (N, C, Z, Y, X), merging the sample and time
// axes into N and inserting singleton axes where the descriptor omits one.
package axes

import (
	"github.com/careamics-ml/careamics/internal/axes"
	"github.com/careamics-ml/careamics/internal/tensor"
)

// Errors returned by descriptor validation and canonicalization.
var (
	ErrInvalidAxes  = axes.ErrInvalidAxes
	ErrAxisMismatch = axes.ErrAxisMismatch
)

// Validate checks that the descriptor is well formed: characters drawn
// from STCZYX in that relative order, no duplicates, Y and X present.
func Validate(descriptor string) error {
	return axes.Validate(descriptor)
}

// HasDepth reports whether the descriptor contains a Z axis.
func HasDepth(descriptor string) bool {
	return axes.HasDepth(descriptor)
}

// SpatialRank returns 3 when the descriptor carries a Z axis and 2 otherwise.
func SpatialRank(descriptor string) int {
	return axes.SpatialRank(descriptor)
}

// Canonicalize reshapes arr, whose dimensions are described by descriptor,
// into the canonical (N, C, [Z,] Y, X) layout. The returned array shares
// data with arr.
func Canonicalize(arr *tensor.Array, descriptor string) (*tensor.Array, error) {
	return axes.Canonicalize(arr, descriptor)
}
