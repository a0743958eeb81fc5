// Copyright 2026 CAREamics Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package losses provides the self-supervised denoising loss functions.
package losses

import (
	"github.com/careamics-ml/careamics/internal/losses"
	"github.com/careamics-ml/careamics/internal/tensor"
)

// Errors returned when loss inputs are inconsistent.
var (
	ErrShapeMismatch = losses.ErrShapeMismatch
	ErrEmptyMask     = losses.ErrEmptyMask
)

// N2V is the Noise2Void loss: mean squared error restricted to the
// manipulated pixels selected by mask.
func N2V(pred, target, mask *tensor.Array) (float32, error) {
	return losses.N2V(pred, target, mask)
}

// N2N is the Noise2Noise loss: mean absolute error between a prediction
// and an independently noisy target.
func N2N(pred, target *tensor.Array) (float32, error) {
	return losses.N2N(pred, target)
}
