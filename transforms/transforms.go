// Copyright 2026 CAREamics Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package transforms provides the public API for patch transforms.
//
// Transforms run after normalization on each streamed patch. Geometric
// augmentations (Flip, RandomRotate90) act on the spatial axes and keep
// any attached mask in sync; ManipulateN2V implements the Noise2Void
// pixel manipulation that produces the training mask.
package transforms

import (
	"github.com/careamics-ml/careamics/internal/transforms"
)

// Transform maps one patch to another, possibly in place.
type Transform = transforms.Transform

// Compose applies a list of transforms in order.
type Compose = transforms.Compose

// Normalize shifts and scales patch values to zero mean and unit
// standard deviation under the dataset statistics.
type Normalize = transforms.Normalize

// Denormalize is the inverse of Normalize.
type Denormalize = transforms.Denormalize

// Flip mirrors each spatial axis independently with probability 1/2.
type Flip = transforms.Flip

// RandomRotate90 rotates the last two axes by a random multiple of 90
// degrees.
type RandomRotate90 = transforms.RandomRotate90

// ManipulateN2V replaces a random subset of pixels with values drawn from
// their neighbourhood and attaches the corresponding mask to the patch.
type ManipulateN2V = transforms.ManipulateN2V

// NewFlip returns a Flip seeded for a reproducible augmentation stream.
func NewFlip(seed int64) *Flip {
	return transforms.NewFlip(seed)
}

// NewRandomRotate90 returns a RandomRotate90 seeded for a reproducible
// augmentation stream.
func NewRandomRotate90(seed int64) *RandomRotate90 {
	return transforms.NewRandomRotate90(seed)
}

// NewManipulateN2V returns a ManipulateN2V with the default masking
// percentage and neighbourhood span.
func NewManipulateN2V(seed int64) *ManipulateN2V {
	return transforms.NewManipulateN2V(seed)
}
