// Copyright 2026 CAREamics Go Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tiling provides the public API for patch extraction and stitching.
//
// Extraction walks a canonical (N, C, [Z,] Y, X) volume and yields patches
// in one of three modes:
//   - Sequential: a full tile grid, last tile per axis clamped to the border
//   - Random: uniformly drawn in-bounds patches, restartable from a seed
//   - Predict: overlapping tiles whose interiors partition the volume, so
//     that Stitch reassembles the exact input
//
// Example:
//
//	it, err := tiling.Extract(img, []int{64, 64}, tiling.Sequential{})
//	if err != nil {
//		return err
//	}
//	for it.Next() {
//		p := it.Patch()
//		// p.Data has shape (C, 64, 64)
//	}
package tiling

import (
	"github.com/careamics-ml/careamics/internal/tensor"
	"github.com/careamics-ml/careamics/internal/tiling"
)

// Errors returned by extraction and stitching.
var (
	ErrInvalidPatchSpec = tiling.ErrInvalidPatchSpec
	ErrMissingPlacement = tiling.ErrMissingPlacement
)

// Mode selects the patch extraction strategy.
type Mode = tiling.Mode

// Sequential extracts a full tile grid covering every sample.
type Sequential = tiling.Sequential

// Random extracts uniformly positioned patches. PerSample overrides the
// number of draws per sample; Seed makes the sequence restartable.
type Random = tiling.Random

// Predict extracts overlapping tiles for inference. Overlap holds the
// per-axis overlap in pixels, 0 <= overlap < patch size.
type Predict = tiling.Predict

// Margin is the number of overlap pixels to crop from one side of a
// predict-mode tile before stitching.
type Margin = tiling.Margin

// Patch is a single extracted patch together with its placement metadata.
type Patch = tiling.Patch

// Iterator yields patches lazily. Use Next/Patch to walk the sequence and
// Reset to restart it from the beginning.
type Iterator = tiling.Iterator

// NumTiles returns the number of tiles needed to cover extent with tiles
// of the given size, the last one clamped to the border.
func NumTiles(extent, size int) int {
	return tiling.NumTiles(extent, size)
}

// Extract validates the patch specification against img and returns an
// iterator over the patches of img in the given mode.
func Extract(img *tensor.Array, patchSize []int, mode Mode) (*Iterator, error) {
	return tiling.Extract(img, patchSize, mode)
}

// Stitch reassembles predict-mode patches into a canvas of the given
// canonical shape. Every patch must carry placement coordinates.
func Stitch(patches []*Patch, shape tensor.Shape) (*tensor.Array, error) {
	return tiling.Stitch(patches, shape)
}
