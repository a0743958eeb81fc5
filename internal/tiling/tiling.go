// Package tiling turns canonical image volumes into fixed-size patches and
// reconstructs full images from overlapping prediction patches.
//
// Images are expected in the canonical (N, C, [Z,] Y, X) layout produced by
// the axes package. Only spatial axes are tiled: every patch carries the full
// channel extent and belongs to exactly one sample.
//
// Extraction is driven by a Mode value:
//
//	Sequential{}                  deterministic full-coverage tiling
//	Random{PerSample: 50}         uniform random positions, 50 draws per sample
//	Predict{Overlap: []int{2, 2}} overlapping tiles tagged for stitching
package tiling

import (
	"errors"

	"github.com/careamics-ml/careamics/internal/tensor"
)

// ErrInvalidPatchSpec reports a patch or overlap specification that violates
// the image geometry.
var ErrInvalidPatchSpec = errors.New("invalid patch specification")

// Mode selects the patch extraction strategy. It is a closed set: Sequential,
// Random and Predict are the only implementations, each carrying only the
// parameters its strategy needs.
type Mode interface {
	mode()
}

// Sequential tiles the full spatial extent with a step equal to the patch
// size, clamping the final tile to the image border. Every image element is
// covered by at least one patch.
type Sequential struct{}

func (Sequential) mode() {}

// Random draws patch positions uniformly over the valid placement range.
//
// PerSample is the number of draws per sample; when zero or negative it
// defaults to the sequential tile count for the same patch size, so one pass
// produces comparable coverage. Seed fixes the random stream, making the
// iterator restartable.
type Random struct {
	PerSample int
	Seed      int64
}

func (Random) mode() {}

// Predict tiles like Sequential but with the given per-axis overlap between
// neighbouring tiles. Every patch is tagged with its placement coordinates
// and crop margins so a later Stitch reassembles the exact image.
type Predict struct {
	Overlap []int
}

func (Predict) mode() {}

// Margin is the border of a prediction patch discarded during stitching,
// expressed per spatial axis.
type Margin struct {
	Before int
	After  int
}

// Patch is a fixed-size sub-array cropped from an image volume.
//
// Data has shape (C, [Z,] Y, X). Sample is the index of the source sample.
// Coords and Margins are populated in predict mode only: Coords is the
// top-left corner of the patch in the source image's spatial axes, and
// Margins are the per-axis borders Stitch crops before placement.
type Patch struct {
	Data   *tensor.Array
	Sample int

	Coords  []int
	Margins []Margin

	// Mask marks manipulated elements and Target holds the values they had
	// before manipulation; both are attached by transforms such as the N2V
	// pixel manipulation, never by extraction itself.
	Mask   *tensor.Array
	Target *tensor.Array
}

// Interior returns the patch data with its margins cropped, and the
// coordinates at which Stitch places it. For patches without margins the
// data is returned as is.
func (p *Patch) Interior() (*tensor.Array, []int) {
	if len(p.Margins) == 0 {
		return p.Data, p.Coords
	}

	shape := p.Data.Shape() // (C, spatial...)
	offset := make([]int, len(shape))
	size := make([]int, len(shape))
	size[0] = shape[0]

	place := make([]int, len(p.Coords))
	for i, m := range p.Margins {
		offset[i+1] = m.Before
		size[i+1] = shape[i+1] - m.Before - m.After
		place[i] = p.Coords[i] + m.Before
	}
	return p.Data.Region(offset, size), place
}
