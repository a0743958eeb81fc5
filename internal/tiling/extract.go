package tiling

import (
	"fmt"
	"math/rand/v2"

	"github.com/careamics-ml/careamics/internal/tensor"
)

// NumTiles returns the number of tiles needed to cover extent with tiles of
// the given size: ceil(extent / size).
func NumTiles(extent, size int) int {
	return (extent + size - 1) / size
}

// validateSpec checks a patch specification against a canonical image shape
// and returns the spatial extents. All violations wrap ErrInvalidPatchSpec.
func validateSpec(img *tensor.Array, patchSize []int) ([]int, error) {
	rank := img.Rank()
	if rank != 4 && rank != 5 {
		return nil, fmt.Errorf("%w: image must be canonical (N, C, [Z,] Y, X), got shape %v",
			ErrInvalidPatchSpec, img.Shape())
	}

	spatial := []int(img.Shape()[2:])
	if len(patchSize) != len(spatial) {
		return nil, fmt.Errorf("%w: patch size %v has %d entries, image has %d spatial axes",
			ErrInvalidPatchSpec, patchSize, len(patchSize), len(spatial))
	}

	for i, p := range patchSize {
		if p < 1 {
			return nil, fmt.Errorf("%w: patch size %v must be positive", ErrInvalidPatchSpec, patchSize)
		}
		if p > spatial[i] {
			return nil, fmt.Errorf("%w: patch size %v exceeds image extent %v",
				ErrInvalidPatchSpec, patchSize, spatial)
		}
	}
	// A depth patch of 1 would degenerate 3D extraction into unmarked 2D.
	if len(patchSize) == 3 && patchSize[0] <= 1 {
		return nil, fmt.Errorf("%w: depth patch size must be > 1, got %d",
			ErrInvalidPatchSpec, patchSize[0])
	}
	return spatial, nil
}

// validateOverlap checks an overlap specification against a patch size.
func validateOverlap(patchSize, overlap []int) error {
	if len(overlap) != len(patchSize) {
		return fmt.Errorf("%w: overlap %v has %d entries, patch size %v has %d",
			ErrInvalidPatchSpec, overlap, len(overlap), patchSize, len(patchSize))
	}
	for i, o := range overlap {
		if o < 0 || o >= patchSize[i] {
			return fmt.Errorf("%w: overlap %v must satisfy 0 <= overlap < patch size %v",
				ErrInvalidPatchSpec, overlap, patchSize)
		}
	}
	return nil
}

// sequentialPositions returns the clamped tile origins along one axis.
// Tiles step by the tile size; the last tile is shifted back so it stays
// inside [0, extent).
func sequentialPositions(extent, size int) []int {
	n := NumTiles(extent, size)
	pos := make([]int, n)
	for t := 0; t < n; t++ {
		pos[t] = t * size
		if pos[t]+size > extent {
			pos[t] = extent - size
		}
	}
	return pos
}

// predictPositions returns tile origins along one axis for overlapped tiling,
// together with the crop margins that make the cropped interiors partition
// [0, extent) exactly. The boundary between two neighbouring tiles is the
// midpoint of their overlap region; outer borders keep no margin.
func predictPositions(extent, size, overlap int) (pos []int, margins []Margin) {
	step := size - overlap
	if extent == size {
		return []int{0}, []Margin{{}}
	}

	n := (extent-size+step-1)/step + 1
	pos = make([]int, n)
	for t := 0; t < n; t++ {
		pos[t] = t * step
		if pos[t]+size > extent {
			pos[t] = extent - size
		}
	}

	// cuts[t] is the first canvas element owned by tile t.
	cuts := make([]int, n+1)
	cuts[n] = extent
	for t := 1; t < n; t++ {
		cuts[t] = (pos[t] + pos[t-1] + size) / 2
	}

	margins = make([]Margin, n)
	for t := 0; t < n; t++ {
		margins[t] = Margin{
			Before: cuts[t] - pos[t],
			After:  pos[t] + size - cuts[t+1],
		}
	}
	return pos, margins
}

// Iterator is a lazy, restartable sequence of patches extracted from a
// single image volume. The zero value is not usable; obtain one from
// Extract. A typical loop:
//
//	it, err := tiling.Extract(img, []int{64, 64}, tiling.Sequential{})
//	if err != nil { ... }
//	for it.Next() {
//		p := it.Patch()
//		...
//	}
//
// Iterators are not safe for concurrent use.
type Iterator struct {
	img  *tensor.Array
	size []int

	// Grid modes: tile origins per spatial axis, plus margins for predict.
	grid    [][]int
	margins [][]Margin

	// Random mode.
	random    bool
	seed      int64
	perSample int
	rng       *rand.Rand

	samples int

	// Iteration state.
	sample int
	tile   []int
	draw   int
	done   bool
	cur    *Patch
}

// Extract validates the patch specification against img and returns a patch
// iterator for the given mode. img must be canonical (N, C, [Z,] Y, X).
// Validation failures are reported before any patch is produced.
func Extract(img *tensor.Array, patchSize []int, mode Mode) (*Iterator, error) {
	spatial, err := validateSpec(img, patchSize)
	if err != nil {
		return nil, err
	}

	it := &Iterator{
		img:     img,
		size:    append([]int(nil), patchSize...),
		samples: img.Shape()[0],
	}

	switch m := mode.(type) {
	case Sequential:
		it.grid = make([][]int, len(spatial))
		for i := range spatial {
			it.grid[i] = sequentialPositions(spatial[i], patchSize[i])
		}

	case Predict:
		if err := validateOverlap(patchSize, m.Overlap); err != nil {
			return nil, err
		}
		it.grid = make([][]int, len(spatial))
		it.margins = make([][]Margin, len(spatial))
		for i := range spatial {
			it.grid[i], it.margins[i] = predictPositions(spatial[i], patchSize[i], m.Overlap[i])
		}

	case Random:
		it.random = true
		it.seed = m.Seed
		it.perSample = m.PerSample
		if it.perSample <= 0 {
			it.perSample = 1
			for i := range spatial {
				it.perSample *= NumTiles(spatial[i], patchSize[i])
			}
		}

	default:
		return nil, fmt.Errorf("%w: unknown extraction mode %T", ErrInvalidPatchSpec, mode)
	}

	it.Reset()
	return it, nil
}

// Reset rewinds the iterator to the first patch. For random mode the random
// stream restarts from the seed, so the same sequence is produced again.
func (it *Iterator) Reset() {
	it.sample = 0
	it.draw = 0
	it.done = false
	it.cur = nil
	if it.random {
		it.rng = rand.New(rand.NewPCG(uint64(it.seed), 0x1d872b41))
	} else {
		it.tile = make([]int, len(it.grid))
		for i := range it.tile {
			it.tile[i] = -1 // before the first advance
		}
	}
}

// Next advances to the next patch. It returns false when the sequence is
// exhausted.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if it.random {
		return it.nextRandom()
	}
	return it.nextGrid()
}

// Patch returns the current patch. It is only valid after a call to Next
// that returned true.
func (it *Iterator) Patch() *Patch {
	return it.cur
}

// NumPatches returns the total number of patches the iterator yields in one
// pass over the image.
func (it *Iterator) NumPatches() int {
	if it.random {
		return it.samples * it.perSample
	}
	n := it.samples
	for _, axis := range it.grid {
		n *= len(axis)
	}
	return n
}

// nextGrid advances the (sample, tile...) multi-index in row-major order.
func (it *Iterator) nextGrid() bool {
	if it.tile[0] == -1 {
		// First advance.
		for i := range it.tile {
			it.tile[i] = 0
		}
	} else {
		i := len(it.tile) - 1
		for ; i >= 0; i-- {
			it.tile[i]++
			if it.tile[i] < len(it.grid[i]) {
				break
			}
			it.tile[i] = 0
		}
		if i < 0 {
			it.sample++
			if it.sample >= it.samples {
				it.done = true
				return false
			}
		}
	}

	coords := make([]int, len(it.tile))
	for i, t := range it.tile {
		coords[i] = it.grid[i][t]
	}

	patch := &Patch{
		Data:   it.extract(it.sample, coords),
		Sample: it.sample,
	}
	if it.margins != nil {
		patch.Coords = coords
		patch.Margins = make([]Margin, len(it.tile))
		for i, t := range it.tile {
			patch.Margins[i] = it.margins[i][t]
		}
	}
	it.cur = patch
	return true
}

// nextRandom draws a uniformly random in-bounds position for the current
// sample, advancing to the next sample every perSample draws.
func (it *Iterator) nextRandom() bool {
	if it.draw >= it.perSample {
		it.draw = 0
		it.sample++
	}
	if it.sample >= it.samples {
		it.done = true
		return false
	}
	it.draw++

	spatial := it.img.Shape()[2:]
	coords := make([]int, len(it.size))
	for i := range coords {
		coords[i] = it.rng.IntN(spatial[i] - it.size[i] + 1)
	}

	it.cur = &Patch{
		Data:   it.extract(it.sample, coords),
		Sample: it.sample,
	}
	return true
}

// extract copies the patch block at the given sample and spatial origin,
// carrying the full channel extent.
func (it *Iterator) extract(sample int, coords []int) *tensor.Array {
	shape := it.img.Shape()
	offset := make([]int, len(shape))
	size := make([]int, len(shape))

	offset[0], size[0] = sample, 1
	offset[1], size[1] = 0, shape[1]
	for i := range coords {
		offset[i+2] = coords[i]
		size[i+2] = it.size[i]
	}
	return it.img.Region(offset, size).Squeeze(0)
}
