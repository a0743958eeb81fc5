package transforms

import (
	"math/rand/v2"

	"github.com/careamics-ml/careamics/internal/tensor"
	"github.com/careamics-ml/careamics/internal/tiling"
)

// newRNG builds the deterministic random stream for a seeded transform.
func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x72616e64))
}

// flipAxis returns a copy of a with the given axis reversed.
func flipAxis(a *tensor.Array, axis int) *tensor.Array {
	shape := a.Shape()
	out := tensor.New(shape)

	idx := make([]int, len(shape))
	src := make([]int, len(shape))
	for flat := 0; flat < a.NumElements(); flat++ {
		copy(src, idx)
		src[axis] = shape[axis] - 1 - idx[axis]
		out.Set(a.At(src...), idx...)

		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < shape[i] {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

// rot90 rotates the last two axes counter-clockwise by k quarter turns.
func rot90(a *tensor.Array, k int) *tensor.Array {
	k = ((k % 4) + 4) % 4
	out := a
	for i := 0; i < k; i++ {
		out = rotOnce(out)
	}
	return out
}

func rotOnce(a *tensor.Array) *tensor.Array {
	shape := a.Shape()
	yAxis, xAxis := len(shape)-2, len(shape)-1
	ny, nx := shape[yAxis], shape[xAxis]

	outShape := shape.Clone()
	outShape[yAxis], outShape[xAxis] = nx, ny
	out := tensor.New(outShape)

	idx := make([]int, len(shape))
	src := make([]int, len(shape))
	for flat := 0; flat < a.NumElements(); flat++ {
		// Counter-clockwise: out[..., i, j] = in[..., j, nx-1-i].
		copy(src, idx)
		src[yAxis] = idx[xAxis]
		src[xAxis] = nx - 1 - idx[yAxis]
		out.Set(a.At(src...), idx...)

		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < outShape[i] {
				break
			}
			idx[i] = 0
		}
	}
	return out
}

// Flip randomly reverses each spatial axis of the patch with probability
// one half. The mask, when present, is flipped identically.
type Flip struct {
	rng *rand.Rand
}

// NewFlip creates a Flip with a deterministic random stream.
func NewFlip(seed int64) *Flip {
	return &Flip{rng: newRNG(seed)}
}

// Apply flips the patch along a random subset of its spatial axes.
func (f *Flip) Apply(p *tiling.Patch) (*tiling.Patch, error) {
	rank := p.Data.Rank() // (C, spatial...)
	for axis := 1; axis < rank; axis++ {
		if f.rng.IntN(2) == 0 {
			continue
		}
		p.Data = flipAxis(p.Data, axis)
		if p.Mask != nil {
			p.Mask = flipAxis(p.Mask, axis)
		}
		if p.Target != nil {
			p.Target = flipAxis(p.Target, axis)
		}
	}
	return p, nil
}

// RandomRotate90 rotates the patch in the Y/X plane by a random number of
// quarter turns. The mask, when present, is rotated identically.
type RandomRotate90 struct {
	rng *rand.Rand
}

// NewRandomRotate90 creates a RandomRotate90 with a deterministic random
// stream.
func NewRandomRotate90(seed int64) *RandomRotate90 {
	return &RandomRotate90{rng: newRNG(seed)}
}

// Apply rotates the patch by 0-3 quarter turns.
func (r *RandomRotate90) Apply(p *tiling.Patch) (*tiling.Patch, error) {
	k := r.rng.IntN(4)
	if k == 0 {
		return p, nil
	}
	p.Data = rot90(p.Data, k)
	if p.Mask != nil {
		p.Mask = rot90(p.Mask, k)
	}
	if p.Target != nil {
		p.Target = rot90(p.Target, k)
	}
	return p, nil
}
