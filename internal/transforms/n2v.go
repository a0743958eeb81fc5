package transforms

import (
	"fmt"
	"math/rand/v2"

	"github.com/careamics-ml/careamics/internal/tensor"
	"github.com/careamics-ml/careamics/internal/tiling"
)

// Default N2V manipulation parameters.
const (
	// DefaultMaskedPercentage is the fraction of patch elements replaced,
	// in percent.
	DefaultMaskedPercentage = 0.2

	// DefaultROISpan is the side length of the neighbourhood a replacement
	// value is drawn from.
	DefaultROISpan = 11
)

// ManipulateN2V implements the Noise2Void pixel manipulation: a random
// subset of patch elements is replaced by the value of a random neighbour
// within a spatial window, and the manipulated locations are recorded in the
// patch mask. The masked loss then trains the network to predict a pixel
// from its surroundings without seeing its own noisy value.
type ManipulateN2V struct {
	// MaskedPercentage is the share of elements to manipulate, in percent
	// of the patch size. At least one element is always manipulated.
	MaskedPercentage float64

	// ROISpan is the side length of the replacement neighbourhood,
	// clamped at patch borders. Must be odd.
	ROISpan int

	rng *rand.Rand
}

// NewManipulateN2V creates the manipulation with default parameters and a
// deterministic random stream.
func NewManipulateN2V(seed int64) *ManipulateN2V {
	return &ManipulateN2V{
		MaskedPercentage: DefaultMaskedPercentage,
		ROISpan:          DefaultROISpan,
		rng:              newRNG(seed),
	}
}

// Apply manipulates the patch in place, attaching the mask and the clean
// values as the training target.
func (m *ManipulateN2V) Apply(p *tiling.Patch) (*tiling.Patch, error) {
	if m.ROISpan < 3 || m.ROISpan%2 == 0 {
		return nil, fmt.Errorf("n2v manipulation: roi span must be odd and >= 3, got %d", m.ROISpan)
	}

	shape := p.Data.Shape() // (C, spatial...)
	target := p.Data.Clone()
	mask := tensor.New(shape)

	spatial := []int(shape[1:])
	perChannel := 1
	for _, s := range spatial {
		perChannel *= s
	}
	count := int(float64(perChannel) * m.MaskedPercentage / 100)
	if count < 1 {
		count = 1
	}

	half := m.ROISpan / 2
	idx := make([]int, len(shape))
	src := make([]int, len(shape))
	for ch := 0; ch < shape[0]; ch++ {
		idx[0], src[0] = ch, ch
		for i := 0; i < count; i++ {
			for ax, extent := range spatial {
				idx[ax+1] = m.rng.IntN(extent)
			}

			// Draw a neighbour inside the window, clamped to the patch.
			for ax, extent := range spatial {
				lo := max(idx[ax+1]-half, 0)
				hi := min(idx[ax+1]+half, extent-1)
				src[ax+1] = lo + m.rng.IntN(hi-lo+1)
			}

			p.Data.Set(p.Data.At(src...), idx...)
			mask.Set(1, idx...)
		}
	}

	p.Mask = mask
	p.Target = target
	return p, nil
}
