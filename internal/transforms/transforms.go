// Package transforms provides the patch transform pipeline applied between
// normalization and the consumer: geometric augmentation and the Noise2Void
// pixel manipulation.
//
// Transforms may mutate the patch they receive; extraction produces a fresh
// patch per step, so no aliasing is observable by the consumer. Randomized
// transforms take an explicit seed and are deterministic for a given seed
// and application order.
package transforms

import (
	"github.com/careamics-ml/careamics/internal/tiling"
)

// Transform maps a patch to a transformed patch. Implementations may return
// the input patch mutated in place.
type Transform interface {
	Apply(p *tiling.Patch) (*tiling.Patch, error)
}

// Compose applies transforms in order.
type Compose []Transform

// Apply runs every transform in sequence, stopping at the first error.
func (c Compose) Apply(p *tiling.Patch) (*tiling.Patch, error) {
	var err error
	for _, t := range c {
		p, err = t.Apply(p)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}
