package tiling

import (
	"errors"
	"fmt"

	"github.com/careamics-ml/careamics/internal/parallel"
	"github.com/careamics-ml/careamics/internal/tensor"
)

// ErrMissingPlacement reports a patch without stitching metadata.
var ErrMissingPlacement = errors.New("patch carries no placement coordinates")

// Stitch reconstructs a full image from prediction patches.
//
// shape is the canonical (N, C, [Z,] Y, X) shape of the output. Each patch's
// margins are cropped and the remaining interior is written at its recorded
// coordinates. For patches produced by predict-mode extraction the interiors
// partition the canvas, so every element is written exactly once and
// Stitch(Extract(img, size, Predict{...})) reproduces img.
//
// The writes of distinct patches are disjoint, so placement runs in
// parallel.
func Stitch(patches []*Patch, shape tensor.Shape) (*tensor.Array, error) {
	if len(shape) != 4 && len(shape) != 5 {
		return nil, fmt.Errorf("stitch: output shape must be canonical (N, C, [Z,] Y, X), got %v", shape)
	}
	spatialRank := len(shape) - 2

	for _, p := range patches {
		if len(p.Coords) != spatialRank || len(p.Margins) != spatialRank {
			return nil, fmt.Errorf("%w: got coords %v, margins %v for a %dD image",
				ErrMissingPlacement, p.Coords, p.Margins, spatialRank)
		}
		if p.Sample < 0 || p.Sample >= shape[0] {
			return nil, fmt.Errorf("stitch: patch sample %d out of range for shape %v", p.Sample, shape)
		}
	}

	canvas := tensor.New(shape)
	cfg := parallel.DefaultConfig()
	cfg.MinChunkSize = 4

	parallel.For(len(patches), func(i int) {
		p := patches[i]
		interior, place := p.Interior()

		offset := make([]int, len(shape))
		offset[0] = p.Sample
		copy(offset[2:], place)
		canvas.SetRegion(offset, interior.Unsqueeze(0))
	}, cfg)

	return canvas, nil
}
