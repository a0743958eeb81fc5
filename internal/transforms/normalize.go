package transforms

import "github.com/careamics-ml/careamics/internal/tiling"

// Normalize shifts and scales patch values to (x - Mean) / Std.
type Normalize struct {
	Mean float64
	Std  float64
}

// Apply normalizes the patch data in place.
func (n Normalize) Apply(p *tiling.Patch) (*tiling.Patch, error) {
	mean, std := float32(n.Mean), float32(n.Std)
	data := p.Data.Data()
	for i := range data {
		data[i] = (data[i] - mean) / std
	}
	return p, nil
}

// Denormalize is the inverse of Normalize: x * Std + Mean. Applied to model
// outputs before stitching so predictions return to the input value range.
type Denormalize struct {
	Mean float64
	Std  float64
}

// Apply denormalizes the patch data in place.
func (d Denormalize) Apply(p *tiling.Patch) (*tiling.Patch, error) {
	mean, std := float32(d.Mean), float32(d.Std)
	data := p.Data.Data()
	for i := range data {
		data[i] = data[i]*std + mean
	}
	return p, nil
}
