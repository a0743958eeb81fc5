package dataset

import (
	"fmt"

	"github.com/careamics-ml/careamics/internal/axes"
	"github.com/careamics-ml/careamics/internal/tensor"
)

// PredictionSet is an in-memory, index-addressable dataset over the sample
// axis of a canonicalized array, applying normalization only. It serves
// prediction over data that is already resident, where streaming and
// augmentation would be overhead.
type PredictionSet struct {
	data  *tensor.Array // canonical (N, C, [Z,] Y, X)
	stats Stats
}

// NewPredictionSet canonicalizes arr according to the declared axis layout.
// Statistics must be supplied: prediction reuses the training-time values.
func NewPredictionSet(arr *tensor.Array, axesLayout string, stats Stats) (*PredictionSet, error) {
	canonical, err := axes.Canonicalize(arr, axesLayout)
	if err != nil {
		return nil, err
	}
	return &PredictionSet{data: canonical, stats: stats}, nil
}

// Len returns the number of samples.
func (s *PredictionSet) Len() int {
	return s.data.Shape()[0]
}

// At returns the normalized sample at index i with a leading sample axis of
// size 1, shape (1, C, [Z,] Y, X). The returned array is a copy.
func (s *PredictionSet) At(i int) (*tensor.Array, error) {
	if i < 0 || i >= s.Len() {
		return nil, fmt.Errorf("sample index %d out of range [0, %d)", i, s.Len())
	}

	shape := s.data.Shape()
	offset := make([]int, len(shape))
	size := append(tensor.Shape{1}, shape[1:]...)
	offset[0] = i

	out := s.data.Region(offset, size)
	mean, std := float32(s.stats.Mean), float32(s.stats.Std)
	data := out.Data()
	for j := range data {
		data[j] = (data[j] - mean) / std
	}
	return out, nil
}
