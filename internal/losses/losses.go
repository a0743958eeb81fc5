// Package losses provides the elementwise training losses of the
// self-supervised denoising schemes, computed over patch arrays.
package losses

import (
	"errors"
	"fmt"

	"github.com/careamics-ml/careamics/internal/tensor"
)

// Common errors.
var (
	ErrShapeMismatch = errors.New("loss inputs have different shapes")
	ErrEmptyMask     = errors.New("mask selects no elements")
)

// N2V is the Noise2Void loss: the squared error between prediction and
// target averaged over masked elements only.
func N2V(pred, target, mask *tensor.Array) (float32, error) {
	if !pred.Shape().Equal(target.Shape()) || !pred.Shape().Equal(mask.Shape()) {
		return 0, fmt.Errorf("%w: pred %v, target %v, mask %v",
			ErrShapeMismatch, pred.Shape(), target.Shape(), mask.Shape())
	}

	var sum, weight float64
	p, tg, m := pred.Data(), target.Data(), mask.Data()
	for i := range p {
		diff := float64(tg[i] - p[i])
		sum += diff * diff * float64(m[i])
		weight += float64(m[i])
	}
	if weight == 0 {
		return 0, ErrEmptyMask
	}
	return float32(sum / weight), nil
}

// N2N is the Noise2Noise loss: the mean absolute error between a prediction
// and an independently noisy view of the same signal.
func N2N(pred, target *tensor.Array) (float32, error) {
	if !pred.Shape().Equal(target.Shape()) {
		return 0, fmt.Errorf("%w: pred %v, target %v", ErrShapeMismatch, pred.Shape(), target.Shape())
	}

	var sum float64
	p, tg := pred.Data(), target.Data()
	for i := range p {
		diff := float64(tg[i] - p[i])
		if diff < 0 {
			diff = -diff
		}
		sum += diff
	}
	return float32(sum / float64(len(p))), nil
}
