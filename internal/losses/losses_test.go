package losses

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careamics-ml/careamics/internal/tensor"
)

func arr(t *testing.T, data []float32, shape tensor.Shape) *tensor.Array {
	t.Helper()
	a, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return a
}

func TestN2V(t *testing.T) {
	shape := tensor.Shape{1, 2, 2}
	pred := arr(t, []float32{1, 2, 3, 4}, shape)
	target := arr(t, []float32{1, 4, 3, 1}, shape)
	mask := arr(t, []float32{0, 1, 0, 1}, shape)

	// Masked errors: (4-2)^2 and (1-4)^2 over 2 masked elements.
	loss, err := N2V(pred, target, mask)
	require.NoError(t, err)
	assert.InDelta(t, (4.0+9.0)/2.0, loss, 1e-6)
}

func TestN2VIgnoresUnmasked(t *testing.T) {
	shape := tensor.Shape{1, 1, 3}
	pred := arr(t, []float32{0, 100, 0}, shape)
	target := arr(t, []float32{1, -100, 0}, shape)
	mask := arr(t, []float32{1, 0, 1}, shape)

	loss, err := N2V(pred, target, mask)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, loss, 1e-6, "the huge unmasked error must not contribute")
}

func TestN2VEmptyMask(t *testing.T) {
	shape := tensor.Shape{1, 1, 2}
	zero := arr(t, []float32{0, 0}, shape)

	_, err := N2V(zero, zero, zero)
	assert.ErrorIs(t, err, ErrEmptyMask)
}

func TestN2VShapeMismatch(t *testing.T) {
	pred := arr(t, []float32{0, 0}, tensor.Shape{1, 1, 2})
	other := arr(t, []float32{0, 0, 0}, tensor.Shape{1, 1, 3})

	_, err := N2V(pred, other, other)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestN2N(t *testing.T) {
	shape := tensor.Shape{1, 2, 2}
	pred := arr(t, []float32{1, 2, 3, 4}, shape)
	target := arr(t, []float32{2, 2, 1, 4}, shape)

	loss, err := N2N(pred, target)
	require.NoError(t, err)
	assert.InDelta(t, (1.0+0.0+2.0+0.0)/4.0, loss, 1e-6)
}

func TestN2NShapeMismatch(t *testing.T) {
	pred := arr(t, []float32{0}, tensor.Shape{1, 1, 1})
	target := arr(t, []float32{0, 0}, tensor.Shape{1, 1, 2})

	_, err := N2N(pred, target)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
