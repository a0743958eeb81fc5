package transforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careamics-ml/careamics/internal/tensor"
	"github.com/careamics-ml/careamics/internal/tiling"
)

func patchOf(t *testing.T, data []float32, shape tensor.Shape) *tiling.Patch {
	t.Helper()
	arr, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return &tiling.Patch{Data: arr}
}

func TestNormalizeDenormalize(t *testing.T) {
	p := patchOf(t, []float32{0, 2, 4, 6}, tensor.Shape{1, 2, 2})

	out, err := Normalize{Mean: 3, Std: 2}.Apply(p)
	require.NoError(t, err)
	assert.Equal(t, []float32{-1.5, -0.5, 0.5, 1.5}, out.Data.Data())

	out, err = Denormalize{Mean: 3, Std: 2}.Apply(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 2, 4, 6}, out.Data.Data())
}

func TestComposeOrder(t *testing.T) {
	p := patchOf(t, []float32{1}, tensor.Shape{1, 1, 1})

	// Normalize then denormalize with different stats is not the identity;
	// the order must be the declared one.
	c := Compose{
		Normalize{Mean: 1, Std: 2},   // -> 0
		Denormalize{Mean: 5, Std: 3}, // -> 5
	}
	out, err := c.Apply(p)
	require.NoError(t, err)
	assert.Equal(t, float32(5), out.Data.Data()[0])
}

func TestFlipPreservesElements(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	p := patchOf(t, data, tensor.Shape{1, 2, 3})

	f := NewFlip(3)
	sum := func(xs []float32) float32 {
		var s float32
		for _, x := range xs {
			s += x
		}
		return s
	}
	want := sum(data)

	for i := 0; i < 10; i++ {
		out, err := f.Apply(p)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{1, 2, 3}, out.Data.Shape())
		assert.Equal(t, want, sum(out.Data.Data()), "flip must permute, not change, values")
		p = out
	}
}

func TestFlipAxisIsInvolution(t *testing.T) {
	arr, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)

	flipped := flipAxis(arr, 1)
	assert.Equal(t, []float32{3, 2, 1, 6, 5, 4}, flipped.Data())
	assert.True(t, arr.Equal(flipAxis(flipped, 1)))
}

func TestRot90(t *testing.T) {
	// 2x3 block, counter-clockwise quarter turn -> 3x2.
	arr, err := tensor.FromSlice([]float32{
		1, 2, 3,
		4, 5, 6,
	}, tensor.Shape{1, 2, 3})
	require.NoError(t, err)

	out := rot90(arr, 1)
	assert.Equal(t, tensor.Shape{1, 3, 2}, out.Shape())
	assert.Equal(t, []float32{
		3, 6,
		2, 5,
		1, 4,
	}, out.Data())

	// Four quarter turns are the identity.
	assert.True(t, arr.Equal(rot90(arr, 4)))
}

func TestManipulateN2V(t *testing.T) {
	shape := tensor.Shape{1, 16, 16}
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = float32(i)
	}
	original := append([]float32(nil), data...)
	p := patchOf(t, data, shape)

	m := NewManipulateN2V(11)
	m.MaskedPercentage = 5

	out, err := m.Apply(p)
	require.NoError(t, err)
	require.NotNil(t, out.Mask)
	assert.Equal(t, shape, out.Mask.Shape())

	// The target keeps the clean values, including at masked locations.
	require.NotNil(t, out.Target)
	assert.Equal(t, original, out.Target.Data())

	masked := 0
	for i, v := range out.Mask.Data() {
		switch v {
		case 1:
			masked++
		case 0:
			assert.Equal(t, original[i], out.Data.Data()[i],
				"unmasked element %d must be untouched", i)
		default:
			t.Fatalf("mask element %d has value %v", i, v)
		}
	}
	// 5% of 256 elements, with possible collisions between draws.
	assert.Greater(t, masked, 0)
	assert.LessOrEqual(t, masked, 12)

	// Every replacement value comes from inside the patch.
	values := make(map[float32]bool, len(original))
	for _, v := range original {
		values[v] = true
	}
	for _, v := range out.Data.Data() {
		assert.True(t, values[v], "manipulated value %v must come from a neighbour", v)
	}
}

func TestManipulateN2VRejectsEvenROI(t *testing.T) {
	p := patchOf(t, make([]float32, 16), tensor.Shape{1, 4, 4})
	m := NewManipulateN2V(1)
	m.ROISpan = 4

	_, err := m.Apply(p)
	assert.Error(t, err)
}
