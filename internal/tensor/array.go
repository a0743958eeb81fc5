// Package tensor provides the dense array type the data pipeline is built on.
//
// The pipeline works exclusively in float32 (image volumes are converted on
// read), so Array is a single-dtype, row-major, CPU-resident container rather
// than a device-dispatched tensor.
package tensor

import "fmt"

// Array is a dense row-major float32 n-dimensional array.
type Array struct {
	shape  Shape
	stride []int
	data   []float32
}

// New creates a zero-filled array with the given shape.
// Panics if the shape has non-positive dimensions.
func New(shape Shape) *Array {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor: invalid shape %v: %v", shape, err))
	}
	return &Array{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		data:   make([]float32, shape.NumElements()),
	}
}

// FromSlice creates an array backed by data. The slice is used directly, not
// copied; its length must equal the number of elements described by shape.
func FromSlice(data []float32, shape Shape) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &Array{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		data:   data,
	}, nil
}

// Shape returns the array's shape.
func (a *Array) Shape() Shape {
	return a.shape
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int {
	return len(a.shape)
}

// Strides returns the array's row-major strides.
func (a *Array) Strides() []int {
	return a.stride
}

// NumElements returns the total number of elements.
func (a *Array) NumElements() int {
	return len(a.data)
}

// Data returns the backing slice.
// Mutations through the slice are visible to the array.
func (a *Array) Data() []float32 {
	return a.data
}

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	data := make([]float32, len(a.data))
	copy(data, a.data)
	return &Array{
		shape:  a.shape.Clone(),
		stride: append([]int(nil), a.stride...),
		data:   data,
	}
}

// offsetOf converts a multi-index into a flat offset.
func (a *Array) offsetOf(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match array rank %d", len(idx), len(a.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= a.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of bounds for shape %v", idx, a.shape))
		}
		off += x * a.stride[i]
	}
	return off
}

// At returns the element at the given multi-index.
func (a *Array) At(idx ...int) float32 {
	return a.data[a.offsetOf(idx)]
}

// Set stores v at the given multi-index.
func (a *Array) Set(v float32, idx ...int) {
	a.data[a.offsetOf(idx)] = v
}

// Fill sets every element to v.
func (a *Array) Fill(v float32) {
	for i := range a.data {
		a.data[i] = v
	}
}

// Reshape returns a view of the same data with a new shape.
// The element counts must match.
func (a *Array) Reshape(shape Shape) (*Array, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(a.data) {
		return nil, fmt.Errorf("cannot reshape %v into %v", a.shape, shape)
	}
	return &Array{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		data:   a.data,
	}, nil
}

// Unsqueeze returns a view with a dimension of size 1 inserted at dim.
func (a *Array) Unsqueeze(dim int) *Array {
	if dim < 0 || dim > len(a.shape) {
		panic(fmt.Sprintf("tensor: unsqueeze dim %d out of range for rank %d", dim, len(a.shape)))
	}
	shape := make(Shape, 0, len(a.shape)+1)
	shape = append(shape, a.shape[:dim]...)
	shape = append(shape, 1)
	shape = append(shape, a.shape[dim:]...)
	out, _ := a.Reshape(shape)
	return out
}

// Squeeze returns a view with the size-1 dimension at dim removed.
// Panics if the dimension size is not 1.
func (a *Array) Squeeze(dim int) *Array {
	if dim < 0 || dim >= len(a.shape) {
		panic(fmt.Sprintf("tensor: squeeze dim %d out of range for rank %d", dim, len(a.shape)))
	}
	if a.shape[dim] != 1 {
		panic(fmt.Sprintf("tensor: cannot squeeze dim %d of size %d", dim, a.shape[dim]))
	}
	shape := make(Shape, 0, len(a.shape)-1)
	shape = append(shape, a.shape[:dim]...)
	shape = append(shape, a.shape[dim+1:]...)
	out, _ := a.Reshape(shape)
	return out
}

// Region copies out the sub-block starting at offset with the given size.
// offset and size must have one entry per dimension.
func (a *Array) Region(offset, size []int) *Array {
	if len(offset) != len(a.shape) || len(size) != len(a.shape) {
		panic(fmt.Sprintf("tensor: region rank mismatch (offset %v, size %v, shape %v)",
			offset, size, a.shape))
	}
	for i := range offset {
		if offset[i] < 0 || size[i] <= 0 || offset[i]+size[i] > a.shape[i] {
			panic(fmt.Sprintf("tensor: region offset %v size %v out of bounds for shape %v",
				offset, size, a.shape))
		}
	}

	out := New(Shape(size))
	a.copyRegion(out, offset, size, true)
	return out
}

// SetRegion copies src into the sub-block starting at offset.
// src's shape fixes the region size.
func (a *Array) SetRegion(offset []int, src *Array) {
	size := []int(src.shape)
	if len(offset) != len(a.shape) || len(size) != len(a.shape) {
		panic(fmt.Sprintf("tensor: region rank mismatch (offset %v, src %v, shape %v)",
			offset, src.shape, a.shape))
	}
	for i := range offset {
		if offset[i] < 0 || offset[i]+size[i] > a.shape[i] {
			panic(fmt.Sprintf("tensor: region offset %v size %v out of bounds for shape %v",
				offset, size, a.shape))
		}
	}
	a.copyRegion(src, offset, size, false)
}

// copyRegion moves data between the array and a dense block of the given size
// anchored at offset. When out is true data flows array -> block, otherwise
// block -> array. The innermost dimension is copied as a contiguous run.
func (a *Array) copyRegion(block *Array, offset, size []int, out bool) {
	last := len(size) - 1
	rowLen := size[last]

	// Number of rows across all outer dimensions.
	rows := 1
	for _, s := range size[:last] {
		rows *= s
	}

	idx := make([]int, last)
	for row := 0; row < rows; row++ {
		srcOff := offset[last] * a.stride[last]
		dstOff := 0
		for i := 0; i < last; i++ {
			srcOff += (offset[i] + idx[i]) * a.stride[i]
			dstOff += idx[i] * block.stride[i]
		}
		if out {
			copy(block.data[dstOff:dstOff+rowLen], a.data[srcOff:srcOff+rowLen])
		} else {
			copy(a.data[srcOff:srcOff+rowLen], block.data[dstOff:dstOff+rowLen])
		}

		// Advance the outer multi-index.
		for i := last - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < size[i] {
				break
			}
			idx[i] = 0
		}
	}
}

// Equal reports whether two arrays have the same shape and elements.
func (a *Array) Equal(other *Array) bool {
	if !a.shape.Equal(other.shape) {
		return false
	}
	for i := range a.data {
		if a.data[i] != other.data[i] {
			return false
		}
	}
	return true
}
