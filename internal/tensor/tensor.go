// Package tensor provides the immutable n-dimensional array used by the einsum engine.
package tensor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotScalar is returned by Item for tensors with rank > 0.
var ErrNotScalar = errors.New("tensor: not a scalar")

// Tensor is an immutable n-dimensional float64 array in row-major order.
//
// Every operation produces a new Tensor; accessors hand out copies so callers
// cannot mutate a value shared with question data.
//
// Example:
//
//	a, _ := tensor.New(tensor.Shape{2, 2}, []float64{1, 2, 3, 4})
//	a.At(1, 0) // 3
type Tensor struct {
	shape  Shape
	stride []int
	data   []float64
}

// New creates a tensor from flat row-major data.
// The slice is copied into the tensor's memory.
func New(shape Shape, data []float64) (Tensor, error) {
	if err := shape.Validate(); err != nil {
		return Tensor{}, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return Tensor{}, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	buf := make([]float64, len(data))
	copy(buf, data)
	return Tensor{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		data:   buf,
	}, nil
}

// MustNew is like New but panics on error. Intended for literals in tests and
// static tables.
func MustNew(shape Shape, data []float64) Tensor {
	t, err := New(shape, data)
	if err != nil {
		panic(err)
	}
	return t
}

// Scalar creates a rank-0 tensor.
func Scalar(v float64) Tensor {
	return Tensor{shape: Shape{}, stride: []int{}, data: []float64{v}}
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) (Tensor, error) {
	if err := shape.Validate(); err != nil {
		return Tensor{}, fmt.Errorf("invalid shape: %w", err)
	}
	return Tensor{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		data:   make([]float64, shape.NumElements()),
	}, nil
}

// Shape returns a copy of the tensor's shape.
func (t Tensor) Shape() Shape {
	return t.shape.Clone()
}

// Rank returns the number of axes.
func (t Tensor) Rank() int {
	return len(t.shape)
}

// Strides returns a copy of the row-major strides.
func (t Tensor) Strides() []int {
	return append([]int{}, t.stride...)
}

// NumElements returns the total number of elements.
func (t Tensor) NumElements() int {
	return len(t.data)
}

// IsScalar reports whether the tensor has rank 0.
func (t Tensor) IsScalar() bool {
	return len(t.shape) == 0
}

// Data returns a copy of the flat row-major data.
func (t Tensor) Data() []float64 {
	return append([]float64{}, t.data...)
}

// RawData returns the backing slice without copying.
// WARNING: callers must treat the result as read-only.
func (t Tensor) RawData() []float64 {
	return t.data
}

// At returns the element at the given multi-index.
// Panics if the index count does not match the rank or an index is out of range.
func (t Tensor) At(idx ...int) float64 {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: At got %d indices for rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for axis %d of size %d", v, i, t.shape[i]))
		}
		off += v * t.stride[i]
	}
	return t.data[off]
}

// Item returns the value of a scalar tensor.
func (t Tensor) Item() (float64, error) {
	if !t.IsScalar() || len(t.data) != 1 {
		return 0, fmt.Errorf("%w: shape %v", ErrNotScalar, t.shape)
	}
	return t.data[0], nil
}

// Equal reports exact equality of shape and data.
// Use the check package for tolerance-based comparison.
func (t Tensor) Equal(other Tensor) bool {
	if !t.shape.Equal(other.shape) || len(t.data) != len(other.data) {
		return false
	}
	for i := range t.data {
		if t.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// String renders the tensor as nested brackets, e.g. "[[1, 2], [3, 4]]".
func (t Tensor) String() string {
	if len(t.data) == 0 && len(t.shape) == 0 {
		return "<nil>"
	}
	var b strings.Builder
	t.format(&b, 0, 0)
	return b.String()
}

func (t Tensor) format(b *strings.Builder, axis, off int) {
	if axis == len(t.shape) {
		b.WriteString(strconv.FormatFloat(t.data[off], 'g', -1, 64))
		return
	}
	b.WriteByte('[')
	for i := 0; i < t.shape[axis]; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		t.format(b, axis+1, off+i*t.stride[axis])
	}
	b.WriteByte(']')
}
