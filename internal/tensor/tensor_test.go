package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{3}, 3},
		{Shape{2, 3}, 6},
		{Shape{2, 0, 4}, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.shape.NumElements(), "shape %v", tt.shape)
	}
}

func TestShapeValidate(t *testing.T) {
	assert.NoError(t, Shape{2, 0}.Validate())
	assert.NoError(t, Shape{}.Validate())
	assert.Error(t, Shape{2, -1}.Validate())
	assert.Error(t, Shape{1 << 62, 4}.Validate(), "element count overflows int")
	assert.NoError(t, Shape{1 << 62, 0}.Validate())
}

func TestShapeComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Equal(t, []int{}, Shape{}.ComputeStrides())
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "[2, 3]", Shape{2, 3}.String())
	assert.Equal(t, "[]", Shape{}.String())
}

func TestNew(t *testing.T) {
	x, err := New(Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	assert.Equal(t, 2, x.Rank())
	assert.Equal(t, 6, x.NumElements())
	assert.Equal(t, 6.0, x.At(1, 2))
	assert.Equal(t, 2.0, x.At(0, 1))
	assert.Equal(t, []int{3, 1}, x.Strides())
}

func TestNewCopiesInput(t *testing.T) {
	src := []float64{1, 2}
	x := MustNew(Shape{2}, src)
	src[0] = 99

	assert.Equal(t, 1.0, x.At(0))

	out := x.Data()
	out[1] = 99
	assert.Equal(t, 2.0, x.At(1), "Data must return a copy")

	shape := x.Shape()
	shape[0] = 7
	assert.Equal(t, Shape{2}, x.Shape(), "Shape must return a copy")
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(Shape{2, 2}, []float64{1, 2, 3})
	assert.Error(t, err)

	_, err = New(Shape{-1}, nil)
	assert.Error(t, err)

	_, err = New(Shape{1 << 62, 4}, nil)
	assert.Error(t, err)
}

func TestScalar(t *testing.T) {
	s := Scalar(5)
	assert.True(t, s.IsScalar())
	assert.Equal(t, 1, s.NumElements())

	v, err := s.Item()
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, 5.0, s.At())

	_, err = MustNew(Shape{1}, []float64{5}).Item()
	assert.ErrorIs(t, err, ErrNotScalar)
}

func TestZeros(t *testing.T) {
	z, err := Zeros(Shape{2, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, z.NumElements())
	assert.Equal(t, Shape{2, 0}, z.Shape())
}

func TestAtPanicsOutOfRange(t *testing.T) {
	x := MustNew(Shape{2}, []float64{1, 2})
	assert.Panics(t, func() { x.At(2) })
	assert.Panics(t, func() { x.At(0, 0) })
}

func TestEqual(t *testing.T) {
	a := MustNew(Shape{2}, []float64{1, 2})
	assert.True(t, a.Equal(MustNew(Shape{2}, []float64{1, 2})))
	assert.False(t, a.Equal(MustNew(Shape{1, 2}, []float64{1, 2})))
	assert.False(t, a.Equal(MustNew(Shape{2}, []float64{1, 3})))
}

func TestString(t *testing.T) {
	assert.Equal(t, "[[1, 2], [3, 4.5]]", MustNew(Shape{2, 2}, []float64{1, 2, 3, 4.5}).String())
	assert.Equal(t, "32", Scalar(32).String())
	assert.Equal(t, "[[], []]", MustNew(Shape{2, 0}, nil).String())
}
