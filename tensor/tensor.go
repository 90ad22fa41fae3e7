// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/einsum/internal/tensor"
)

// Type aliases for public API

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is an immutable dense float64 tensor.
type Tensor = tensor.Tensor

// Errors.
var (
	ErrInvalidLiteral = tensor.ErrInvalidLiteral
	ErrNotScalar      = tensor.ErrNotScalar
)

// New creates a tensor from flat row-major data. The data is copied.
func New(shape Shape, data []float64) (Tensor, error) {
	return tensor.New(shape, data)
}

// MustNew is like New but panics on error.
func MustNew(shape Shape, data []float64) Tensor {
	return tensor.MustNew(shape, data)
}

// Scalar creates a rank-0 tensor.
func Scalar(v float64) Tensor {
	return tensor.Scalar(v)
}

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape) (Tensor, error) {
	return tensor.Zeros(shape)
}

// FromNested builds a tensor from nested []any data. A nil shape is inferred
// from the nesting.
func FromNested(shape Shape, data any) (Tensor, error) {
	return tensor.FromNested(shape, data)
}
