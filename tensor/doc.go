// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides dense float64 tensors for einsum evaluation.
//
// # Overview
//
// A Tensor is an immutable shape plus row-major data. Rank 0 tensors are
// scalars and hold exactly one value. Zero-size dimensions are allowed.
//
// # Basic Usage
//
//	a, err := tensor.New(tensor.Shape{2, 3}, []float64{1, 2, 3, 4, 5, 6})
//	if err != nil {
//	    return err
//	}
//	a.At(1, 2) // 6
//
// # Literals
//
// Tensors marshal to and from JSON and YAML as {shape, data} objects where
// data is nested to match the shape. The shape may be omitted and is then
// inferred from the nesting:
//
//	{"shape": [2, 2], "data": [[1, 2], [3, 4]]}
//	{"data": 5}
package tensor
