// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package einsum verifies answers to einsum notation exercises.
//
// # Overview
//
// The package parses and evaluates einsum expressions over dense tensors,
// decides whether two tensors are equivalent, and checks a learner's
// expression against a question by recomputing the expected output from the
// question's canonical expression on every test case.
//
// # Basic Usage
//
//	a := tensor.MustNew(tensor.Shape{2, 2}, []float64{1, 2, 3, 4})
//	tr, err := einsum.ParseAndEvaluate("ii->", a) // 5
//
//	res, err := einsum.RunTestCases(q, "jj->")
//	if err != nil {
//	    // q itself is broken
//	}
//	if !res.Passed {
//	    fmt.Println(res.Failure.Reason)
//	}
//
// # Errors
//
// Malformed expressions fail with a *ParseError matching ErrParse. Valid
// expressions that do not fit their operands fail with an *EvaluationError
// matching ErrEvaluation. Both mean "invalid einsum string" to a learner.
package einsum
