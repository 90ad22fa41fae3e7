// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package einsum

import (
	"github.com/born-ml/einsum/internal/check"
	"github.com/born-ml/einsum/internal/einsum"
	"github.com/born-ml/einsum/internal/quiz"
	"github.com/born-ml/einsum/internal/tensor"
)

// Expression types and errors.
type (
	Expression      = einsum.Expression
	ParseError      = einsum.ParseError
	ParseKind       = einsum.ParseKind
	EvaluationError = einsum.EvaluationError
	EvalKind        = einsum.EvalKind
	Evaluator       = einsum.Evaluator
)

// Question types.
type (
	Question   = quiz.Question
	TestCase   = quiz.TestCase
	Kind       = quiz.Kind
	Difficulty = quiz.Difficulty
	Runner     = quiz.Runner
	Result     = quiz.Result
	Failure    = quiz.Failure
)

// Comparison types.
type (
	Checker  = check.Checker
	Verdict  = check.Verdict
	Mismatch = check.Mismatch
)

// Question kinds and levels.
const (
	Standard  = quiz.Standard
	CodeBased = quiz.CodeBased

	Easy   = quiz.Easy
	Medium = quiz.Medium
	Hard   = quiz.Hard
)

// Error roots.
var (
	ErrParse          = einsum.ErrParse
	ErrEvaluation     = einsum.ErrEvaluation
	ErrBrokenQuestion = quiz.ErrBrokenQuestion
	ErrUnknownKind    = quiz.ErrUnknownKind
)

// DefaultTolerance is the absolute element tolerance used by IsEquivalent.
const DefaultTolerance = check.DefaultTolerance

// Default work limits of one evaluation.
const (
	DefaultMaxElements = einsum.DefaultMaxElements
	DefaultMaxTerms    = einsum.DefaultMaxTerms
)

// Parse validates s and splits it into input groups and an output group.
func Parse(s string) (Expression, error) {
	return einsum.Parse(s)
}

// Evaluate applies a parsed expression to inputs.
func Evaluate(expr Expression, inputs ...tensor.Tensor) (tensor.Tensor, error) {
	return einsum.Evaluate(expr, inputs...)
}

// Validate checks expr against inputs without computing anything.
func Validate(expr Expression, inputs ...tensor.Tensor) error {
	return einsum.Validate(expr, inputs...)
}

// ParseAndEvaluate parses s and applies it to inputs.
func ParseAndEvaluate(s string, inputs ...tensor.Tensor) (tensor.Tensor, error) {
	return einsum.ParseAndEvaluate(s, inputs...)
}

// IsEquivalent reports whether actual matches expected in shape and, within
// DefaultTolerance, in every element.
func IsEquivalent(actual, expected tensor.Tensor) bool {
	return check.IsEquivalent(actual, expected)
}

// Compare explains how actual differs from expected.
func Compare(actual, expected tensor.Tensor) Verdict {
	return check.Compare(actual, expected)
}

// RunTestCases checks expr against q.
func RunTestCases(q *Question, expr string) (Result, error) {
	return quiz.RunTestCases(q, expr)
}

// IsInvalid reports whether err means the expression is not a valid einsum
// string for its operands.
func IsInvalid(err error) bool {
	return einsum.IsInvalid(err)
}
