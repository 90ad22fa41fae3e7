// Package einsum parses and evaluates Einstein-summation expressions.
//
// # Syntax
//
// An expression has the form "in1,in2,...->out". Each input group names the
// axes of one operand with single ASCII letters; upper and lower case are
// distinct labels. The output lists the labels that survive, in order. An
// empty output produces a scalar.
//
//	ik,kj->ij   matrix multiplication
//	i,i->       dot product
//	ii->        trace
//	ii->i       diagonal
//	ij->ji      transpose
//
// # Semantics
//
// Every label absent from the output is summed over. A label repeated inside
// one group indexes all of those axes with the same value, so "ii->" sums the
// diagonal and "ii->i" extracts it. Every output label must be bound by an
// input; there is no implicit broadcasting.
//
// # Errors
//
// Malformed syntax yields *ParseError (errors.Is(err, ErrParse)). Expressions
// that cannot be applied to the supplied tensors yield *EvaluationError
// (errors.Is(err, ErrEvaluation)). Both are detected before any arithmetic.
package einsum
