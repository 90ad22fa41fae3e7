package einsum

import (
	"errors"
	"fmt"
)

// Sentinel roots. Use errors.Is to classify: errors.Is(err, einsum.ErrParse).
var (
	ErrParse      = errors.New("einsum: invalid expression")
	ErrEvaluation = errors.New("einsum: cannot evaluate expression")
)

// ParseKind classifies a ParseError.
type ParseKind int

// Parse failure kinds.
const (
	EmptyExpression ParseKind = iota + 1
	MissingArrow
	DuplicateArrow
	EmptyGroup
	InvalidCharacter
	DuplicateOutputLabel
)

var parseKindNames = [...]string{
	EmptyExpression:      "empty_expression",
	MissingArrow:         "missing_arrow",
	DuplicateArrow:       "duplicate_arrow",
	EmptyGroup:           "empty_group",
	InvalidCharacter:     "invalid_character",
	DuplicateOutputLabel: "duplicate_output_label",
}

// String returns the snake_case name used in logs and API responses.
func (k ParseKind) String() string {
	if k >= EmptyExpression && k <= DuplicateOutputLabel {
		return parseKindNames[k]
	}
	return fmt.Sprintf("ParseKind(%d)", int(k))
}

// ParseError describes malformed expression syntax.
type ParseError struct {
	Kind    ParseKind
	Expr    string // Expression as given (after trimming outer whitespace)
	Pos     int    // Byte offset of the offending character, -1 if not positional
	Details string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("einsum: %s at position %d in %q: %s", e.Kind, e.Pos, e.Expr, e.Details)
	}
	return fmt.Sprintf("einsum: %s in %q: %s", e.Kind, e.Expr, e.Details)
}

// Is makes every ParseError match ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// EvalKind classifies an EvaluationError.
type EvalKind int

// Evaluation failure kinds.
const (
	OperandCount EvalKind = iota + 1
	RankMismatch
	DimensionMismatch
	UnboundOutputLabel
	TooLarge
)

var evalKindNames = [...]string{
	OperandCount:       "operand_count",
	RankMismatch:       "rank_mismatch",
	DimensionMismatch:  "dimension_mismatch",
	UnboundOutputLabel: "unbound_output_label",
	TooLarge:           "too_large",
}

// String returns the snake_case name used in logs and API responses.
func (k EvalKind) String() string {
	if k >= OperandCount && k <= TooLarge {
		return evalKindNames[k]
	}
	return fmt.Sprintf("EvalKind(%d)", int(k))
}

// EvaluationError reports an expression that parses but cannot be applied to
// the supplied tensors. It is always raised before any arithmetic.
type EvaluationError struct {
	Kind    EvalKind
	Operand int  // Index of the offending input, -1 if not operand-specific
	Label   byte // Offending label, 0 if none
	Details string
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	switch {
	case e.Label != 0:
		return fmt.Sprintf("einsum: %s: label %q: %s", e.Kind, e.Label, e.Details)
	case e.Operand >= 0:
		return fmt.Sprintf("einsum: %s: operand %d: %s", e.Kind, e.Operand, e.Details)
	default:
		return fmt.Sprintf("einsum: %s: %s", e.Kind, e.Details)
	}
}

// Is makes every EvaluationError match ErrEvaluation.
func (e *EvaluationError) Is(target error) bool {
	return target == ErrEvaluation
}

// IsInvalid reports whether err means "invalid einsum string" to a learner:
// either a ParseError or an EvaluationError.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrParse) || errors.Is(err, ErrEvaluation)
}
