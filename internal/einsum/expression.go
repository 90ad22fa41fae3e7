package einsum

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Arrow separates input groups from output labels.
const Arrow = "->"

// Expression is the structured form of an einsum string such as "ik,kj->ij".
//
// Each input group holds one label per axis of the matching operand. Labels
// are single ASCII letters and case-sensitive ('i' and 'I' are different
// axes). A label may repeat inside a group; an empty Output denotes a scalar.
type Expression struct {
	Inputs []string
	Output string
}

// String renders the expression in canonical "a,b->c" form.
func (e Expression) String() string {
	return strings.Join(e.Inputs, ",") + Arrow + e.Output
}

// NumOperands returns the number of input groups.
func (e Expression) NumOperands() int {
	return len(e.Inputs)
}

// Labels returns every distinct input label in first-appearance order.
func (e Expression) Labels() []byte {
	var seen [256]bool
	var out []byte
	for _, g := range e.Inputs {
		for i := 0; i < len(g); i++ {
			if !seen[g[i]] {
				seen[g[i]] = true
				out = append(out, g[i])
			}
		}
	}
	return out
}

// SummedLabels returns the input labels absent from the output, in
// first-appearance order. These are contracted away.
func (e Expression) SummedLabels() []byte {
	var out []byte
	for _, l := range e.Labels() {
		if !strings.ContainsRune(e.Output, rune(l)) {
			out = append(out, l)
		}
	}
	return out
}

// HasRepeatedLabel reports whether any single group repeats a label
// (diagonal selection).
func (e Expression) HasRepeatedLabel() bool {
	for _, g := range e.Inputs {
		var seen [256]bool
		for i := 0; i < len(g); i++ {
			if seen[g[i]] {
				return true
			}
			seen[g[i]] = true
		}
	}
	return false
}

// Parse converts an einsum string into an Expression.
//
// Outer whitespace is ignored. The string must contain exactly one "->"; the
// left side is split on ',' into non-empty groups of letters and the right
// side may be empty or letters without repeats.
func Parse(s string) (Expression, error) {
	expr := strings.TrimSpace(s)
	if expr == "" {
		return Expression{}, &ParseError{Kind: EmptyExpression, Expr: expr, Pos: -1, Details: "please enter an einsum string"}
	}

	switch n := strings.Count(expr, Arrow); {
	case n == 0:
		return Expression{}, &ParseError{
			Kind:    MissingArrow,
			Expr:    expr,
			Pos:     -1,
			Details: "expected the form 'input_indices->output_indices'",
		}
	case n > 1:
		first := strings.Index(expr, Arrow)
		second := first + len(Arrow) + strings.Index(expr[first+len(Arrow):], Arrow)
		return Expression{}, &ParseError{Kind: DuplicateArrow, Expr: expr, Pos: second, Details: "only one '->' is allowed"}
	}

	lhs, rhs, _ := strings.Cut(expr, Arrow)

	groups := strings.Split(lhs, ",")
	pos := 0
	for i, g := range groups {
		if g == "" {
			return Expression{}, &ParseError{
				Kind:    EmptyGroup,
				Expr:    expr,
				Pos:     pos,
				Details: fmt.Sprintf("input %d has no indices", i+1),
			}
		}
		if err := checkLabels(expr, g, pos); err != nil {
			return Expression{}, err
		}
		pos += len(g) + 1
	}

	outPos := len(lhs) + len(Arrow)
	if err := checkLabels(expr, rhs, outPos); err != nil {
		return Expression{}, err
	}
	var seen [256]bool
	for i := 0; i < len(rhs); i++ {
		if seen[rhs[i]] {
			return Expression{}, &ParseError{
				Kind:    DuplicateOutputLabel,
				Expr:    expr,
				Pos:     outPos + i,
				Details: fmt.Sprintf("output index %q appears more than once", rhs[i]),
			}
		}
		seen[rhs[i]] = true
	}

	return Expression{Inputs: groups, Output: rhs}, nil
}

// MustParse is like Parse but panics on error. Intended for static tables.
func MustParse(s string) Expression {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

func checkLabels(expr, part string, offset int) error {
	for i := 0; i < len(part); i++ {
		if !isLabel(part[i]) {
			r, _ := utf8.DecodeRuneInString(part[i:])
			return &ParseError{
				Kind:    InvalidCharacter,
				Expr:    expr,
				Pos:     offset + i,
				Details: fmt.Sprintf("invalid character %q, use only letters (a-zA-Z)", r),
			}
		}
	}
	return nil
}

func isLabel(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
