// Package check decides whether an evaluated tensor matches the expected one.
//
// Shapes must agree exactly before any element is compared; elements then
// agree when |a-b| < tolerance. Rank and shape mismatches are reported
// separately from value mismatches because they point at different
// misconceptions (a wrong output index list versus wrong summation).
package check

import (
	"fmt"
	"math"

	"github.com/born-ml/einsum/internal/tensor"
)

// DefaultTolerance is the absolute element tolerance.
const DefaultTolerance = 1e-6

// Mismatch classifies why two tensors are not equivalent.
type Mismatch int

// Mismatch kinds. None means equivalent.
const (
	None Mismatch = iota
	RankMismatch
	ShapeMismatch
	ValueMismatch
)

var mismatchNames = [...]string{
	None:          "none",
	RankMismatch:  "rank_mismatch",
	ShapeMismatch: "shape_mismatch",
	ValueMismatch: "value_mismatch",
}

// String returns the snake_case name used in logs, metrics and API responses.
func (m Mismatch) String() string {
	if m >= None && m <= ValueMismatch {
		return mismatchNames[m]
	}
	return fmt.Sprintf("Mismatch(%d)", int(m))
}

// Verdict is the outcome of comparing an actual tensor with an expected one.
type Verdict struct {
	Mismatch      Mismatch
	ActualShape   tensor.Shape
	ExpectedShape tensor.Shape

	// Set for ValueMismatch only: first differing element in row-major order.
	Index         int
	ActualValue   float64
	ExpectedValue float64
}

// Equivalent reports whether the tensors matched.
func (v Verdict) Equivalent() bool {
	return v.Mismatch == None
}

// Explain returns the learner-facing explanation of the verdict.
func (v Verdict) Explain() string {
	switch v.Mismatch {
	case None:
		return "Correct!"
	case RankMismatch:
		return fmt.Sprintf("Output tensor has incorrect number of dimensions. Expected %d, got %d.",
			len(v.ExpectedShape), len(v.ActualShape))
	case ShapeMismatch:
		return fmt.Sprintf("Output tensor has incorrect shape. Expected %v, got %v.", v.ExpectedShape, v.ActualShape)
	case ValueMismatch:
		return "Your einsum string produces a tensor with the correct shape, but the values are incorrect. " +
			"Check your understanding of which indices are being summed over."
	default:
		return v.Mismatch.String()
	}
}

// Checker compares tensors with a fixed tolerance.
// The zero value uses DefaultTolerance.
type Checker struct {
	Tolerance float64
}

func (c Checker) tolerance() float64 {
	if c.Tolerance <= 0 {
		return DefaultTolerance
	}
	return c.Tolerance
}

// Compare checks actual against expected. Shapes are compared first; element
// values are only inspected when the shapes agree.
func (c Checker) Compare(actual, expected tensor.Tensor) Verdict {
	v := Verdict{
		ActualShape:   actual.Shape(),
		ExpectedShape: expected.Shape(),
		Index:         -1,
	}

	if len(v.ActualShape) != len(v.ExpectedShape) {
		v.Mismatch = RankMismatch
		return v
	}
	if !v.ActualShape.Equal(v.ExpectedShape) {
		v.Mismatch = ShapeMismatch
		return v
	}

	tol := c.tolerance()
	a, e := actual.RawData(), expected.RawData()
	for i := range a {
		// NaN never compares below the tolerance, so NaN never matches.
		if !(math.Abs(a[i]-e[i]) < tol) {
			v.Mismatch = ValueMismatch
			v.Index = i
			v.ActualValue = a[i]
			v.ExpectedValue = e[i]
			return v
		}
	}
	return v
}

// IsEquivalent reports whether actual matches expected.
func (c Checker) IsEquivalent(actual, expected tensor.Tensor) bool {
	return c.Compare(actual, expected).Equivalent()
}

// Compare uses the default tolerance.
func Compare(actual, expected tensor.Tensor) Verdict {
	return Checker{}.Compare(actual, expected)
}

// IsEquivalent uses the default tolerance.
func IsEquivalent(actual, expected tensor.Tensor) bool {
	return Checker{}.IsEquivalent(actual, expected)
}
