package quiz

import (
	"fmt"

	"github.com/born-ml/einsum/internal/einsum"
)

// FormatExample is shown with every hint.
const FormatExample = `Format example: for matrix multiplication, use "ij,jk->ik".`

// DetailedHint returns the question's hint followed by advice derived from the
// shape of its canonical expression.
func DetailedHint(q *Question) []string {
	lines := []string{q.Hint}

	expr, err := einsum.Parse(q.Canonical)
	if err == nil {
		if expr.NumOperands() > 1 {
			lines = append(lines, "This operation involves multiple tensors. Think about which dimensions should align and which should be summed over.")
		}
		if expr.HasRepeatedLabel() {
			lines = append(lines, "When the same index appears twice in an input, it refers to diagonal elements.")
		}
		switch summed := expr.SummedLabels(); {
		case expr.Output == "":
			lines = append(lines, "When the output has no indices, all dimensions are summed over, producing a scalar.")
		case len(summed) > 0:
			lines = append(lines, fmt.Sprintf("%d index(es) appear in the inputs but not in the output; those are summed over.", len(summed)))
		default:
			lines = append(lines, "Every input index survives in the output, so nothing is summed.")
		}
	}

	return append(lines, FormatExample)
}
