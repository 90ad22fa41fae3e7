package einsum

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/einsum/internal/tensor"
)

// axis is one iteration variable of the contraction loop.
//
// strides[k] is the folded stride of the label in operand k: the sum of the
// row-major strides of every axis of that operand carrying the label. A label
// absent from operand k has stride 0; a label repeated inside operand k
// advances all of its axes at once, which selects the diagonal.
type axis struct {
	label   byte
	size    int
	strides []int
}

// plan is a validated, ready-to-run contraction.
type plan struct {
	free     []axis // output labels, in output order
	summed   []axis // contracted labels, in first-appearance order
	outShape tensor.Shape
	operands [][]float64
}

// terms returns the number of products accumulated per output element,
// saturating at math.MaxInt.
func (p *plan) terms() int {
	n := 1
	for _, ax := range p.summed {
		n = mulSat(n, ax.size)
	}
	return n
}

// elements returns the number of output elements, saturating at math.MaxInt.
func (p *plan) elements() int {
	n := 1
	for _, ax := range p.free {
		n = mulSat(n, ax.size)
	}
	return n
}

func mulSat(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}

// limits bounds the work of one evaluation. Non-positive fields disable a
// check; an output whose size overflows int is always rejected.
type limits struct {
	elements int
	terms    int
}

// check rejects plans that would allocate or compute more than allowed.
func (l limits) check(p *plan) error {
	elems := p.elements()
	work := mulSat(elems, max(p.terms(), 1))
	switch {
	case elems == math.MaxInt:
		return &EvaluationError{
			Kind:    TooLarge,
			Operand: -1,
			Details: fmt.Sprintf("output shape %v has too many elements", p.outShape),
		}
	case l.elements > 0 && elems > l.elements:
		return &EvaluationError{
			Kind:    TooLarge,
			Operand: -1,
			Details: fmt.Sprintf("output shape %v exceeds the limit of %d elements", p.outShape, l.elements),
		}
	case l.terms > 0 && work > l.terms:
		return &EvaluationError{
			Kind:    TooLarge,
			Operand: -1,
			Details: fmt.Sprintf("contraction needs more than %d multiply-adds", l.terms),
		}
	}
	return nil
}

// compile checks operand count, ranks, label sizes, output binding and the
// work limits, and folds strides. No arithmetic happens here.
func compile(expr Expression, inputs []tensor.Tensor, lim limits) (*plan, error) {
	if len(inputs) != len(expr.Inputs) {
		return nil, &EvaluationError{
			Kind:    OperandCount,
			Operand: -1,
			Details: fmt.Sprintf("expression has %d input groups but %d tensors were supplied", len(expr.Inputs), len(inputs)),
		}
	}

	var (
		sizes [256]int
		bound [256]bool
		order []byte
	)
	for k, group := range expr.Inputs {
		shape := inputs[k].Shape()
		if len(group) != len(shape) {
			return nil, &EvaluationError{
				Kind:    RankMismatch,
				Operand: k,
				Details: fmt.Sprintf("indices %q name %d axes but the tensor has rank %d (shape %v)", group, len(group), len(shape), shape),
			}
		}
		for i := 0; i < len(group); i++ {
			l := group[i]
			if !bound[l] {
				bound[l] = true
				sizes[l] = shape[i]
				order = append(order, l)
				continue
			}
			if sizes[l] != shape[i] {
				return nil, &EvaluationError{
					Kind:    DimensionMismatch,
					Operand: k,
					Label:   l,
					Details: fmt.Sprintf("size %d in operand %d axis %d conflicts with size %d bound earlier", shape[i], k, i, sizes[l]),
				}
			}
		}
	}

	for i := 0; i < len(expr.Output); i++ {
		if l := expr.Output[i]; !bound[l] {
			return nil, &EvaluationError{
				Kind:    UnboundOutputLabel,
				Operand: -1,
				Label:   l,
				Details: "output index does not appear in any input",
			}
		}
	}

	p := &plan{
		outShape: make(tensor.Shape, len(expr.Output)),
		operands: make([][]float64, len(inputs)),
	}
	folded := make([][256]int, len(inputs))
	for k, group := range expr.Inputs {
		strides := inputs[k].Strides()
		for i := 0; i < len(group); i++ {
			folded[k][group[i]] += strides[i]
		}
		p.operands[k] = inputs[k].RawData()
	}
	newAxis := func(l byte) axis {
		ax := axis{label: l, size: sizes[l], strides: make([]int, len(inputs))}
		for k := range inputs {
			ax.strides[k] = folded[k][l]
		}
		return ax
	}

	for i := 0; i < len(expr.Output); i++ {
		ax := newAxis(expr.Output[i])
		p.free = append(p.free, ax)
		p.outShape[i] = ax.size
	}
	for _, l := range order {
		if !strings.ContainsRune(expr.Output, rune(l)) {
			p.summed = append(p.summed, newAxis(l))
		}
	}
	if err := lim.check(p); err != nil {
		return nil, err
	}
	return p, nil
}

// fill computes output elements [start, end) into out.
func (p *plan) fill(out []float64, start, end int) {
	freeIdx := make([]int, len(p.free))
	base := make([]int, len(p.operands))
	offs := make([]int, len(p.operands))
	sumIdx := make([]int, len(p.summed))

	// Unravel start into the free multi-index (row-major over outShape).
	rem := start
	for d := len(p.free) - 1; d >= 0; d-- {
		freeIdx[d] = rem % p.free[d].size
		rem /= p.free[d].size
	}
	for d, ax := range p.free {
		for k := range base {
			base[k] += freeIdx[d] * ax.strides[k]
		}
	}

	empty := p.terms() == 0
	for o := start; o < end; o++ {
		if empty {
			out[o] = 0
		} else {
			out[o] = p.contract(base, offs, sumIdx)
		}

		// Odometer step over free indices, last axis fastest.
		for d := len(p.free) - 1; d >= 0; d-- {
			ax := p.free[d]
			freeIdx[d]++
			if freeIdx[d] < ax.size {
				for k := range base {
					base[k] += ax.strides[k]
				}
				break
			}
			for k := range base {
				base[k] -= (ax.size - 1) * ax.strides[k]
			}
			freeIdx[d] = 0
		}
	}
}

// contract sums the product of operand elements over every combination of
// summation indices, starting from the free-index offsets in base. The
// accumulation order is fixed, so results do not depend on chunking.
func (p *plan) contract(base, offs, idx []int) float64 {
	copy(offs, base)
	for i := range idx {
		idx[i] = 0
	}

	total := 0.0
	for {
		prod := 1.0
		for k, data := range p.operands {
			prod *= data[offs[k]]
		}
		total += prod

		d := len(idx) - 1
		for ; d >= 0; d-- {
			ax := p.summed[d]
			idx[d]++
			if idx[d] < ax.size {
				for k := range offs {
					offs[k] += ax.strides[k]
				}
				break
			}
			for k := range offs {
				offs[k] -= (ax.size - 1) * ax.strides[k]
			}
			idx[d] = 0
		}
		if d < 0 {
			return total
		}
	}
}
