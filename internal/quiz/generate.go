package quiz

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/einsum/internal/einsum"
	"github.com/born-ml/einsum/internal/tensor"
)

// Generator produces randomized test cases from a canonical expression.
//
// Every label gets a fresh size in [MinDim, MaxDim] (a label repeated inside a
// group therefore yields a square slice) and entries are integers in
// [0, MaxValue]. New sizes catch answers that only coincide with the
// canonical one on the authored shapes, e.g. "ij->ij" on a symmetric matrix.
type Generator struct {
	Rand     *rand.Rand
	Count    int // Cases per question.
	MinDim   int
	MaxDim   int
	MaxValue int
}

// NewGenerator returns a generator with the original quiz's ranges.
// Equal seeds produce equal cases.
func NewGenerator(seed int64, count int) *Generator {
	return &Generator{
		Rand:     rand.New(rand.NewSource(seed)), //nolint:gosec // Deterministic seed for reproducible quizzes
		Count:    count,
		MinDim:   2,
		MaxDim:   5,
		MaxValue: 9,
	}
}

// Cases generates g.Count test cases for canonical. Outputs are evaluated
// from canonical, so they are consistent by construction.
func (g *Generator) Cases(canonical string) ([]TestCase, error) {
	if g.Rand == nil {
		return nil, ErrNoRandSource
	}
	if g.MinDim < 0 || g.MaxDim < g.MinDim {
		return nil, fmt.Errorf("quiz: invalid dimension range [%d, %d]", g.MinDim, g.MaxDim)
	}

	expr, err := einsum.Parse(canonical)
	if err != nil {
		return nil, err
	}

	out := make([]TestCase, 0, g.Count)
	for n := 0; n < g.Count; n++ {
		sizes := make(map[byte]int)
		for _, l := range expr.Labels() {
			sizes[l] = g.MinDim + g.Rand.Intn(g.MaxDim-g.MinDim+1)
		}

		inputs := make([]tensor.Tensor, len(expr.Inputs))
		for k, group := range expr.Inputs {
			shape := make(tensor.Shape, len(group))
			for i := 0; i < len(group); i++ {
				shape[i] = sizes[group[i]]
			}
			data := make([]float64, shape.NumElements())
			for i := range data {
				data[i] = float64(g.Rand.Intn(g.MaxValue + 1))
			}
			inputs[k], err = tensor.New(shape, data)
			if err != nil {
				return nil, err
			}
		}

		output, err := einsum.Evaluate(expr, inputs...)
		if err != nil {
			return nil, err
		}
		out = append(out, TestCase{Inputs: inputs, Output: output})
	}
	return out, nil
}
