package einsum

import (
	"github.com/born-ml/einsum/internal/parallel"
	"github.com/born-ml/einsum/internal/tensor"
)

// minParallelWork is the number of multiply-adds below which an evaluation
// stays on the calling goroutine.
const minParallelWork = 1 << 15

// Default work limits for one evaluation.
const (
	DefaultMaxElements = 1 << 24 // 128 MiB of float64 output
	DefaultMaxTerms    = 1 << 30
)

// Evaluator executes expressions against concrete tensors.
// The zero value evaluates sequentially with the default limits. An Evaluator
// is safe for concurrent use.
type Evaluator struct {
	Parallel parallel.Config

	// MaxElements caps the output size and MaxTerms the total number of
	// multiply-adds. Zero means the default; negative disables the limit.
	MaxElements int
	MaxTerms    int
}

func (ev *Evaluator) limits() limits {
	l := limits{elements: ev.MaxElements, terms: ev.MaxTerms}
	if l.elements == 0 {
		l.elements = DefaultMaxElements
	}
	if l.terms == 0 {
		l.terms = DefaultMaxTerms
	}
	return l
}

// NewEvaluator returns an evaluator that fans large contractions out over all CPUs.
func NewEvaluator() *Evaluator {
	return &Evaluator{Parallel: parallel.DefaultConfig()}
}

var defaultEvaluator = NewEvaluator()

// Evaluate runs expr against inputs using general einsum semantics:
// labels in the output are free indices forming the result axes in output
// order; every other label is summed over. A label repeated inside one input
// indexes all of its axes with the same value (diagonal selection).
//
// All validation happens before any arithmetic, including the work limits;
// failures are *EvaluationError.
//
// Example:
//
//	a := tensor.MustNew(tensor.Shape{2, 2}, []float64{1, 2, 3, 4})
//	tr, _ := einsum.Evaluate(einsum.MustParse("ii->"), a) // 5
func (ev *Evaluator) Evaluate(expr Expression, inputs ...tensor.Tensor) (tensor.Tensor, error) {
	p, err := compile(expr, inputs, ev.limits())
	if err != nil {
		return tensor.Tensor{}, err
	}

	out := make([]float64, p.elements())
	cfg := ev.Parallel
	if mulSat(len(out), max(p.terms(), 1)) < minParallelWork {
		cfg = parallel.Sequential()
	}
	parallel.ForRange(len(out), func(start, end int) {
		p.fill(out, start, end)
	}, cfg)

	return tensor.New(p.outShape, out)
}

// Validate runs every check Evaluate would without computing anything.
func (ev *Evaluator) Validate(expr Expression, inputs ...tensor.Tensor) error {
	_, err := compile(expr, inputs, ev.limits())
	return err
}

// ParseAndEvaluate parses s and evaluates it against inputs.
func (ev *Evaluator) ParseAndEvaluate(s string, inputs ...tensor.Tensor) (tensor.Tensor, error) {
	expr, err := Parse(s)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return ev.Evaluate(expr, inputs...)
}

// Evaluate runs expr with the default evaluator.
func Evaluate(expr Expression, inputs ...tensor.Tensor) (tensor.Tensor, error) {
	return defaultEvaluator.Evaluate(expr, inputs...)
}

// Validate checks expr against inputs with the default evaluator.
func Validate(expr Expression, inputs ...tensor.Tensor) error {
	return defaultEvaluator.Validate(expr, inputs...)
}

// ParseAndEvaluate parses s and evaluates it with the default evaluator.
func ParseAndEvaluate(s string, inputs ...tensor.Tensor) (tensor.Tensor, error) {
	return defaultEvaluator.ParseAndEvaluate(s, inputs...)
}
