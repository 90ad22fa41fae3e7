package quiz

import (
	"errors"
	"fmt"

	"github.com/born-ml/einsum/internal/check"
	"github.com/born-ml/einsum/internal/einsum"
	"github.com/born-ml/einsum/internal/tensor"
)

// Sentinel errors for question data problems. These are not learner mistakes.
var (
	ErrUnknownKind     = errors.New("quiz: unknown question kind")
	ErrBrokenQuestion  = errors.New("quiz: canonical expression cannot be evaluated")
	ErrNoRandSource    = errors.New("quiz: generator has no random source")
	ErrInvalidQuestion = errors.New("quiz: invalid question")
)

// Failure is the full diagnostic for the first failing test case.
type Failure struct {
	// CaseIndex is the position of the failing case in run order, or -1 when
	// the learner expression did not parse and no case was attempted.
	CaseIndex int
	Inputs    []tensor.Tensor
	Expected  tensor.Tensor // zero when the learner expression was rejected before evaluation
	Actual    tensor.Tensor
	HasActual bool // false when the learner expression could not be evaluated

	Verdict check.Verdict // meaningful when HasActual
	Err     error         // *einsum.ParseError or *einsum.EvaluationError
	Reason  string        // learner-facing explanation
}

// Invalid reports whether the learner expression was rejected as an invalid
// einsum string rather than evaluated to a wrong answer.
func (f *Failure) Invalid() bool {
	return f.Err != nil
}

// Result is the outcome of running an expression against a question.
type Result struct {
	Passed   bool
	CasesRun int
	Failure  *Failure // nil when Passed
}

// Runner verifies learner expressions against questions.
//
// The zero value is ready to use: default evaluator, default tolerance and no
// generated cases. A Runner with a Generator is not safe for concurrent use
// because the generator owns a *rand.Rand.
type Runner struct {
	Evaluator *einsum.Evaluator
	Checker   check.Checker
	Generator *Generator // extra randomized cases for CodeBased questions
}

// Run checks expr against q.
//
// The learner expression is parsed once; a parse failure returns immediately
// without touching any case. Otherwise cases run in order, and for each one
// the expected output is recomputed from q.Canonical on the same inputs.
// Run stops at the first failing case and reports it in full.
//
// A non-nil error means the question itself is broken (unknown kind or a
// canonical expression that cannot be evaluated).
func (r *Runner) Run(q *Question, expr string) (Result, error) {
	learner, err := einsum.Parse(expr)
	if err != nil {
		return Result{Failure: &Failure{
			CaseIndex: -1,
			Err:       err,
			Reason:    invalidReason(err),
		}}, nil
	}

	canonical, err := einsum.Parse(q.Canonical)
	if err != nil {
		return Result{}, fmt.Errorf("%w: question %q: %w", ErrBrokenQuestion, q.ID, err)
	}

	cases, err := r.cases(q)
	if err != nil {
		return Result{}, err
	}

	res := Result{}
	for i, tc := range cases {
		res.CasesRun++

		// The learner expression is checked against the inputs before
		// anything is computed. The canonical one is only validated then.
		ev := r.evaluator()
		if invalid := ev.Validate(learner, tc.Inputs...); invalid != nil {
			if err := ev.Validate(canonical, tc.Inputs...); err != nil {
				return Result{}, fmt.Errorf("%w: question %q case %d: %w", ErrBrokenQuestion, q.ID, i, err)
			}
			res.Failure = &Failure{CaseIndex: i, Inputs: tc.Inputs, Err: invalid, Reason: invalidReason(invalid)}
			return res, nil
		}

		expected, err := ev.Evaluate(canonical, tc.Inputs...)
		if err != nil {
			return Result{}, fmt.Errorf("%w: question %q case %d: %w", ErrBrokenQuestion, q.ID, i, err)
		}

		f := &Failure{CaseIndex: i, Inputs: tc.Inputs, Expected: expected}
		actual, err := ev.Evaluate(learner, tc.Inputs...)
		if err != nil {
			f.Err = err
			f.Reason = invalidReason(err)
			res.Failure = f
			return res, nil
		}
		f.Actual, f.HasActual = actual, true

		f.Verdict = r.Checker.Compare(actual, expected)
		if !f.Verdict.Equivalent() {
			f.Reason = f.Verdict.Explain()
			res.Failure = f
			return res, nil
		}
	}

	res.Passed = true
	return res, nil
}

// cases is a total match over Kind.
func (r *Runner) cases(q *Question) ([]TestCase, error) {
	switch q.Kind {
	case Standard:
		return []TestCase{q.Primary}, nil
	case CodeBased:
		out := make([]TestCase, 0, 1+len(q.Extra))
		out = append(out, q.Primary)
		out = append(out, q.Extra...)
		if r.Generator != nil {
			gen, err := r.Generator.Cases(q.Canonical)
			if err != nil {
				return nil, fmt.Errorf("%w: question %q: %w", ErrBrokenQuestion, q.ID, err)
			}
			out = append(out, gen...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: question %q has kind %v", ErrUnknownKind, q.ID, q.Kind)
	}
}

var defaultEvaluator = einsum.NewEvaluator()

func (r *Runner) evaluator() *einsum.Evaluator {
	if r.Evaluator != nil {
		return r.Evaluator
	}
	return defaultEvaluator
}

func invalidReason(err error) string {
	return "Invalid einsum string. Please check the format (e.g., 'ij,jk->ik'). " + err.Error()
}

// RunTestCases checks expr against q with a zero-value Runner.
func RunTestCases(q *Question, expr string) (Result, error) {
	var r Runner
	return r.Run(q, expr)
}

// Validate checks the structural invariants of q: a known kind and level, a
// parsable canonical expression that evaluates on every authored case, and a
// Code body for CodeBased questions.
func Validate(q *Question) error {
	if !q.Kind.isValid() {
		return fmt.Errorf("%w: %q: kind %v", ErrInvalidQuestion, q.ID, q.Kind)
	}
	if !q.Difficulty.IsValid() {
		return fmt.Errorf("%w: %q: difficulty %v", ErrInvalidQuestion, q.ID, q.Difficulty)
	}
	if q.Kind == CodeBased && q.Code == "" {
		return fmt.Errorf("%w: %q: code question without code", ErrInvalidQuestion, q.ID)
	}
	canonical, err := einsum.Parse(q.Canonical)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidQuestion, q.ID, err)
	}
	for i, tc := range append([]TestCase{q.Primary}, q.Extra...) {
		if _, err := einsum.Evaluate(canonical, tc.Inputs...); err != nil {
			return fmt.Errorf("%w: %q case %d: %w", ErrInvalidQuestion, q.ID, i, err)
		}
	}
	return nil
}
