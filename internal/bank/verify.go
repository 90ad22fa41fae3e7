package bank

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/born-ml/einsum/internal/check"
	"github.com/born-ml/einsum/internal/einsum"
	"github.com/born-ml/einsum/internal/quiz"
)

// Discrepancy is a stored output that disagrees with its canonical expression.
type Discrepancy struct {
	QuestionID string
	CaseIndex  int // 0 is the primary case
	Verdict    check.Verdict
	Err        error // set when the canonical expression failed on the case
}

func (d Discrepancy) String() string {
	if d.Err != nil {
		return fmt.Sprintf("%s case %d: %v", d.QuestionID, d.CaseIndex, d.Err)
	}
	return fmt.Sprintf("%s case %d: %s", d.QuestionID, d.CaseIndex, d.Verdict.Explain())
}

// Verify evaluates every canonical expression on every stored case and
// reports cases whose stored output is not equivalent to the result.
// Questions are checked concurrently; discrepancies come back in bank order.
func Verify(ctx context.Context, b *Bank) ([]Discrepancy, error) {
	return VerifyWith(ctx, b, check.Checker{})
}

// VerifyWith is Verify with an explicit checker.
func VerifyWith(ctx context.Context, b *Bank, c check.Checker) ([]Discrepancy, error) {
	found := make([][]Discrepancy, len(b.questions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, q := range b.questions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found[i] = verifyQuestion(q, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Discrepancy
	for _, d := range found {
		out = append(out, d...)
	}
	return out, nil
}

func verifyQuestion(q *quiz.Question, c check.Checker) []Discrepancy {
	expr, err := einsum.Parse(q.Canonical)
	if err != nil {
		return []Discrepancy{{QuestionID: q.ID, Err: err}}
	}

	var out []Discrepancy
	for i, tc := range append([]quiz.TestCase{q.Primary}, q.Extra...) {
		got, err := einsum.Evaluate(expr, tc.Inputs...)
		if err != nil {
			out = append(out, Discrepancy{QuestionID: q.ID, CaseIndex: i, Err: err})
			continue
		}
		if v := c.Compare(tc.Output, got); !v.Equivalent() {
			out = append(out, Discrepancy{QuestionID: q.ID, CaseIndex: i, Verdict: v})
		}
	}
	return out
}
