package server

import (
	"github.com/born-ml/einsum/internal/quiz"
	"github.com/born-ml/einsum/internal/tensor"
)

// questionView is what a learner sees before answering: no canonical
// expression and no explanation.
type questionView struct {
	ID          string          `json:"id"`
	Kind        quiz.Kind       `json:"kind"`
	Difficulty  quiz.Difficulty `json:"difficulty"`
	Description string          `json:"description"`
	Code        string          `json:"code,omitempty"`
	Inputs      []tensor.Tensor `json:"inputs"`
	Output      tensor.Tensor   `json:"output"`
	Hint        string          `json:"hint,omitempty"`
}

func newQuestionView(q *quiz.Question) questionView {
	return questionView{
		ID:          q.ID,
		Kind:        q.Kind,
		Difficulty:  q.Difficulty,
		Description: q.Description,
		Code:        q.Code,
		Inputs:      q.Primary.Inputs,
		Output:      q.Primary.Output,
		Hint:        q.Hint,
	}
}

type failureView struct {
	CaseIndex int             `json:"case_index"`
	Invalid   bool            `json:"invalid"`
	Error     string          `json:"error,omitempty"`
	Kind      string          `json:"kind,omitempty"`
	Mismatch  string          `json:"mismatch,omitempty"`
	Inputs    []tensor.Tensor `json:"inputs,omitempty"`
	Expected  *tensor.Tensor  `json:"expected,omitempty"`
	Actual    *tensor.Tensor  `json:"actual,omitempty"`
}

func newFailureView(f *quiz.Failure) *failureView {
	v := &failureView{CaseIndex: f.CaseIndex, Invalid: f.Invalid(), Inputs: f.Inputs}
	if f.Err != nil {
		v.Error = f.Err.Error()
		v.Kind = errorKind(f.Err)
	}
	if f.HasActual {
		expected, actual := f.Expected, f.Actual
		v.Expected = &expected
		v.Actual = &actual
		v.Mismatch = f.Verdict.Mismatch.String()
	}
	return v
}
