package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/born-ml/einsum/internal/einsum"
	"github.com/born-ml/einsum/internal/quiz"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeCorrect, Outcome(quiz.Result{Passed: true}))
	assert.Equal(t, OutcomeIncorrect, Outcome(quiz.Result{Failure: &quiz.Failure{}}))
	assert.Equal(t, OutcomeInvalid, Outcome(quiz.Result{Failure: &quiz.Failure{Err: einsum.ErrParse}}))
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCheck(quiz.Easy, quiz.Result{Passed: true}, time.Millisecond)
	m.ObserveCheck(quiz.Easy, quiz.Result{Passed: true}, time.Millisecond)
	m.ObserveCheck(quiz.Hard, quiz.Result{Failure: &quiz.Failure{}}, time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.checks.WithLabelValues("easy", OutcomeCorrect)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues("hard", OutcomeIncorrect)))

	m.ObserveEvaluation(nil)
	m.ObserveEvaluation(errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("error")))

	m.ObserveBankReload(12, nil)
	m.ObserveBankReload(0, errors.New("bad yaml"))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.bankQuestions), "failed reloads keep the old size")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bankReloads.WithLabelValues("error")))

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessions))

	n, err := testutil.GatherAndCount(reg, "einsum_quiz_check_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
