// Package metrics exposes Prometheus instruments for the quiz server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/born-ml/einsum/internal/quiz"
)

const namespace = "einsum"

// Check outcomes.
const (
	OutcomeCorrect   = "correct"
	OutcomeIncorrect = "incorrect"
	OutcomeInvalid   = "invalid"
)

// Metrics holds the server's instruments. Build one per registry.
type Metrics struct {
	checks        *prometheus.CounterVec
	checkLatency  prometheus.Histogram
	evaluations   *prometheus.CounterVec
	bankReloads   *prometheus.CounterVec
	bankQuestions prometheus.Gauge
	sessions      prometheus.Gauge
}

// New registers the instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: difficulty, outcome (correct, incorrect, invalid)
		checks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quiz",
			Name:      "checks_total",
			Help:      "Answer checks by question difficulty and outcome",
		}, []string{"difficulty", "outcome"}),

		checkLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quiz",
			Name:      "check_duration_seconds",
			Help:      "Time to run all test cases for one answer",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		// Labels: status (ok, error)
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Free-form einsum evaluations by status",
		}, []string{"status"}),

		// Labels: status (ok, error)
		bankReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bank",
			Name:      "reloads_total",
			Help:      "Question bank reloads by status",
		}, []string{"status"}),

		bankQuestions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bank",
			Name:      "questions",
			Help:      "Questions in the active bank",
		}),

		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "quiz",
			Name:      "sessions",
			Help:      "Open quiz sessions",
		}),
	}
}

// Outcome classifies a run result.
func Outcome(res quiz.Result) string {
	switch {
	case res.Passed:
		return OutcomeCorrect
	case res.Failure != nil && res.Failure.Invalid():
		return OutcomeInvalid
	default:
		return OutcomeIncorrect
	}
}

// ObserveCheck records one answer check.
func (m *Metrics) ObserveCheck(level quiz.Difficulty, res quiz.Result, d time.Duration) {
	m.checks.WithLabelValues(level.String(), Outcome(res)).Inc()
	m.checkLatency.Observe(d.Seconds())
}

// ObserveEvaluation records one free-form evaluation.
func (m *Metrics) ObserveEvaluation(err error) {
	m.evaluations.WithLabelValues(status(err)).Inc()
}

// ObserveBankReload records a bank reload attempt and, on success, the new
// bank size.
func (m *Metrics) ObserveBankReload(questions int, err error) {
	m.bankReloads.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.bankQuestions.Set(float64(questions))
	}
}

// SetBankSize records the size of the active bank.
func (m *Metrics) SetBankSize(questions int) {
	m.bankQuestions.Set(float64(questions))
}

// SessionOpened and SessionClosed track the open session count.
func (m *Metrics) SessionOpened() { m.sessions.Inc() }

// SessionClosed decrements the open session count.
func (m *Metrics) SessionClosed() { m.sessions.Dec() }

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
