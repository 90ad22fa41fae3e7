// Package progress tracks a learner's level and picks the next question.
//
// State is a plain value. Advance is a pure transition: callers own the state
// and decide where it lives (a CLI loop, a server-side session map).
package progress

import (
	"math"

	"github.com/born-ml/einsum/internal/quiz"
)

// Thresholds control level changes. Zero fields fall back to the defaults.
type Thresholds struct {
	Promote int `yaml:"promote" json:"promote"` // consecutive correct answers to move up; zero → 3
	Demote  int `yaml:"demote" json:"demote"`   // consecutive incorrect answers to move down; zero → 2
}

// DefaultThresholds returns promote-after-3, demote-after-2.
func DefaultThresholds() Thresholds {
	return Thresholds{Promote: 3, Demote: 2}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.Promote <= 0 {
		t.Promote = d.Promote
	}
	if t.Demote <= 0 {
		t.Demote = d.Demote
	}
	return t
}

// State is the learner's progress.
type State struct {
	Level                quiz.Difficulty `json:"level"`
	ConsecutiveCorrect   int             `json:"consecutive_correct"`
	ConsecutiveIncorrect int             `json:"consecutive_incorrect"`
	TotalCorrect         int             `json:"total_correct"`
	TotalAnswered        int             `json:"total_answered"`
}

// New returns the starting state at Easy.
func New() State {
	return State{Level: quiz.Easy}
}

// Reset returns a fresh state. Used when the learner restarts.
func (s State) Reset() State {
	return New()
}

// Advance applies one verdict and returns the new state.
//
// A correct answer extends the correct streak and clears the incorrect one;
// reaching th.Promote moves up one level (capped at Hard) and restarts the
// streak. Incorrect answers mirror this with th.Demote (floored at Easy).
// An invalid expression is an incorrect answer.
func Advance(s State, correct bool, th Thresholds) State {
	th = th.withDefaults()
	if !s.Level.IsValid() {
		s.Level = quiz.Easy
	}

	s.TotalAnswered++
	if correct {
		s.TotalCorrect++
		s.ConsecutiveCorrect++
		s.ConsecutiveIncorrect = 0
		if s.ConsecutiveCorrect >= th.Promote {
			if s.Level < quiz.Hard {
				s.Level++
			}
			s.ConsecutiveCorrect = 0
		}
		return s
	}

	s.ConsecutiveIncorrect++
	s.ConsecutiveCorrect = 0
	if s.ConsecutiveIncorrect >= th.Demote {
		if s.Level > quiz.Easy {
			s.Level--
		}
		s.ConsecutiveIncorrect = 0
	}
	return s
}

// Summary is the end-of-session score.
type Summary struct {
	Correct  int    `json:"correct"`
	Answered int    `json:"answered"`
	Percent  int    `json:"percent"`
	Message  string `json:"message"`
}

// Summarize scores s against the number of answered questions.
func Summarize(s State) Summary {
	sum := Summary{Correct: s.TotalCorrect, Answered: s.TotalAnswered}
	if s.TotalAnswered > 0 {
		sum.Percent = int(math.Round(float64(s.TotalCorrect) / float64(s.TotalAnswered) * 100))
	}
	switch {
	case sum.Percent >= 90:
		sum.Message = "Excellent! You've mastered einsum notation!"
	case sum.Percent >= 70:
		sum.Message = "Great job! You have a solid understanding of einsum notation."
	case sum.Percent >= 50:
		sum.Message = "Good effort! Keep practicing to improve your einsum skills."
	default:
		sum.Message = "Keep learning! Einsum notation takes practice to master."
	}
	return sum
}
