package progress

import (
	"errors"
	"math/rand"

	"github.com/born-ml/einsum/internal/quiz"
)

// ErrNoQuestions is returned when a selector is built from an empty pool.
var ErrNoQuestions = errors.New("progress: no questions to select from")

// Selector picks questions for the learner's current level.
// It is not safe for concurrent use.
type Selector struct {
	rng     *rand.Rand
	byLevel map[quiz.Difficulty][]*quiz.Question
	last    *quiz.Question
}

// NewSelector groups questions by difficulty. Randomness comes only from rng,
// so equal seeds replay equal sessions.
func NewSelector(questions []*quiz.Question, rng *rand.Rand) (*Selector, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	s := &Selector{rng: rng, byLevel: make(map[quiz.Difficulty][]*quiz.Question)}
	for _, q := range questions {
		s.byLevel[q.Difficulty] = append(s.byLevel[q.Difficulty], q)
	}
	return s, nil
}

// Next returns a question at level, avoiding an immediate repeat when the
// level has more than one question. If the level is empty the nearest
// populated level is used, preferring the easier one on ties.
func (s *Selector) Next(level quiz.Difficulty) *quiz.Question {
	pool := s.pool(level)

	var q *quiz.Question
	switch len(pool) {
	case 1:
		q = pool[0]
	default:
		for {
			q = pool[s.rng.Intn(len(pool))]
			if q != s.last {
				break
			}
		}
	}
	s.last = q
	return q
}

func (s *Selector) pool(level quiz.Difficulty) []*quiz.Question {
	if p := s.byLevel[level]; len(p) > 0 {
		return p
	}
	for d := quiz.Difficulty(1); d <= quiz.Hard; d++ {
		if p := s.byLevel[level-d]; len(p) > 0 {
			return p
		}
		if p := s.byLevel[level+d]; len(p) > 0 {
			return p
		}
	}
	// Levels outside Easy..Hard: any question will do.
	for _, lvl := range []quiz.Difficulty{quiz.Easy, quiz.Medium, quiz.Hard} {
		if p := s.byLevel[lvl]; len(p) > 0 {
			return p
		}
	}
	for _, p := range s.byLevel {
		return p
	}
	return nil
}

// Shuffle returns a shuffled copy of questions.
func Shuffle(questions []*quiz.Question, rng *rand.Rand) []*quiz.Question {
	out := append([]*quiz.Question(nil), questions...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
