package server

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/born-ml/einsum/internal/bank"
	"github.com/born-ml/einsum/internal/progress"
	"github.com/born-ml/einsum/internal/quiz"
)

// session is one learner's progress. The map in Server and lastUsed are
// guarded by Server.mu; the fields below mu by session.mu.
type session struct {
	id       string
	created  time.Time
	lastUsed time.Time

	mu       sync.Mutex
	state    progress.State
	selector *progress.Selector
	bank     *bank.Bank // bank the selector was built from
	seed     int64
}

// newSession registers a session. At the configured cap the least recently
// used session makes room.
func (s *Server) newSession() *session {
	seed := s.nextSeed()

	s.mu.Lock()
	now := s.now()
	sess := &session{
		id:       uuid.NewString(),
		created:  now.UTC(),
		lastUsed: now,
		state:    progress.New(),
		seed:     seed,
	}
	var evicted string
	if limit := s.cfg.Server.MaxSessions; limit > 0 && len(s.sessions) >= limit {
		evicted = s.leastRecentlyUsedLocked()
		delete(s.sessions, evicted)
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	if evicted != "" {
		s.metrics.SessionClosed()
		s.log.Debug("Session evicted", zap.String("session", evicted))
	}
	s.metrics.SessionOpened()
	return sess
}

func (s *Server) leastRecentlyUsedLocked() string {
	var (
		id     string
		oldest time.Time
	)
	for k, sess := range s.sessions {
		if id == "" || sess.lastUsed.Before(oldest) {
			id, oldest = k, sess.lastUsed
		}
	}
	return id
}

// session looks up id and marks it as used.
func (s *Server) session(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		sess.lastUsed = s.now()
	}
	return sess, ok
}

func (s *Server) deleteSession(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		s.metrics.SessionClosed()
	}
	return ok
}

// expireSessions drops sessions idle for longer than the configured TTL and
// returns how many were dropped.
func (s *Server) expireSessions() int {
	ttl := s.cfg.GetSessionTTL()

	s.mu.Lock()
	cutoff := s.now().Add(-ttl)
	n := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	s.mu.Unlock()

	for range n {
		s.metrics.SessionClosed()
	}
	if n > 0 {
		s.log.Debug("Sessions expired", zap.Int("count", n))
	}
	return n
}

// expireLoop runs expireSessions until ctx is cancelled.
func (s *Server) expireLoop(ctx context.Context) {
	interval := min(max(s.cfg.GetSessionTTL()/2, 10*time.Millisecond), time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expireSessions()
		}
	}
}

// record applies one verdict. Callers must not hold sess.mu.
func (sess *session) record(correct bool, th progress.Thresholds) progress.State {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.state = progress.Advance(sess.state, correct, th)
	return sess.state
}

func (sess *session) snapshot() progress.State {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// next picks a question for the current level, rebuilding the selector when
// the bank has been swapped.
func (sess *session) next(b *bank.Bank) (*quiz.Question, progress.State, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.selector == nil || sess.bank != b {
		sel, err := progress.NewSelector(b.Questions(), rand.New(rand.NewSource(sess.seed))) //nolint:gosec // Quiz randomness, not security
		if err != nil {
			return nil, sess.state, err
		}
		sess.selector, sess.bank = sel, b
	}
	return sess.selector.Next(sess.state.Level), sess.state, nil
}
