package app

import (
	"sync"
	"sync/atomic"
	"time"

	"quiz-duel-service/internal/domain"
)

// Session is the live, in-memory entry of an ongoing match. It owns the match's timers and
// the lock that serializes every state transition and the settlement of the match.
type Session struct {
	matchID   string
	questions []domain.Question
	startedAt time.Time
	duration  time.Duration

	mu sync.Mutex

	timersMu sync.Mutex
	deadline Timer
	ticker   Timer
	retry    Timer
	settling atomic.Bool

	// pending holds a finalized match whose write has not succeeded yet. Guarded by mu.
	pending *pendingSettlement
}

type pendingSettlement struct {
	match   domain.Match
	ended   domain.MatchEnded
	trigger string
	started time.Time
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(matchID string, questions []domain.Question, startedAt time.Time, duration time.Duration) *Session {
	return &Session{
		matchID:   matchID,
		questions: questions,
		startedAt: startedAt,
		duration:  duration,
	}
}

func (s *Session) MatchID() string { return s.matchID }

func (s *Session) StartedAt() time.Time { return s.startedAt }

func (s *Session) Duration() time.Duration { return s.duration }

// Remaining returns the time left before the deadline, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	left := s.duration - now.Sub(s.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the fixed duration has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.startedAt) >= s.duration
}

// Settling reports whether settlement has begun.
func (s *Session) Settling() bool {
	return s.settling.Load()
}

// beginSettlement flips the settling flag. Only the first caller gets true.
func (s *Session) beginSettlement() bool {
	return s.settling.CompareAndSwap(false, true)
}

func (s *Session) startTimers(deadline, ticker Timer) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	s.deadline, s.ticker = deadline, ticker
	if s.settling.Load() {
		s.stopTimersLocked()
	}
}

// stopTimers cancels both timers and reports whether the deadline was still pending.
func (s *Session) stopTimers() bool {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	return s.stopTimersLocked()
}

func (s *Session) setRetry(t Timer) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if s.retry != nil {
		s.retry.Stop()
	}
	s.retry = t
}

func (s *Session) stopTimersLocked() bool {
	pending := false
	if s.deadline != nil {
		pending = s.deadline.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.retry != nil {
		s.retry.Stop()
	}
	return pending
}
