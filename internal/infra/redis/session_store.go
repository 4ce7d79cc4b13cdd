package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions (timers, lock) are process-local and kept in an in-memory map.
//   - A liveness key claimed with SETNX marks which instance owns a match, so a second
//     instance can neither register nor sweep a match that is live elsewhere.
//   - The key expires shortly after the match deadline, so a crashed owner's matches
//     become sweepable again.
type SessionStore struct {
	client   *redis.Client
	prefix   string
	owner    string
	grace    time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, prefix, owner string, grace time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		prefix:   prefix,
		owner:    owner,
		grace:    grace,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Register(session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	matchID := session.MatchID()
	if _, ok := s.sessions[matchID]; ok {
		return domain.ErrSessionExists
	}

	ttl := session.Remaining(time.Now()) + s.grace
	if ttl <= 0 {
		ttl = time.Minute
	}
	claimed, err := s.client.SetNX(context.Background(), s.key(matchID), s.owner, ttl).Result()
	if err != nil {
		return domain.New(domain.CodeInternal, domain.WithCause(err))
	}
	if !claimed {
		return domain.ErrSessionExists
	}
	s.sessions[matchID] = session
	return nil
}

func (s *SessionStore) Get(matchID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[matchID]
	return session, ok
}

func (s *SessionStore) Remove(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[matchID]; !ok {
		return
	}
	delete(s.sessions, matchID)
	// best-effort; the key expires on its own
	_ = s.client.Del(context.Background(), s.key(matchID)).Err()
}

func (s *SessionStore) key(matchID string) string {
	return s.prefix + ":session:" + matchID
}
