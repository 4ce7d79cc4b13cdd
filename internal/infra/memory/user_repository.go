package memory

import (
	"context"
	"sync"

	"quiz-duel-service/internal/domain"
)

// UserRepository keeps users and their match history in memory.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

// Seed adds or replaces users.
func (r *UserRepository) Seed(users ...domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range users {
		u.History = append([]domain.HistoryEntry(nil), u.History...)
		r.users[u.ID] = &u
	}
}

func (r *UserRepository) Get(_ context.Context, userID string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	out := *u
	out.History = append([]domain.HistoryEntry(nil), u.History...)
	return out, nil
}

func (r *UserRepository) ApplyMatchResult(_ context.Context, userID string, newRating int, entry domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, h := range u.History {
		if h.MatchID == entry.MatchID {
			return nil
		}
	}
	u.Rating = newRating
	u.Played++
	if entry.Outcome == domain.OutcomeWin {
		u.Won++
	}
	u.History = append(u.History, entry)
	return nil
}

// Ensure creates u when no user with its id exists. Existing users are left untouched.
func (r *UserRepository) Ensure(_ context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return nil
	}
	u.History = nil
	r.users[u.ID] = &u
	return nil
}
