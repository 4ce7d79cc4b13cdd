package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-duel-service/internal/domain"
)

// MatchRepository keeps match documents in memory. Reads and writes copy the document so
// callers never share mutable state with the store.
type MatchRepository struct {
	mu      sync.RWMutex
	matches map[string]domain.Match
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{matches: make(map[string]domain.Match)}
}

func (r *MatchRepository) Create(_ context.Context, m domain.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[m.ID]; ok {
		return domain.New(domain.CodeInvalidRequest, domain.WithMessagef("match %s already exists", m.ID))
	}
	r.matches[m.ID] = m.Clone()
	return nil
}

func (r *MatchRepository) Get(_ context.Context, matchID string) (domain.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[matchID]
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (r *MatchRepository) Save(_ context.Context, m domain.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[m.ID]; !ok {
		return domain.ErrMatchNotFound
	}
	r.matches[m.ID] = m.Clone()
	return nil
}

func (r *MatchRepository) ListOngoing(_ context.Context) ([]domain.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Match
	for _, m := range r.matches {
		if m.Status == domain.MatchOngoing {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}
