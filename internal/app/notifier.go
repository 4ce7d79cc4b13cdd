package app

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"quiz-duel-service/internal/domain"
)

// Notifier delivers outbound events to a player, wherever they are connected.
type Notifier interface {
	Send(ctx context.Context, playerID string, e domain.Event) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, string, domain.Event) error { return nil }

// MultiNotifier fans an event out to several notifiers concurrently.
type MultiNotifier []Notifier

func (n MultiNotifier) Send(ctx context.Context, playerID string, e domain.Event) error {
	var eg errgroup.Group
	for _, notifier := range n {
		eg.Go(func() error {
			return notifier.Send(ctx, playerID, e)
		})
	}
	return eg.Wait()
}

// broadcast sends e to every participant of m. Delivery failures are logged and never
// affect match state.
func (s *MatchService) broadcast(ctx context.Context, m *domain.Match, e domain.Event) {
	var eg errgroup.Group
	for _, p := range m.Players {
		eg.Go(func() error {
			s.send(ctx, p.PlayerID, e)
			return nil
		})
	}
	_ = eg.Wait()
}

func (s *MatchService) send(ctx context.Context, playerID string, e domain.Event) {
	if err := s.notifier.Send(ctx, playerID, e); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"player_id": playerID,
			"event":     e.Kind(),
		}).Warn("notify player failed")
	}
}
