package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/rating"
)

// Settlement triggers.
const (
	TriggerCompleted     = "completed"
	TriggerDeadline      = "deadline"
	TriggerClientTimeout = "client-timeout"
	TriggerSweep         = "sweep"
)

// settle locks the match's session and settles it. Missing sessions mean the match already
// settled, so it is a no-op.
func (s *MatchService) settle(ctx context.Context, matchID, trigger string) error {
	sess, ok := s.sessions.Get(matchID)
	if !ok {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.settleLocked(ctx, sess, trigger)
}

// settleLocked runs the settlement body at most once per session. The caller holds sess.mu.
func (s *MatchService) settleLocked(ctx context.Context, sess *Session, trigger string) error {
	if !sess.beginSettlement() {
		return nil
	}
	sess.stopTimers()
	return s.completeSettlement(ctx, sess, trigger)
}

// completeSettlement finalizes the match once and persists it. The session stays registered,
// rejecting actions, until the finished match is written; a failed load or write is retried
// after settleRetryDelay with the already computed result, so ratings are applied only once.
func (s *MatchService) completeSettlement(ctx context.Context, sess *Session, trigger string) error {
	log := s.log.WithFields(logrus.Fields{"match_id": sess.MatchID(), "trigger": trigger})

	if sess.pending == nil {
		start := time.Now()
		m, err := s.matches.Get(ctx, sess.MatchID())
		if err != nil {
			s.scheduleSettleRetry(sess, trigger)
			return fmt.Errorf("settle: load match: %w", err)
		}
		if m.Status != domain.MatchOngoing {
			s.sessions.Remove(sess.MatchID())
			return nil
		}
		ended := s.finalize(ctx, &m, trigger, s.clock.Now(), log)
		sess.pending = &pendingSettlement{match: m, ended: ended, trigger: trigger, started: start}
	}

	p := sess.pending
	if err := s.matches.Save(ctx, p.match); err != nil {
		s.scheduleSettleRetry(sess, p.trigger)
		return fmt.Errorf("settle: save match: %w", err)
	}
	sess.pending = nil
	s.sessions.Remove(sess.MatchID())

	s.broadcast(ctx, &p.match, p.ended)
	s.metrics.MatchSettled(p.trigger, string(p.match.Result), time.Since(p.started))

	log.WithFields(logrus.Fields{
		"result":    p.match.Result,
		"winner_id": p.match.WinnerID,
	}).Info("match settled")
	return nil
}

func (s *MatchService) scheduleSettleRetry(sess *Session, trigger string) {
	matchID := sess.MatchID()
	sess.setRetry(s.clock.AfterFunc(settleRetryDelay, func() {
		s.onSettleRetry(matchID, trigger)
	}))
}

func (s *MatchService) onSettleRetry(matchID, trigger string) {
	sess, ok := s.sessions.Get(matchID)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()

	if err := s.completeSettlement(ctx, sess, trigger); err != nil {
		s.log.WithError(err).WithField("match_id", matchID).Error("settlement retry failed")
	}
}

// finalize checks each score against the answer list, ranks the players, closes the match and applies rating changes. A player whose
// user record cannot be loaded or written keeps their rating and the match is flagged for
// reconciliation; settlement itself never fails on that account.
func (s *MatchService) finalize(ctx context.Context, m *domain.Match, trigger string, now time.Time, log logrus.FieldLogger) domain.MatchEnded {
	for i := range m.Players {
		p := &m.Players[i]
		if recomputed := domain.ScoreOf(p.Answers); !recomputed.Equal(p.Score) {
			log.WithFields(logrus.Fields{
				"player_id": p.PlayerID,
				"stored":    p.Score.String(),
				"answers":   recomputed.String(),
			}).Warn("settle: stored score disagrees with answers, using answers")
			p.Score = recomputed
		}
	}
	m.Result, m.WinnerID = rank(m.Players)
	m.Status = domain.MatchFinished
	m.EndedAt = &now

	current := make(map[string]int, len(m.Players))
	loaded := make(map[string]bool, len(m.Players))
	for _, p := range m.Players {
		current[p.PlayerID] = p.RatingBefore
		u, err := s.users.Get(ctx, p.PlayerID)
		if err != nil {
			log.WithError(err).WithField("player_id", p.PlayerID).Error("settle: load user failed, rating left unchanged")
			continue
		}
		current[p.PlayerID] = u.Rating
		loaded[p.PlayerID] = true
	}

	ended := domain.MatchEnded{
		MatchID: m.ID,
		Details: domain.MatchDetails{
			Result:         m.Result,
			WinnerID:       m.WinnerID,
			Trigger:        trigger,
			TotalQuestions: m.TotalQuestions,
			StartedAt:      m.StartedAt,
			EndedAt:        now,
		},
	}

	for i := range m.Players {
		p := &m.Players[i]
		opp, _ := m.Opponent(p.PlayerID)
		outcome := outcomeOf(m, p.PlayerID)

		before := current[p.PlayerID]
		next, delta := s.calc.Rate(before, current[opp.PlayerID], actualScore(outcome))

		update := domain.RatingUpdate{PlayerID: p.PlayerID, Before: before, After: before}
		if loaded[p.PlayerID] {
			entry := domain.HistoryEntry{
				MatchID:        m.ID,
				OpponentID:     opp.PlayerID,
				Outcome:        outcome,
				RatingDelta:    delta,
				Score:          p.Score,
				Correct:        p.Correct,
				Wrong:          p.Wrong,
				TotalQuestions: m.TotalQuestions,
				PlayedAt:       now,
			}
			if err := s.users.ApplyMatchResult(ctx, p.PlayerID, next, entry); err != nil {
				log.WithError(err).WithField("player_id", p.PlayerID).Error("settle: apply rating failed")
			} else {
				update.After, update.Delta, update.Applied = next, delta, true
			}
		}
		if !update.Applied {
			m.NeedsReconciliation = true
		}

		p.RatingBefore, p.RatingAfter, p.RatingDelta = update.Before, update.After, update.Delta

		ended.RatingUpdates = append(ended.RatingUpdates, update)
		ended.Results = append(ended.Results, domain.PlayerResult{
			PlayerID:  p.PlayerID,
			Rank:      p.Rank,
			Score:     p.Score.InexactFloat64(),
			Correct:   p.Correct,
			Wrong:     p.Wrong,
			Processed: p.Processed,
			Outcome:   outcome,
		})
	}

	return ended
}

// rank orders players by score and assigns ranks. Equal top scores are a draw with no winner.
func rank(players []domain.PlayerEntry) (domain.MatchResult, string) {
	order := make([]int, len(players))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return players[order[a]].Score.GreaterThan(players[order[b]].Score)
	})

	if len(order) >= 2 && players[order[0]].Score.Equal(players[order[1]].Score) {
		for i := range players {
			players[i].Rank = 1
		}
		return domain.ResultDraw, ""
	}

	for r, i := range order {
		players[i].Rank = r + 1
	}
	return domain.ResultWin, players[order[0]].PlayerID
}

func outcomeOf(m *domain.Match, playerID string) domain.Outcome {
	switch {
	case m.Result == domain.ResultDraw:
		return domain.OutcomeDraw
	case m.WinnerID == playerID:
		return domain.OutcomeWin
	default:
		return domain.OutcomeLoss
	}
}

func actualScore(o domain.Outcome) rating.Score {
	switch o {
	case domain.OutcomeWin:
		return rating.Win
	case domain.OutcomeDraw:
		return rating.Draw
	default:
		return rating.Loss
	}
}
