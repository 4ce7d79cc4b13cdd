package app

import (
	"time"

	"quiz-duel-service/internal/domain"
)

// applyAction is the pure transition of one player's state machine: it resolves question
// index for playerID either as an answer (option != nil) or as a skip. It performs no I/O;
// the caller persists m and emits events.
func applyAction(m *domain.Match, questions []domain.Question, playerID string, index int, option *int, now time.Time) (*domain.PlayerEntry, domain.Answer, error) {
	player, ok := m.Player(playerID)
	if !ok {
		return nil, domain.Answer{}, domain.ErrNotParticipant
	}
	if player.HasProcessed(index) {
		return nil, domain.Answer{}, domain.ErrAlreadyProcessed
	}
	if index < 0 || index >= len(questions) || index >= m.TotalQuestions {
		return nil, domain.Answer{}, domain.ErrQuestionUnavailable
	}

	var answer domain.Answer
	if option == nil {
		answer = domain.Skipped(index, now)
	} else {
		q := questions[index]
		if *option < 0 || *option >= len(q.Options) {
			return nil, domain.Answer{}, domain.New(domain.CodeInvalidRequest,
				domain.WithMessagef("option %d out of range for question %d", *option, index))
		}
		answer = domain.Answered(index, *option, q.IsCorrect(*option), now)
	}

	player.Record(answer)
	return player, answer, nil
}
