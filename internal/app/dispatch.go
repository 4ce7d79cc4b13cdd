package app

import (
	"context"

	"github.com/sirupsen/logrus"

	"quiz-duel-service/internal/domain"
)

// CommandKind names an inbound player action.
type CommandKind string

const (
	CommandJoin          CommandKind = "join"
	CommandSubmitAnswer  CommandKind = "submitAnswer"
	CommandSkipQuestion  CommandKind = "skipQuestion"
	CommandTimeoutNotice CommandKind = "timeoutNotice"
	CommandLeave         CommandKind = "leave"
)

// Command is an inbound action from an authenticated player.
type Command struct {
	Kind          CommandKind
	MatchID       string
	PlayerID      string
	QuestionIndex int
	Option        int
}

// handlerFunc returns the reply owed to the acting player that was not already delivered
// through the notifier, or nil.
type handlerFunc func(ctx context.Context, cmd Command) (domain.Event, error)

func (s *MatchService) handlers() map[CommandKind]handlerFunc {
	return map[CommandKind]handlerFunc{
		CommandJoin: func(ctx context.Context, cmd Command) (domain.Event, error) {
			return s.Join(ctx, cmd.MatchID, cmd.PlayerID)
		},
		CommandSubmitAnswer: func(ctx context.Context, cmd Command) (domain.Event, error) {
			_, err := s.SubmitAnswer(ctx, SubmitAnswerRequest{
				MatchID:       cmd.MatchID,
				PlayerID:      cmd.PlayerID,
				QuestionIndex: cmd.QuestionIndex,
				Option:        cmd.Option,
			})
			return nil, err
		},
		CommandSkipQuestion: func(ctx context.Context, cmd Command) (domain.Event, error) {
			_, err := s.SkipQuestion(ctx, SkipQuestionRequest{
				MatchID:       cmd.MatchID,
				PlayerID:      cmd.PlayerID,
				QuestionIndex: cmd.QuestionIndex,
			})
			return nil, err
		},
		CommandTimeoutNotice: func(ctx context.Context, cmd Command) (domain.Event, error) {
			return nil, s.TimeoutNotice(ctx, cmd.MatchID, cmd.PlayerID)
		},
		CommandLeave: func(ctx context.Context, cmd Command) (domain.Event, error) {
			s.Leave(ctx, cmd.MatchID, cmd.PlayerID)
			return nil, nil
		},
	}
}

// Handle dispatches cmd to its handler.
func (s *MatchService) Handle(ctx context.Context, cmd Command) (domain.Event, error) {
	h, ok := s.dispatch[cmd.Kind]
	if !ok {
		return nil, domain.New(domain.CodeInvalidRequest, domain.WithMessagef("unsupported command %q", cmd.Kind))
	}

	reply, err := h(ctx, cmd)
	if err != nil {
		code := domain.Convert(err).Code
		s.metrics.ActionRejected(string(cmd.Kind), string(code))
		entry := s.log.WithError(err).WithFields(logrus.Fields{
			"match_id":  cmd.MatchID,
			"player_id": cmd.PlayerID,
			"command":   cmd.Kind,
		})
		if code == domain.CodeInternal {
			entry.Error("command failed")
		} else {
			entry.Debug("command rejected")
		}
		return nil, err
	}

	s.metrics.ActionAccepted(string(cmd.Kind))
	return reply, nil
}
