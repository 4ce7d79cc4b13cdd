package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchOngoing  MatchStatus = "ongoing"
	MatchFinished MatchStatus = "finished"
)

// MatchResult is the outcome of a settled match.
type MatchResult string

const (
	ResultPending MatchResult = "pending"
	ResultWin     MatchResult = "win"
	ResultDraw    MatchResult = "draw"
)

// Outcome is a single player's view of a settled match.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

var (
	// CorrectUnit is added to the score for a correct answer.
	CorrectUnit = decimal.NewFromInt(1)
	// WrongPenalty is subtracted from the score for an incorrect answer.
	WrongPenalty = decimal.RequireFromString("0.25")
)

// Option represents a possible answer for a question.
type Option struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is an immutable snapshot bound to a match. Options are referenced by index,
// so their order must never change once bound.
type Question struct {
	ID          string   `json:"id"`
	Topic       string   `json:"topic,omitempty"`
	Prompt      string   `json:"prompt"`
	Options     []Option `json:"options"`
	Explanation string   `json:"explanation"`
}

// MinOptions is the smallest option list a question may carry.
const MinOptions = 4

// Valid reports whether the question passes the structural check.
func (q Question) Valid() bool {
	return q.Prompt != "" && len(q.Options) >= MinOptions
}

// CorrectOption returns the index of the first correct option, or -1.
func (q Question) CorrectOption() int {
	for i, o := range q.Options {
		if o.Correct {
			return i
		}
	}
	return -1
}

// IsCorrect reports whether option is a correct choice for the question.
func (q Question) IsCorrect(option int) bool {
	return option >= 0 && option < len(q.Options) && q.Options[option].Correct
}

// Answer is one processed question for a player. A skipped answer carries no selection.
type Answer struct {
	QuestionIndex int       `json:"questionIndex"`
	Selected      *int      `json:"selected,omitempty"`
	Correct       bool      `json:"correct"`
	Skipped       bool      `json:"skipped"`
	At            time.Time `json:"at"`
}

// Answered builds the record for a submitted answer.
func Answered(index, option int, correct bool, at time.Time) Answer {
	return Answer{QuestionIndex: index, Selected: &option, Correct: correct, At: at}
}

// Skipped builds the record for a skipped question.
func Skipped(index int, at time.Time) Answer {
	return Answer{QuestionIndex: index, Skipped: true, At: at}
}

// PlayerEntry is one participant's progress within a match.
type PlayerEntry struct {
	PlayerID     string          `json:"playerId"`
	Score        decimal.Decimal `json:"score"`
	Correct      int             `json:"correct"`
	Wrong        int             `json:"wrong"`
	Processed    int             `json:"processed"`
	Answers      []Answer        `json:"answers"`
	Rank         int             `json:"rank,omitempty"`
	RatingBefore int             `json:"ratingBefore"`
	RatingAfter  int             `json:"ratingAfter,omitempty"`
	RatingDelta  int             `json:"ratingDelta"`
}

// HasProcessed reports whether the player already has a record at index.
func (p *PlayerEntry) HasProcessed(index int) bool {
	for _, a := range p.Answers {
		if a.QuestionIndex == index {
			return true
		}
	}
	return false
}

// Record appends an answer and updates counters and score.
func (p *PlayerEntry) Record(a Answer) {
	switch {
	case a.Skipped:
	case a.Correct:
		p.Correct++
		p.Score = p.Score.Add(CorrectUnit)
	default:
		p.Wrong++
		p.Score = p.Score.Sub(WrongPenalty)
	}
	p.Processed++
	p.Answers = append(p.Answers, a)
}

// ScoreOf recomputes a score from an answer list.
func ScoreOf(answers []Answer) decimal.Decimal {
	var correct, wrong int64
	for _, a := range answers {
		if a.Skipped {
			continue
		}
		if a.Correct {
			correct++
		} else {
			wrong++
		}
	}
	return CorrectUnit.Mul(decimal.NewFromInt(correct)).Sub(WrongPenalty.Mul(decimal.NewFromInt(wrong)))
}

// Match is a timed two-player quiz.
type Match struct {
	ID                  string        `json:"id"`
	Questions           []Question    `json:"questions"`
	TotalQuestions      int           `json:"totalQuestions"`
	Players             []PlayerEntry `json:"players"`
	Status              MatchStatus   `json:"status"`
	Result              MatchResult   `json:"result"`
	WinnerID            string        `json:"winnerId,omitempty"`
	StartedAt           time.Time     `json:"startedAt"`
	EndedAt             *time.Time    `json:"endedAt,omitempty"`
	NeedsReconciliation bool          `json:"needsReconciliation"`
}

// Player returns the entry for playerID.
func (m *Match) Player(playerID string) (*PlayerEntry, bool) {
	for i := range m.Players {
		if m.Players[i].PlayerID == playerID {
			return &m.Players[i], true
		}
	}
	return nil, false
}

// Opponent returns the other participant's entry.
func (m *Match) Opponent(playerID string) (*PlayerEntry, bool) {
	for i := range m.Players {
		if m.Players[i].PlayerID != playerID {
			return &m.Players[i], true
		}
	}
	return nil, false
}

// AllComplete reports whether every participant processed the full question set.
func (m *Match) AllComplete() bool {
	for _, p := range m.Players {
		if p.Processed < m.TotalQuestions {
			return false
		}
	}
	return len(m.Players) > 0
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (m Match) Clone() Match {
	out := m
	out.Questions = append([]Question(nil), m.Questions...)
	out.Players = make([]PlayerEntry, len(m.Players))
	for i, p := range m.Players {
		p.Answers = append([]Answer(nil), p.Answers...)
		out.Players[i] = p
	}
	if m.EndedAt != nil {
		t := *m.EndedAt
		out.EndedAt = &t
	}
	return out
}

// User is the persisted rating record of a player.
type User struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	Rating      int            `json:"rating"`
	Played      int            `json:"played"`
	Won         int            `json:"won"`
	History     []HistoryEntry `json:"history"`
}

// HistoryEntry is appended to a user's history once per settled match.
type HistoryEntry struct {
	MatchID        string          `json:"matchId"`
	OpponentID     string          `json:"opponentId"`
	Outcome        Outcome         `json:"outcome"`
	RatingDelta    int             `json:"ratingDelta"`
	Score          decimal.Decimal `json:"score"`
	Correct        int             `json:"correct"`
	Wrong          int             `json:"wrong"`
	TotalQuestions int             `json:"totalQuestions"`
	PlayedAt       time.Time       `json:"playedAt"`
}
