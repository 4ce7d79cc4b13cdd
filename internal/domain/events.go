package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventMatchState      = "matchState"
	EventLiveUpdate      = "liveUpdate"
	EventAnswerResult    = "answerResult"
	EventQuestionSkipped = "questionSkipped"
	EventMatchEnded      = "matchEnded"
	EventError           = "error"
)

// Event is an outbound message delivered to players.
type Event interface {
	Kind() string
}

// PlayerStats is the live view of a participant.
type PlayerStats struct {
	PlayerID  string  `json:"playerId"`
	Score     float64 `json:"score"`
	Correct   int     `json:"correct"`
	Wrong     int     `json:"wrong"`
	Processed int     `json:"processed"`
}

// LiveUpdate is broadcast after every processed question and on the periodic tick.
// QuestionIndex is nil for tick snapshots.
type LiveUpdate struct {
	MatchID         string        `json:"matchId"`
	Players         []PlayerStats `json:"players"`
	QuestionIndex   *int          `json:"questionIndex,omitempty"`
	TimeRemainingMs int64         `json:"timeRemainingMs"`
}

func (LiveUpdate) Kind() string { return EventLiveUpdate }

// AnswerResult is sent to the submitting player only.
type AnswerResult struct {
	MatchID       string  `json:"matchId"`
	QuestionIndex int     `json:"questionIndex"`
	Correct       bool    `json:"correct"`
	CorrectOption int     `json:"correctOption"`
	Explanation   string  `json:"explanation"`
	Score         float64 `json:"score"`
}

func (AnswerResult) Kind() string { return EventAnswerResult }

// QuestionSkipped is sent to the skipping player only.
type QuestionSkipped struct {
	MatchID       string  `json:"matchId"`
	QuestionIndex int     `json:"questionIndex"`
	Score         float64 `json:"score"`
}

func (QuestionSkipped) Kind() string { return EventQuestionSkipped }

// PlayerResult is the final per-player line of a settled match.
type PlayerResult struct {
	PlayerID  string  `json:"playerId"`
	Rank      int     `json:"rank"`
	Score     float64 `json:"score"`
	Correct   int     `json:"correct"`
	Wrong     int     `json:"wrong"`
	Processed int     `json:"processed"`
	Outcome   Outcome `json:"outcome"`
}

// RatingUpdate reports a rating change. Applied is false when the user record could not be
// loaded or written and the rating was left untouched.
type RatingUpdate struct {
	PlayerID string `json:"playerId"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
	Delta    int    `json:"delta"`
	Applied  bool   `json:"applied"`
}

// MatchDetails summarises the settled match.
type MatchDetails struct {
	Result         MatchResult `json:"result"`
	WinnerID       string      `json:"winnerId,omitempty"`
	Trigger        string      `json:"trigger"`
	TotalQuestions int         `json:"totalQuestions"`
	StartedAt      time.Time   `json:"startedAt"`
	EndedAt        time.Time   `json:"endedAt"`
}

// MatchEnded is the terminal event of a match, broadcast once.
type MatchEnded struct {
	MatchID       string         `json:"matchId"`
	Results       []PlayerResult `json:"results"`
	RatingUpdates []RatingUpdate `json:"ratingUpdates"`
	Details       MatchDetails   `json:"details"`
}

func (MatchEnded) Kind() string { return EventMatchEnded }

// ErrorEvent carries a rejection back to the acting player.
type ErrorEvent struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (ErrorEvent) Kind() string { return EventError }

// NewErrorEvent converts err into its client-facing form.
func NewErrorEvent(err error) ErrorEvent {
	e := Convert(err)
	msg := e.Message
	if e.Code == CodeInternal {
		msg = defaultMessages[CodeInternal]
	}
	return ErrorEvent{Code: e.Code, Message: msg}
}

// QuestionView is a question as shown to players, without correctness flags.
type QuestionView struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// MatchState is returned on join and from the REST API.
type MatchState struct {
	MatchID         string         `json:"matchId"`
	Status          MatchStatus    `json:"status"`
	Result          MatchResult    `json:"result"`
	WinnerID        string         `json:"winnerId,omitempty"`
	TotalQuestions  int            `json:"totalQuestions"`
	Questions       []QuestionView `json:"questions"`
	Players         []PlayerStats  `json:"players"`
	Processed       []int          `json:"processed,omitempty"`
	StartedAt       time.Time      `json:"startedAt"`
	TimeRemainingMs int64          `json:"timeRemainingMs"`
}

func (MatchState) Kind() string { return EventMatchState }

// Stats returns the live view of every participant.
func (m *Match) Stats() []PlayerStats {
	out := make([]PlayerStats, 0, len(m.Players))
	for _, p := range m.Players {
		out = append(out, PlayerStats{
			PlayerID:  p.PlayerID,
			Score:     p.Score.InexactFloat64(),
			Correct:   p.Correct,
			Wrong:     p.Wrong,
			Processed: p.Processed,
		})
	}
	return out
}

// Frame is the wire envelope of every websocket message, inbound and outbound.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EncodeEvent renders e as a JSON frame.
func EncodeEvent(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	return json.Marshal(Frame{Type: e.Kind(), Payload: payload})
}
