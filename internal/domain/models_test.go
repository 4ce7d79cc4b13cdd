package domain_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-duel-service/internal/domain"
)

func TestPlayerEntry_RecordMatchesScoreOf(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	now := time.Unix(0, 0)

	for run := 0; run < 50; run++ {
		var p domain.PlayerEntry
		for i := 0; i < 10; i++ {
			switch rnd.Intn(3) {
			case 0:
				p.Record(domain.Answered(i, 1, true, now))
			case 1:
				p.Record(domain.Answered(i, 2, false, now))
			default:
				p.Record(domain.Skipped(i, now))
			}
		}

		want := decimal.NewFromInt(int64(p.Correct)).Sub(decimal.RequireFromString("0.25").Mul(decimal.NewFromInt(int64(p.Wrong))))
		require.True(t, want.Equal(p.Score), "run %d: want %s got %s", run, want, p.Score)
		require.True(t, domain.ScoreOf(p.Answers).Equal(p.Score))
		require.Equal(t, 10, p.Processed)
	}
}

func TestPlayerEntry_SixRightFourWrong(t *testing.T) {
	var p domain.PlayerEntry
	for i := 0; i < 10; i++ {
		p.Record(domain.Answered(i, 0, i < 6, time.Now()))
	}
	assert.Equal(t, 5.0, p.Score.InexactFloat64())
	assert.Equal(t, 6, p.Correct)
	assert.Equal(t, 4, p.Wrong)
}

func TestPlayerEntry_SkipKeepsScore(t *testing.T) {
	var p domain.PlayerEntry
	p.Record(domain.Skipped(3, time.Now()))

	assert.True(t, p.Score.IsZero())
	assert.Equal(t, 1, p.Processed)
	assert.True(t, p.HasProcessed(3))
	assert.False(t, p.HasProcessed(2))
	assert.Nil(t, p.Answers[0].Selected)
}

func TestQuestion_Valid(t *testing.T) {
	four := []domain.Option{{Text: "a"}, {Text: "b", Correct: true}, {Text: "c"}, {Text: "d"}}

	assert.True(t, domain.Question{Prompt: "p", Options: four}.Valid())
	assert.False(t, domain.Question{Prompt: "", Options: four}.Valid())
	assert.False(t, domain.Question{Prompt: "p", Options: four[:3]}.Valid())
	assert.Equal(t, 1, domain.Question{Prompt: "p", Options: four}.CorrectOption())
}

func TestSelectRandom(t *testing.T) {
	opts := []domain.Option{{Text: "a", Correct: true}, {Text: "b"}, {Text: "c"}, {Text: "d"}}
	pool := []domain.Question{
		{ID: "1", Topic: "math", Prompt: "p1", Options: opts},
		{ID: "2", Topic: "math", Prompt: "p2", Options: opts},
		{ID: "3", Topic: "history", Prompt: "p3", Options: opts},
		{ID: "4", Topic: "math", Prompt: "", Options: opts},
	}
	rnd := rand.New(rand.NewSource(1))

	got := domain.SelectRandom(pool, "math", 10, rnd.Shuffle)
	require.Len(t, got, 2)
	for _, q := range got {
		assert.Equal(t, "math", q.Topic)
	}

	got = domain.SelectRandom(pool, "", 1, rnd.Shuffle)
	require.Len(t, got, 1)
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("submit: %w", domain.New(domain.CodeAlreadyProcessed, domain.WithMessagef("question %d", 3)))

	assert.True(t, errors.Is(err, domain.ErrAlreadyProcessed))
	assert.False(t, errors.Is(err, domain.ErrTimeExpired))
	assert.Equal(t, domain.CodeAlreadyProcessed, domain.Convert(err).Code)
	assert.Equal(t, domain.CodeInternal, domain.Convert(errors.New("boom")).Code)

	ev := domain.NewErrorEvent(errors.New("db down"))
	assert.Equal(t, domain.CodeInternal, ev.Code)
	assert.Equal(t, "internal error", ev.Message)
}

func TestError_Options(t *testing.T) {
	cause := errors.New("timeout")
	opts := []domain.ErrorOption{domain.WithCause(cause), domain.WithMessagef("save %s", "m-1")}
	err := domain.New(domain.CodeInternal, opts...)

	assert.Equal(t, "save m-1", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal: save m-1: timeout", err.Error())
}
