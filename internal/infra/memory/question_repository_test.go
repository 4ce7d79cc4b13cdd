package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-duel-service/internal/domain"
)

func TestQuestionRepositoryCachesBoundQuestions(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(DefaultBank())}
	repo := NewQuestionRepository(loader, "general", time.Minute)
	ctx := context.Background()

	ids := []string{"general-03", "general-01", "missing"}
	got, err := repo.FetchBoundQuestions(ctx, ids)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "general-03", got[0].ID)
	assert.Equal(t, "general-01", got[1].ID)
	assert.EqualValues(t, 1, loader.byID.Load())

	_, err = repo.FetchBoundQuestions(ctx, []string{"general-01", "general-03"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, loader.byID.Load(), "expected cache hit")
}

func TestQuestionRepositoryDropsInvalidRecords(t *testing.T) {
	bank := append(DefaultBank(),
		domain.Question{ID: "short", Topic: "general", Prompt: "Too few options", Options: []domain.Option{{Text: "a", Correct: true}, {Text: "b"}}},
		domain.Question{ID: "blank", Topic: "general", Options: make([]domain.Option, 4)},
	)
	repo := NewQuestionRepository(NewStaticQuestionLoader(bank), "general", time.Minute)

	got, err := repo.FetchBoundQuestions(context.Background(), []string{"short", "general-02", "blank"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "general-02", got[0].ID)

	random, err := repo.GenerateRandomQuestions(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, random, len(DefaultBank()))
	for _, q := range random {
		assert.True(t, q.Valid(), q.ID)
	}
}

func TestQuestionRepositoryRandomSelection(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(DefaultBank())}
	repo := NewQuestionRepository(loader, "general", time.Minute)
	ctx := context.Background()

	first, err := repo.GenerateRandomQuestions(ctx, 5)
	require.NoError(t, err)
	require.Len(t, first, 5)

	seen := make(map[string]bool)
	for _, q := range first {
		assert.False(t, seen[q.ID], "duplicate %s", q.ID)
		seen[q.ID] = true
	}

	_, err = repo.GenerateRandomQuestions(ctx, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, loader.byTopic.Load(), "expected topic pool cache hit")

	other := NewQuestionRepository(NewStaticQuestionLoader(DefaultBank()), "history", time.Minute)
	none, err := other.GenerateRandomQuestions(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQuestionRepositoryPropagatesLoaderErrors(t *testing.T) {
	repo := NewQuestionRepository(failingLoader{}, "general", time.Minute)

	_, err := repo.FetchBoundQuestions(context.Background(), []string{"x"})
	require.Error(t, err)
	_, err = repo.GenerateRandomQuestions(context.Background(), 3)
	require.Error(t, err)
}

type countingLoader struct {
	QuestionLoader
	byID    atomic.Int32
	byTopic atomic.Int32
}

func (l *countingLoader) LoadQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	l.byID.Add(1)
	return l.QuestionLoader.LoadQuestions(ctx, ids)
}

func (l *countingLoader) LoadTopic(ctx context.Context, topic string) ([]domain.Question, error) {
	l.byTopic.Add(1)
	return l.QuestionLoader.LoadTopic(ctx, topic)
}

type failingLoader struct{}

func (failingLoader) LoadQuestions(context.Context, []string) ([]domain.Question, error) {
	return nil, errors.New("bank offline")
}

func (failingLoader) LoadTopic(context.Context, string) ([]domain.Question, error) {
	return nil, errors.New("bank offline")
}
