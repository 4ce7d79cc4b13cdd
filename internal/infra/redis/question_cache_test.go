package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/infra/memory"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(memory.DefaultBank())}
	cache := NewQuestionCache(newClient(mr), loader, "quizduel", "general", time.Minute)
	ctx := context.Background()

	got, err := cache.FetchBoundQuestions(ctx, []string{"general-05", "general-02"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "general-05", got[0].ID)
	assert.Equal(t, "general-02", got[1].ID)
	assert.EqualValues(t, 1, loader.byID.Load())
	assert.True(t, mr.Exists("quizduel:question:general-05"))

	// Second call should hit cache, loader not incremented.
	got, err = cache.FetchBoundQuestions(ctx, []string{"general-02", "general-05"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "general-02", got[0].ID)
	assert.Equal(t, got[0].CorrectOption(), memory.DefaultBank()[1].CorrectOption())
	assert.EqualValues(t, 1, loader.byID.Load())

	// Only the uncached id goes to the loader.
	_, err = cache.FetchBoundQuestions(ctx, []string{"general-02", "general-07"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, loader.byID.Load())
	assert.Equal(t, []string{"general-07"}, loader.lastIDs)
}

func TestQuestionCacheRandomPool(t *testing.T) {
	mr := miniredis.RunT(t)
	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(memory.DefaultBank())}
	cache := NewQuestionCache(newClient(mr), loader, "quizduel", "general", time.Minute)
	ctx := context.Background()

	first, err := cache.GenerateRandomQuestions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 10)
	assert.True(t, mr.Exists("quizduel:pool:general"))

	_, err = cache.GenerateRandomQuestions(ctx, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, loader.byTopic.Load())

	mr.FastForward(2 * time.Minute)
	_, err = cache.GenerateRandomQuestions(ctx, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, loader.byTopic.Load())
}

func TestQuestionCacheFallsBackWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	cache := NewQuestionCache(newClient(mr), memory.NewStaticQuestionLoader(memory.DefaultBank()), "quizduel", "general", time.Minute)
	mr.Close()

	got, err := cache.FetchBoundQuestions(context.Background(), []string{"general-01"})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

type countingLoader struct {
	memory.QuestionLoader
	byID    atomic.Int32
	byTopic atomic.Int32
	lastIDs []string
}

func (l *countingLoader) LoadQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	l.byID.Add(1)
	l.lastIDs = ids
	return l.QuestionLoader.LoadQuestions(ctx, ids)
}

func (l *countingLoader) LoadTopic(ctx context.Context, topic string) ([]domain.Question, error) {
	l.byTopic.Add(1)
	return l.QuestionLoader.LoadTopic(ctx, topic)
}
