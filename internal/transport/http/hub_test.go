package http

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/logger"
)

func TestHubDeliversToEveryConnectionOfPlayer(t *testing.T) {
	hub := NewHub(logger.Discard())
	first := hub.register("alice")
	second := hub.register("alice")
	other := hub.register("bob")

	require.NoError(t, hub.Send(context.Background(), "alice", domain.QuestionSkipped{MatchID: "m", QuestionIndex: 2}))

	for _, c := range []*client{first, second} {
		require.Len(t, c.send, 1)
		var f domain.Frame
		require.NoError(t, json.Unmarshal(<-c.send, &f))
		assert.Equal(t, domain.EventQuestionSkipped, f.Type)
	}
	assert.Empty(t, other.send)

	hub.unregister(first)
	assert.True(t, hub.Connected("alice"))
	hub.unregister(second)
	assert.False(t, hub.Connected("alice"))
	assert.False(t, hub.SendFrame("alice", []byte("{}")))
	require.NoError(t, hub.Send(context.Background(), "nobody", domain.QuestionSkipped{}))
}

func TestHubDropsOldestForSlowClient(t *testing.T) {
	hub := NewHub(logger.Discard())
	c := hub.register("alice")

	for i := 0; i < sendBuffer+5; i++ {
		hub.SendFrame("alice", []byte{byte(i)})
	}

	require.Len(t, c.send, sendBuffer)
	assert.Equal(t, []byte{5}, <-c.send)
}

func TestHubKeepsPlayerRepliesOverLiveUpdates(t *testing.T) {
	hub := NewHub(logger.Discard())
	c := hub.register("alice")

	live, err := domain.EncodeEvent(domain.LiveUpdate{MatchID: "m"})
	require.NoError(t, err)
	for i := 0; i < sendBuffer/2; i++ {
		hub.SendFrame("alice", live)
	}
	for i := 0; i < sendBuffer; i++ {
		require.NoError(t, hub.Send(context.Background(), "alice", domain.AnswerResult{MatchID: "m", QuestionIndex: i}))
	}
	// a full buffer refuses further snapshots outright
	hub.SendFrame("alice", live)

	require.Len(t, c.send, sendBuffer)
	var results []int
	for len(c.send) > 0 {
		var f domain.Frame
		require.NoError(t, json.Unmarshal(<-c.send, &f))
		require.Equal(t, domain.EventAnswerResult, f.Type)
		var res domain.AnswerResult
		require.NoError(t, json.Unmarshal(f.Payload, &res))
		results = append(results, res.QuestionIndex)
	}
	require.Len(t, results, sendBuffer)
	for i, idx := range results {
		assert.Equal(t, i, idx)
	}
}
