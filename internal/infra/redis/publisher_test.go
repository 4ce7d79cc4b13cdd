package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/logger"
)

type frameRecorder struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func (r *frameRecorder) SendFrame(playerID string, frame []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frames == nil {
		r.frames = make(map[string][][]byte)
	}
	r.frames[playerID] = append(r.frames[playerID], frame)
	return true
}

func (r *frameRecorder) count(playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames[playerID])
}

func TestPublisherRelaysAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := &frameRecorder{}
	remote := &frameRecorder{}
	go func() { _ = NewRelay(newClient(mr), "quizduel", "instance-a", local, logger.Discard()).Run(ctx) }()
	go func() { _ = NewRelay(newClient(mr), "quizduel", "instance-b", remote, logger.Discard()).Run(ctx) }()
	require.Eventually(t, func() bool { return mr.PubSubNumPat() == 2 }, time.Second, 10*time.Millisecond)

	pub := NewPublisher(newClient(mr), "quizduel", "instance-a")
	require.NoError(t, pub.Send(ctx, "alice", domain.QuestionSkipped{MatchID: "m1", QuestionIndex: 3}))

	require.Eventually(t, func() bool { return remote.count("alice") == 1 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, local.count("alice"), "own events are delivered locally, not through the relay")

	var frame domain.Frame
	require.NoError(t, json.Unmarshal(remote.frames["alice"][0], &frame))
	assert.Equal(t, domain.EventQuestionSkipped, frame.Type)

	var payload domain.QuestionSkipped
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, 3, payload.QuestionIndex)
}
