package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newClient(mr)
	store := NewSessionStore(client, "quizduel", "instance-a", time.Minute)

	session := app.NewSession("match-1", nil, time.Now(), 2*time.Minute)
	require.NoError(t, store.Register(session))
	require.True(t, mr.Exists("quizduel:session:match-1"))

	owner, err := mr.Get("quizduel:session:match-1")
	require.NoError(t, err)
	require.Equal(t, "instance-a", owner)
	ttl := mr.TTL("quizduel:session:match-1")
	require.Greater(t, ttl, 2*time.Minute)
	require.LessOrEqual(t, ttl, 3*time.Minute)

	got, ok := store.Get("match-1")
	require.True(t, ok)
	require.Same(t, session, got)

	store.Remove("match-1")
	require.False(t, mr.Exists("quizduel:session:match-1"))
	_, ok = store.Get("match-1")
	require.False(t, ok)
}

func TestSessionStoreRejectsMatchOwnedElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	a := NewSessionStore(newClient(mr), "quizduel", "instance-a", time.Minute)
	b := NewSessionStore(newClient(mr), "quizduel", "instance-b", time.Minute)

	require.NoError(t, a.Register(app.NewSession("match-1", nil, time.Now(), time.Minute)))
	err := b.Register(app.NewSession("match-1", nil, time.Now(), time.Minute))
	require.ErrorIs(t, err, domain.ErrSessionExists)

	err = a.Register(app.NewSession("match-1", nil, time.Now(), time.Minute))
	require.ErrorIs(t, err, domain.ErrSessionExists)

	// b never owned the match, so its Remove must not release a's claim
	b.Remove("match-1")
	require.True(t, mr.Exists("quizduel:session:match-1"))

	mr.FastForward(3 * time.Minute)
	require.NoError(t, b.Register(app.NewSession("match-1", nil, time.Now(), time.Minute)))
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
