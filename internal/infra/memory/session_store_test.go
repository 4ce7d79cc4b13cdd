package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := app.NewSession("match-1", nil, time.Now(), time.Minute)
	require.NoError(t, store.Register(session))

	got, ok := store.Get("match-1")
	require.True(t, ok)
	require.Same(t, session, got)
	require.Equal(t, 1, store.Len())

	err := store.Register(app.NewSession("match-1", nil, time.Now(), time.Minute))
	require.ErrorIs(t, err, domain.ErrSessionExists)

	store.Remove("match-1")
	_, ok = store.Get("match-1")
	require.False(t, ok)
	require.Zero(t, store.Len())
}
