package rating_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-duel-service/internal/rating"
)

func TestDelta(t *testing.T) {
	tests := map[string]struct {
		player, opponent int
		actual           rating.Score
		want             int
	}{
		"equal ratings win":           {player: 1200, opponent: 1200, actual: rating.Win, want: 16},
		"equal ratings loss":          {player: 1200, opponent: 1200, actual: rating.Loss, want: -16},
		"equal ratings draw":          {player: 1200, opponent: 1200, actual: rating.Draw, want: 0},
		"underdog wins":               {player: 1000, opponent: 1400, actual: rating.Win, want: 29},
		"favourite loses":             {player: 1400, opponent: 1000, actual: rating.Loss, want: -29},
		"favourite draws":             {player: 1400, opponent: 1000, actual: rating.Draw, want: -13},
		"heavy favourite barely wins": {player: 2400, opponent: 1000, actual: rating.Win, want: 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, rating.Delta(tt.player, tt.opponent, tt.actual, rating.DefaultK))
		})
	}
}

func TestDelta_AntiSymmetric(t *testing.T) {
	for _, r := range []int{800, 1200, 1500, 2000} {
		win := rating.Delta(r, r, rating.Win, rating.DefaultK)
		loss := rating.Delta(r, r, rating.Loss, rating.DefaultK)
		require.Equal(t, win, -loss, "rating %d", r)
	}
}

func TestExpected(t *testing.T) {
	assert.InDelta(t, 0.5, rating.Expected(1200, 1200), 1e-9)
	assert.InDelta(t, 1.0, rating.Expected(1400, 1000)+rating.Expected(1000, 1400), 1e-9)
}

func TestCalculator_RateNeverBelowFloor(t *testing.T) {
	c := rating.Calculator{K: 400, Floor: rating.DefaultFloor}

	next, applied := c.Rate(120, 120, rating.Loss)
	require.Equal(t, rating.DefaultFloor, next)
	require.Equal(t, -20, applied)

	next, applied = c.Rate(100, 3000, rating.Loss)
	require.Equal(t, rating.DefaultFloor, next)
	require.Equal(t, 0, applied)
}

func TestCalculator_Rate(t *testing.T) {
	c := rating.New()

	next, applied := c.Rate(1200, 1200, rating.Win)
	assert.Equal(t, 1216, next)
	assert.Equal(t, 16, applied)

	next, applied = c.Rate(1200, 1200, rating.Loss)
	assert.Equal(t, 1184, next)
	assert.Equal(t, -16, applied)
}
