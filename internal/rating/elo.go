// Package rating implements the Elo calculation applied when a match settles.
package rating

import "math"

const (
	// DefaultK is the sensitivity constant used for every match.
	DefaultK = 32
	// DefaultFloor is the lowest rating a player can drop to.
	DefaultFloor = 100
	// DefaultRating is assigned to players without a rating record.
	DefaultRating = 1200
)

// Score is the actual outcome of a match from one player's perspective.
type Score float64

const (
	Win  Score = 1
	Draw Score = 0.5
	Loss Score = 0
)

// Expected returns the expected score of a player rated player against opponent.
func Expected(player, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-player)/400))
}

// Delta returns round(k * (actual - expected)).
func Delta(player, opponent int, actual Score, k int) int {
	return int(math.Round(float64(k) * (float64(actual) - Expected(player, opponent))))
}

// Apply adds delta to rating without going below floor.
func Apply(rating, delta, floor int) int {
	if next := rating + delta; next > floor {
		return next
	}
	return floor
}

// Calculator binds the sensitivity constant and floor.
type Calculator struct {
	K     int
	Floor int
}

// New returns a calculator with the default constants.
func New() Calculator {
	return Calculator{K: DefaultK, Floor: DefaultFloor}
}

// Rate returns the new rating and the delta actually applied after the floor.
func (c Calculator) Rate(player, opponent int, actual Score) (next, applied int) {
	next = Apply(player, Delta(player, opponent, actual, c.K), c.Floor)
	return next, next - player
}
