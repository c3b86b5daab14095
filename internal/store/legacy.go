package store

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/roach88/countbot/internal/game"
)

// legacyStats is the counting_stats.json layout written by the first
// version of the bot.
type legacyStats struct {
	HighestCount          int64                      `json:"highestCount"`
	HighestCountTimestamp *string                    `json:"highestCountTimestamp"`
	TotalSuccessfulCounts int64                      `json:"totalSuccessfulCounts"`
	CurrentCount          int64                      `json:"currentCount"`
	LastUser              *string                    `json:"lastUser"`
	Milestones            map[string]string          `json:"milestones"`
	UserStats             map[string]legacyUserStats `json:"userStats"`
	MostComplicated       *legacyOperation           `json:"mostComplicatedOperation"`
}

type legacyUserStats struct {
	Successful          int64 `json:"successful"`
	Unsuccessful        int64 `json:"unsuccessful"`
	TotalComplexity     int64 `json:"totalComplexity"`
	CountWithComplexity int64 `json:"countWithComplexity"`
	Primes              int64 `json:"primes"`
	PerfectSquares      int64 `json:"perfectSquares"`
}

type legacyOperation struct {
	Expression string  `json:"expression"`
	User       *string `json:"user"`
	Complexity int     `json:"complexity"`
}

// ParseLegacy reads a counting_stats.json file into a game state.
//
// Missing fields take their zero values; the result is repaired so it
// satisfies the state invariants (for example a missing currentCount
// becomes 1).
func ParseLegacy(r io.Reader) (*game.State, error) {
	var raw legacyStats
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse legacy stats: %w", err)
	}

	state := game.NewState()
	state.CurrentCount = raw.CurrentCount
	state.HighestCount = raw.HighestCount
	state.TotalSuccessful = raw.TotalSuccessfulCounts
	if raw.LastUser != nil {
		state.LastContributor = *raw.LastUser
	}

	if raw.HighestCountTimestamp != nil && *raw.HighestCountTimestamp != "" {
		at, err := time.Parse(time.RFC3339Nano, *raw.HighestCountTimestamp)
		if err != nil {
			return nil, fmt.Errorf("parse legacy stats: highestCountTimestamp: %w", err)
		}
		at = at.UTC()
		state.HighestCountAt = &at
	}

	for key, participant := range raw.Milestones {
		value, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse legacy stats: milestone %q: %w", key, err)
		}
		state.Milestones[value] = participant
	}

	for id, us := range raw.UserStats {
		state.Participants[id] = &game.ParticipantStats{
			Successful:          us.Successful,
			Unsuccessful:        us.Unsuccessful,
			TotalComplexity:     us.TotalComplexity,
			CountWithComplexity: us.CountWithComplexity,
			Primes:              us.Primes,
			PerfectSquares:      us.PerfectSquares,
		}
	}

	if op := raw.MostComplicated; op != nil {
		state.MostComplex = game.ComplexOperation{
			Expression: op.Expression,
			Complexity: op.Complexity,
		}
		if op.User != nil {
			state.MostComplex.Contributor = *op.User
		}
	}

	return state.Repair(), nil
}
