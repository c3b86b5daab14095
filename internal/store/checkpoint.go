package store

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/game"
)

// Checkpoint appends rec to the transition log and saves state, in one
// transaction. It implements engine.Checkpointer.
//
// Uses ON CONFLICT DO NOTHING on the log so that retrying the same
// transition (same seq and id) is harmless.
func (s *Store) Checkpoint(ctx context.Context, rec engine.TransitionRecord, state *game.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("checkpoint: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transitions
		(seq, id, at, participant_id, channel_ref, expression, value, complexity, accepted, reason, count, reaction)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.Seq,
		rec.ID,
		formatTime(rec.At),
		rec.Participant,
		rec.ChannelRef,
		rec.Expression,
		rec.Value,
		rec.Complexity,
		boolToInt(rec.Accepted),
		string(rec.Reason),
		rec.Count,
		string(rec.Reaction),
	)
	if err != nil {
		return fmt.Errorf("checkpoint: write transition %d: %w", rec.Seq, err)
	}

	if err := writeState(ctx, tx, state, rec.Seq); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("checkpoint: commit: %w", err)
	}
	return nil
}

// SaveState saves state without logging a transition. Used by imports.
func (s *Store) SaveState(ctx context.Context, state *game.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save state: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := writeState(ctx, tx, state, 0); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save state: commit: %w", err)
	}
	return nil
}

// writeState upserts every state table. Participants are written in ID
// order so the statements are deterministic.
func writeState(ctx context.Context, tx *sql.Tx, state *game.State, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO game_state
		(id, current_count, last_contributor, highest_count, highest_count_at, total_successful,
		 most_complex_expression, most_complex_contributor, most_complex_complexity, last_seq)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_count = excluded.current_count,
			last_contributor = excluded.last_contributor,
			highest_count = excluded.highest_count,
			highest_count_at = excluded.highest_count_at,
			total_successful = excluded.total_successful,
			most_complex_expression = excluded.most_complex_expression,
			most_complex_contributor = excluded.most_complex_contributor,
			most_complex_complexity = excluded.most_complex_complexity,
			last_seq = MAX(game_state.last_seq, excluded.last_seq)
	`,
		state.CurrentCount,
		state.LastContributor,
		state.HighestCount,
		nullableTime(state.HighestCountAt),
		state.TotalSuccessful,
		state.MostComplex.Expression,
		state.MostComplex.Contributor,
		state.MostComplex.Complexity,
		seq,
	)
	if err != nil {
		return fmt.Errorf("write game state: %w", err)
	}

	for _, id := range slices.Sorted(maps.Keys(state.Participants)) {
		ps := state.Participants[id]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO participant_stats
			(participant_id, successful, unsuccessful, total_complexity, count_with_complexity, primes, perfect_squares)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(participant_id) DO UPDATE SET
				successful = excluded.successful,
				unsuccessful = excluded.unsuccessful,
				total_complexity = excluded.total_complexity,
				count_with_complexity = excluded.count_with_complexity,
				primes = excluded.primes,
				perfect_squares = excluded.perfect_squares
		`,
			id,
			ps.Successful,
			ps.Unsuccessful,
			ps.TotalComplexity,
			ps.CountWithComplexity,
			ps.Primes,
			ps.PerfectSquares,
		)
		if err != nil {
			return fmt.Errorf("write participant %s: %w", id, err)
		}
	}

	// The first reacher of a milestone is never overwritten.
	for _, value := range slices.Sorted(maps.Keys(state.Milestones)) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO milestones (value, participant_id)
			VALUES (?, ?)
			ON CONFLICT(value) DO NOTHING
		`, value, state.Milestones[value])
		if err != nil {
			return fmt.Errorf("write milestone %d: %w", value, err)
		}
	}

	return nil
}
