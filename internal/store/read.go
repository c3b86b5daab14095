package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/game"
)

// DefaultHistoryLimit is the number of transitions ReadTransitions returns
// when no limit is given.
const DefaultHistoryLimit = 20

// Load reads the saved game. A database that has never been checkpointed
// yields a fresh game.
func (s *Store) Load(ctx context.Context) (*game.State, error) {
	state := game.NewState()

	var at sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT current_count, last_contributor, highest_count, highest_count_at, total_successful,
		       most_complex_expression, most_complex_contributor, most_complex_complexity
		FROM game_state
		WHERE id = 1
	`).Scan(
		&state.CurrentCount,
		&state.LastContributor,
		&state.HighestCount,
		&at,
		&state.TotalSuccessful,
		&state.MostComplex.Expression,
		&state.MostComplex.Contributor,
		&state.MostComplex.Complexity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game state: %w", err)
	}
	if state.HighestCountAt, err = scanNullableTime(at); err != nil {
		return nil, fmt.Errorf("load game state: %w", err)
	}

	if err := s.loadParticipants(ctx, state); err != nil {
		return nil, err
	}
	if err := s.loadMilestones(ctx, state); err != nil {
		return nil, err
	}

	return state.Repair(), nil
}

func (s *Store) loadParticipants(ctx context.Context, state *game.State) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, successful, unsuccessful, total_complexity, count_with_complexity, primes, perfect_squares
		FROM participant_stats
		ORDER BY participant_id COLLATE BINARY ASC
	`)
	if err != nil {
		return fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var ps game.ParticipantStats
		if err := rows.Scan(&id, &ps.Successful, &ps.Unsuccessful, &ps.TotalComplexity,
			&ps.CountWithComplexity, &ps.Primes, &ps.PerfectSquares); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		state.Participants[id] = &ps
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate participants: %w", err)
	}
	return nil
}

func (s *Store) loadMilestones(ctx context.Context, state *game.State) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value, participant_id FROM milestones ORDER BY value ASC
	`)
	if err != nil {
		return fmt.Errorf("query milestones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var value int64
		var id string
		if err := rows.Scan(&value, &id); err != nil {
			return fmt.Errorf("scan milestone: %w", err)
		}
		state.Milestones[value] = id
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate milestones: %w", err)
	}
	return nil
}

// LastSeq returns the highest transition seq in the log, or 0 if the log
// is empty. The engine's clock resumes from it.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM transitions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// HistoryQuery selects transitions from the log.
type HistoryQuery struct {
	// Participant restricts results to one participant. Empty means all.
	Participant string

	// Limit is the maximum number of transitions. Values <= 0 select
	// DefaultHistoryLimit.
	Limit int
}

// ReadTransitions returns the most recent transitions matching q, oldest
// first.
//
// Returns an empty slice (not nil) if the log has no matching entries.
func (s *Store) ReadTransitions(ctx context.Context, q HistoryQuery) ([]engine.TransitionRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	// The inner query picks the newest rows; the outer restores seq order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, at, participant_id, channel_ref, expression, value, complexity, accepted, reason, count, reaction
		FROM (
			SELECT * FROM transitions
			WHERE ? = '' OR participant_id = ?
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC
	`, q.Participant, q.Participant, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	return scanTransitions(rows)
}

// AllTransitions returns the whole transition log in seq order.
func (s *Store) AllTransitions(ctx context.Context) ([]engine.TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, at, participant_id, channel_ref, expression, value, complexity, accepted, reason, count, reaction
		FROM transitions
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	return scanTransitions(rows)
}

func scanTransitions(rows *sql.Rows) ([]engine.TransitionRecord, error) {
	defer rows.Close()

	records := []engine.TransitionRecord{}
	for rows.Next() {
		rec, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return records, nil
}

func scanTransition(rows *sql.Rows) (engine.TransitionRecord, error) {
	var (
		rec      engine.TransitionRecord
		at       string
		accepted int
		reason   string
		reaction string
	)
	err := rows.Scan(
		&rec.Seq,
		&rec.ID,
		&at,
		&rec.Participant,
		&rec.ChannelRef,
		&rec.Expression,
		&rec.Value,
		&rec.Complexity,
		&accepted,
		&reason,
		&rec.Count,
		&reaction,
	)
	if err != nil {
		return engine.TransitionRecord{}, fmt.Errorf("scan transition: %w", err)
	}
	if rec.At, err = parseTime(at); err != nil {
		return engine.TransitionRecord{}, fmt.Errorf("scan transition %d: %w", rec.Seq, err)
	}
	rec.Accepted = accepted == 1
	rec.Reason = game.Reason(reason)
	rec.Reaction = game.ReactionTag(reaction)
	return rec, nil
}
