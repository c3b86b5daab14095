package testutil

import (
	"context"
	"sync"

	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/game"
)

// MemoryCheckpointer records checkpoints in memory.
// It implements engine.Checkpointer.
type MemoryCheckpointer struct {
	mu      sync.Mutex
	records []engine.TransitionRecord
	last    *game.State

	// Err, when set, is returned from every Checkpoint call after the
	// record has been kept.
	Err error
}

// Checkpoint records rec and keeps state as the latest snapshot.
func (m *MemoryCheckpointer) Checkpoint(_ context.Context, rec engine.TransitionRecord, state *game.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	m.last = state
	return m.Err
}

// Records returns a copy of every record seen, in checkpoint order.
func (m *MemoryCheckpointer) Records() []engine.TransitionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.TransitionRecord(nil), m.records...)
}

// Last returns the most recent state snapshot, or nil.
func (m *MemoryCheckpointer) Last() *game.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
