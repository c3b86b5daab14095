// Package store provides SQLite-backed checkpoints for the counting game.
//
// The store keeps two things:
//   - The latest game state: game_state (a single row), participant_stats
//     and milestones
//   - Transitions: an append-only log of every applied submission
//
// Both are written in one transaction per transition, so the state on disk
// always matches the last logged transition.
//
// # Ordering
//
// The transition log is ordered by seq, the engine's logical clock, never
// by timestamp. Reads use ORDER BY seq.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
