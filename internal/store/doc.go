// Package store provides a SQLite-backed journal of Command transitions.
//
// The journal is append-only:
//   - Runs: one row per process that opened the journal for a network
//   - Commands: one row per Command, with its latest state
//   - Transitions: one row per state change, stamped by a logical clock
//
// # Ordering
//
// Transitions are ordered by seq, a logical clock resumed from the largest
// stored value on open, never by wall time. Queries order by
// seq ASC, id COLLATE BINARY ASC so results are identical across reads.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
