package store

import (
	"context"
	"fmt"
	"time"
)

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID        string
	Network   string
	StartedAt time.Time
	Commands  int
}

// CommandRecord is one Command and its latest state.
type CommandRecord struct {
	ID          string
	RunID       string
	Name        string
	Kind        string
	Description string
	State       string
	Reason      string
	FirstSeq    int64
}

// TransitionRecord is one state change.
type TransitionRecord struct {
	Seq        int64
	CommandID  string
	State      string
	Reason     string
	RecordedAt time.Time
}

// Runs returns every run, oldest first.
// Returns an empty slice (not nil) if there are none.
func (s *Store) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.network, r.started_at, COUNT(c.id)
		FROM runs r
		LEFT JOIN commands c ON c.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at ASC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var r RunRecord
		var started int64
		if err := rows.Scan(&r.ID, &r.Network, &started, &r.Commands); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(0, started)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Commands returns the Commands of a run in the order they were first
// journaled. An empty runID selects every run.
func (s *Store) Commands(ctx context.Context, runID string) ([]CommandRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, name, kind, description, state, reason, first_seq
		FROM commands
		WHERE ? = '' OR run_id = ?
		ORDER BY first_seq ASC, id COLLATE BINARY ASC
	`, runID, runID)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	cmds := []CommandRecord{}
	for rows.Next() {
		var c CommandRecord
		if err := rows.Scan(&c.ID, &c.RunID, &c.Name, &c.Kind, &c.Description, &c.State, &c.Reason, &c.FirstSeq); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		cmds = append(cmds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return cmds, nil
}

// Transitions returns the state changes of one Command in order.
func (s *Store) Transitions(ctx context.Context, commandID string) ([]TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, command_id, state, reason, recorded_at
		FROM transitions
		WHERE command_id = ?
		ORDER BY seq ASC
	`, commandID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	out := []TransitionRecord{}
	for rows.Next() {
		var t TransitionRecord
		var recorded int64
		if err := rows.Scan(&t.Seq, &t.CommandID, &t.State, &t.Reason, &recorded); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.RecordedAt = time.Unix(0, recorded)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

// CountByState returns how many Commands of a run ended in each state. An
// empty runID counts every run.
func (s *Store) CountByState(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, COUNT(*)
		FROM commands
		WHERE ? = '' OR run_id = ?
		GROUP BY state
	`, runID, runID)
	if err != nil {
		return nil, fmt.Errorf("count commands: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[state] = n
	}
	return counts, rows.Err()
}
