package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/konnekt/internal/command"
	"github.com/roach88/konnekt/internal/logging"
)

// Journal records Command transitions into a Store. It implements
// command.Observer; attach it with command.WithObserver.
//
// Observer callbacks cannot return errors, so a failed write is logged and
// kept: Err returns the first one.
type Journal struct {
	store  *Store
	runID  string
	clock  *Clock
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	err error
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithRunID sets the run id instead of a generated UUIDv7.
func WithRunID(id string) JournalOption {
	return func(j *Journal) {
		j.runID = id
	}
}

// WithJournalLogger sets the logger for write failures.
func WithJournalLogger(l *slog.Logger) JournalOption {
	return func(j *Journal) {
		j.logger = l
	}
}

// WithNow sets the wall clock used for recorded_at columns.
func WithNow(now func() time.Time) JournalOption {
	return func(j *Journal) {
		j.now = now
	}
}

// NewJournal starts a run for the named network and returns a Journal
// writing into it. The logical clock resumes after the largest stored seq.
func (s *Store) NewJournal(ctx context.Context, network string, opts ...JournalOption) (*Journal, error) {
	j := &Journal{store: s, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = logging.New("journal")
	}
	if j.runID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate run id: %w", err)
		}
		j.runID = id.String()
	}

	last, err := s.lastSeq(ctx)
	if err != nil {
		return nil, err
	}
	j.clock = NewClockAt(last)

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (id, network, started_at) VALUES (?, ?, ?)",
		j.runID, network, j.now().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	return j, nil
}

// RunID returns the id of the run this Journal writes into.
func (j *Journal) RunID() string { return j.runID }

// Err returns the first write failure, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Journal) Waiting(c *command.Command) { j.record(c, command.StateQueued) }
func (j *Journal) Busy(c *command.Command)    { j.record(c, command.StateBusy) }
func (j *Journal) Success(c *command.Command) { j.record(c, command.StateSuccess) }
func (j *Journal) Abort(c *command.Command)   { j.record(c, command.StateAborted) }
func (j *Journal) Fail(c *command.Command)    { j.record(c, command.StateFailed) }

// record writes one transition. The mutex keeps seq order equal to insert
// order.
func (j *Journal) record(c *command.Command, s command.State) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.write(context.Background(), c, s); err != nil {
		j.logger.Warn("journal write failed", "command", c.ID(), "state", s.String(), "error", err)
		if j.err == nil {
			j.err = err
		}
	}
}

func (j *Journal) write(ctx context.Context, c *command.Command, s command.State) error {
	seq := j.clock.Next()
	reason := ""
	if s == command.StateFailed {
		reason = c.Reason()
	}

	tx, err := j.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO commands (id, run_id, name, kind, description, state, reason, first_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, reason = excluded.reason
	`, c.ID(), j.runID, c.Name(), c.Kind(), c.Description(), s.String(), reason, seq)
	if err != nil {
		return fmt.Errorf("upsert command: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transitions (seq, command_id, state, reason, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, seq, c.ID(), s.String(), reason, j.now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}

	return tx.Commit()
}
