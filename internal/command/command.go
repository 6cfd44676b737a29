package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/konnekt/internal/observer"
)

// Kinds of the Commands built in this package. Package network adds its own.
const (
	KindGeneric  = "generic"
	KindCallback = "callback"
	KindReadFile = "read-file"
)

// ErrAborted is returned by Err and Wait for a Command that was aborted.
var ErrAborted = errors.New("command aborted")

// FailedError is returned by Err and Wait for a Command that failed.
type FailedError struct {
	Command string
	Reason  string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("command %s failed: %s", e.Command, e.Reason)
}

// WorkFunc is the body of a Command. It runs on the queue's worker goroutine.
// tok is valid only for the duration of the call.
type WorkFunc func(ctx context.Context, tok *Token) (any, error)

// Command is a unit of asynchronous work with an observable life-cycle.
//
// A Command is committed to exactly one Queue, at most once. Its Observer
// must be attached at construction (WithObserver) so that it sees the
// waiting transition fired by Commit.
type Command struct {
	observer.Observable

	id          string
	name        string
	description string
	kind        string
	work        WorkFunc
	obs         Observer

	mu      sync.Mutex
	state   State
	aborted bool
	reason  string
	result  any
	done    chan struct{}
}

// Option configures a Command.
type Option func(*Command)

// WithObserver attaches the transition Observer.
func WithObserver(o Observer) Option {
	return func(c *Command) {
		c.obs = o
	}
}

// WithKind sets the Command kind reported to observers and the journal.
func WithKind(kind string) Option {
	return func(c *Command) {
		c.kind = kind
	}
}

// WithID overrides the generated Command id.
func WithID(id string) Option {
	return func(c *Command) {
		c.id = id
	}
}

// WithIDGenerator draws the Command id from gen.
func WithIDGenerator(gen IDGenerator) Option {
	return func(c *Command) {
		c.id = gen.Generate()
	}
}

// New creates a Command in the Created state. A nil work function succeeds
// with a nil result.
func New(name, description string, work WorkFunc, opts ...Option) *Command {
	c := &Command{
		name:        name,
		description: description,
		kind:        KindGeneric,
		work:        work,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = defaultIDs.Generate()
	}
	return c
}

// ID returns the Command's unique identifier.
func (c *Command) ID() string { return c.id }

// Name returns the Command's name.
func (c *Command) Name() string { return c.name }

// Description returns the Command's description.
func (c *Command) Description() string { return c.description }

// Kind returns the Command's kind.
func (c *Command) Kind() string { return c.kind }

// State returns the current life-cycle state.
func (c *Command) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reason returns the human-readable failure reason, or "" unless Failed.
func (c *Command) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Result returns the value produced by the work function. It is nil until
// the Command reaches Success, and stays nil on Abort or Fail.
func (c *Command) Result() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Done returns a channel closed when the Command reaches a terminal state.
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Err returns nil on Success or while still running, ErrAborted on Abort, and
// a *FailedError on Fail.
func (c *Command) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateAborted:
		return ErrAborted
	case StateFailed:
		return &FailedError{Command: c.name, Reason: c.reason}
	default:
		return nil
	}
}

// Wait blocks until the Command is terminal or ctx is done.
func (c *Command) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Abort requests that the Command be skipped. It returns true if the request
// took effect, that is, the Command has not yet become busy. An aborted
// Command is reported as Aborted when the worker reaches it, instead of
// running. Aborting a busy or terminal Command is not supported and returns
// false.
func (c *Command) Abort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateCreated && c.state != StateQueued {
		return false
	}
	c.aborted = true
	return true
}

// Aborted reports whether Abort took effect for c.
func (c *Command) Aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborted
}

func (c *Command) String() string {
	return fmt.Sprintf("%s(%s)", c.name, c.id)
}

// enqueue moves Created -> Queued. It returns false if c was already
// committed somewhere.
func (c *Command) enqueue() bool {
	if !c.transition(StateQueued, func() bool { return c.state == StateCreated }) {
		return false
	}
	c.emit(StateQueued)
	return true
}

// begin moves Queued -> Busy unless c was aborted while queued.
func (c *Command) begin() bool {
	if !c.transition(StateBusy, func() bool { return c.state == StateQueued && !c.aborted }) {
		return false
	}
	c.emit(StateBusy)
	return true
}

func (c *Command) succeed(result any) {
	ok := c.transition(StateSuccess, func() bool {
		if c.state != StateBusy {
			return false
		}
		c.result = result
		return true
	})
	if ok {
		c.emit(StateSuccess)
	}
}

func (c *Command) fail(reason string) {
	ok := c.transition(StateFailed, func() bool {
		if c.state != StateBusy {
			return false
		}
		c.reason = reason
		return true
	})
	if ok {
		c.emit(StateFailed)
	}
}

// abortQueued moves a not-yet-busy Command to Aborted.
func (c *Command) abortQueued() {
	ok := c.transition(StateAborted, func() bool {
		if c.state != StateQueued && c.state != StateCreated {
			return false
		}
		c.aborted = true
		return true
	})
	if ok {
		c.emit(StateAborted)
	}
}

// transition applies to under the lock when guard allows it. Observers are
// called by emit, outside the lock.
func (c *Command) transition(to State, guard func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsTerminal() || !guard() {
		return false
	}
	c.state = to
	return true
}

func (c *Command) emit(s State) {
	if c.obs != nil {
		switch s {
		case StateQueued:
			c.obs.Waiting(c)
		case StateBusy:
			c.obs.Busy(c)
		case StateSuccess:
			c.obs.Success(c)
		case StateAborted:
			c.obs.Abort(c)
		case StateFailed:
			c.obs.Fail(c)
		}
	}
	c.Notify()

	// done closes after the observers ran, so a Wait that returns sees every
	// transition already delivered.
	if s.IsTerminal() {
		close(c.done)
	}
}
