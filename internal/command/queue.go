package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/roach88/konnekt/internal/logging"
)

// ErrUnexpected is the failure reason for a work function that panicked.
// The panic value is logged, never surfaced as a typed error.
var ErrUnexpected = errors.New("unexpected failure during command execution")

// Queue executes Commands one at a time, in commit order, on a dedicated
// worker goroutine.
//
// Thread-safety model:
//   - Commit(), Start(), Stop(), Pending(), Running(): safe from any goroutine
//   - WorkFuncs run only on the worker goroutine
//
// Stop blocks until the worker has exited. Calling Stop from inside a
// Command running on the same Queue deadlocks.
type Queue struct {
	mu       sync.Mutex
	pending  []*Command
	running  bool
	stopping bool
	graceful bool
	exited   chan struct{} // closed when the current worker returns

	// signal wakes the worker (buffered, size 1: multiple wakeups coalesce).
	signal chan struct{}

	ctx    context.Context
	logger *slog.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithLogger sets the queue's logger.
func WithLogger(l *slog.Logger) QueueOption {
	return func(q *Queue) {
		q.logger = l
	}
}

// WithContext sets the context handed to every WorkFunc. Stop never cancels
// it: running Commands are not interrupted.
func WithContext(ctx context.Context) QueueOption {
	return func(q *Queue) {
		q.ctx = ctx
	}
}

// NewQueue creates a stopped Queue.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		pending: make([]*Command, 0, 16),
		signal:  make(chan struct{}, 1),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.logger == nil {
		q.logger = logging.New("queue")
	}
	return q
}

// Commit submits c and returns it.
//
// c transitions to Queued (firing its Observer's Waiting) before it becomes
// visible to the worker, so Waiting always precedes Busy. A Command that was
// already committed is returned unchanged and not queued again.
//
// Commands committed while the Queue is not running stay pending until the
// next Start.
func (q *Queue) Commit(c *Command) *Command {
	if c == nil {
		return nil
	}
	if !c.enqueue() {
		q.logger.Warn("command already committed", "id", c.ID(), "command", c.Name())
		return c
	}

	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()

	q.wake()
	return c
}

// Start spawns the worker goroutine. It is a no-op while the worker runs.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true
	q.stopping = false
	q.graceful = false
	q.exited = make(chan struct{})

	go q.run(q.exited)
	q.logger.Debug("queue started")
}

// Stop asks the worker to exit and waits until it has.
//
// With graceful set, every pending Command still runs to a terminal state
// first. Otherwise pending Commands are aborted; a Command that is already
// busy finishes normally. A forced Stop may escalate a graceful Stop that is
// still draining. Stop is a no-op when the worker is not running, in which
// case pending Commands are left untouched.
func (q *Queue) Stop(graceful bool) {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	if !q.stopping {
		q.stopping = true
		q.graceful = graceful
	} else if !graceful {
		q.graceful = false
	}
	exited := q.exited
	q.mu.Unlock()

	q.logger.Debug("queue stopping", "graceful", graceful)
	q.wake()
	<-exited
}

// Running reports whether the worker goroutine is alive.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Stopping reports whether a Stop request is in progress.
func (q *Queue) Stopping() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopping
}

// Pending returns the number of committed Commands the worker has not taken
// yet.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *Queue) run(exited chan struct{}) {
	defer close(exited)

	for {
		batch, ok := q.next()
		if !ok {
			q.logger.Debug("queue stopped")
			return
		}
		for i, c := range batch {
			if q.forced() {
				for _, rest := range batch[i:] {
					rest.abortQueued()
				}
				break
			}
			q.execute(c)
		}
	}
}

// next blocks until there is pending work or a stop request. It swaps out
// the whole pending batch under the lock.
func (q *Queue) next() ([]*Command, bool) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			batch := q.pending
			q.pending = make([]*Command, 0, 16)
			q.mu.Unlock()
			return batch, true
		}
		if q.stopping {
			q.running = false
			q.stopping = false
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()

		// Spurious wakeups loop back and re-check both conditions.
		<-q.signal
	}
}

func (q *Queue) forced() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopping && !q.graceful
}

// execute runs one Command on the worker goroutine.
func (q *Queue) execute(c *Command) {
	if !c.begin() {
		c.abortQueued()
		return
	}

	tok := newToken(q, c)
	result, err := q.invoke(c, tok)
	tok.revoke()

	if err != nil {
		c.fail(err.Error())
		return
	}
	c.succeed(result)
}

func (q *Queue) invoke(c *Command, tok *Token) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("command panicked",
				"id", c.ID(),
				"command", c.Name(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			result, err = nil, ErrUnexpected
		}
	}()

	if c.work == nil {
		return nil, nil
	}
	return c.work(q.ctx, tok)
}
