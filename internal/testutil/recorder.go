// Package testutil holds helpers shared by konnekt tests.
package testutil

import (
	"sync"

	"github.com/roach88/konnekt/internal/command"
)

// Recorder is a command.Observer that records every transition it sees.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []command.Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Waiting(c *command.Command) { r.record(c, command.StateQueued) }
func (r *Recorder) Busy(c *command.Command)    { r.record(c, command.StateBusy) }
func (r *Recorder) Success(c *command.Command) { r.record(c, command.StateSuccess) }
func (r *Recorder) Abort(c *command.Command)   { r.record(c, command.StateAborted) }
func (r *Recorder) Fail(c *command.Command)    { r.record(c, command.StateFailed) }

func (r *Recorder) record(c *command.Command, s command.State) {
	ev := command.Event{Command: c, State: s}
	if s == command.StateFailed {
		ev.Reason = c.Reason()
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of all recorded transitions.
func (r *Recorder) Events() []command.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]command.Event, len(r.events))
	copy(out, r.events)
	return out
}

// States returns the recorded state names for c, in order.
func (r *Recorder) States(c *command.Command) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, ev := range r.events {
		if ev.Command == c {
			out = append(out, ev.State.String())
		}
	}
	return out
}

// Terminal returns the names of commands in the order they reached a
// terminal state.
func (r *Recorder) Terminal() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, ev := range r.events {
		if ev.State.IsTerminal() {
			out = append(out, ev.Command.Name())
		}
	}
	return out
}

// Count returns how many transitions to s were recorded.
func (r *Recorder) Count(s command.State) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, ev := range r.events {
		if ev.State == s {
			n++
		}
	}
	return n
}
