package command

import (
	"context"
	"log/slog"
)

// Observer receives a Command's life-cycle transitions. Each callback gets
// the originating Command, so one Observer may be shared across many
// submissions.
//
// Waiting runs on the goroutine that called Commit; the others run on the
// queue's worker goroutine and must not block for long.
type Observer interface {
	Waiting(c *Command)
	Busy(c *Command)
	Success(c *Command)
	Abort(c *Command)
	Fail(c *Command)
}

// StateFunc adapts a single function to the Observer interface.
type StateFunc func(c *Command, s State)

func (f StateFunc) Waiting(c *Command) { f(c, StateQueued) }
func (f StateFunc) Busy(c *Command)    { f(c, StateBusy) }
func (f StateFunc) Success(c *Command) { f(c, StateSuccess) }
func (f StateFunc) Abort(c *Command)   { f(c, StateAborted) }
func (f StateFunc) Fail(c *Command)    { f(c, StateFailed) }

// ObserverFuncs is an Observer built from optional callbacks.
type ObserverFuncs struct {
	OnWaiting func(*Command)
	OnBusy    func(*Command)
	OnSuccess func(*Command)
	OnAbort   func(*Command)
	OnFail    func(*Command)
}

func (o ObserverFuncs) Waiting(c *Command) { call(o.OnWaiting, c) }
func (o ObserverFuncs) Busy(c *Command)    { call(o.OnBusy, c) }
func (o ObserverFuncs) Success(c *Command) { call(o.OnSuccess, c) }
func (o ObserverFuncs) Abort(c *Command)   { call(o.OnAbort, c) }
func (o ObserverFuncs) Fail(c *Command)    { call(o.OnFail, c) }

func call(fn func(*Command), c *Command) {
	if fn != nil {
		fn(c)
	}
}

// MultiObserver fans transitions out to several observers, in order.
type MultiObserver []Observer

func (m MultiObserver) Waiting(c *Command) { m.each(func(o Observer) { o.Waiting(c) }) }
func (m MultiObserver) Busy(c *Command)    { m.each(func(o Observer) { o.Busy(c) }) }
func (m MultiObserver) Success(c *Command) { m.each(func(o Observer) { o.Success(c) }) }
func (m MultiObserver) Abort(c *Command)   { m.each(func(o Observer) { o.Abort(c) }) }
func (m MultiObserver) Fail(c *Command)    { m.each(func(o Observer) { o.Fail(c) }) }

func (m MultiObserver) each(fn func(Observer)) {
	for _, o := range m {
		if o != nil {
			fn(o)
		}
	}
}

// LogObserver writes one structured log line per transition. Failures are
// logged at warn level.
type LogObserver struct {
	Logger *slog.Logger
}

func (o *LogObserver) Waiting(c *Command) { o.log(c, StateQueued) }
func (o *LogObserver) Busy(c *Command)    { o.log(c, StateBusy) }
func (o *LogObserver) Success(c *Command) { o.log(c, StateSuccess) }
func (o *LogObserver) Abort(c *Command)   { o.log(c, StateAborted) }
func (o *LogObserver) Fail(c *Command)    { o.log(c, StateFailed) }

func (o *LogObserver) log(c *Command, s State) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("id", c.ID()),
		slog.String("command", c.Name()),
		slog.String("kind", c.Kind()),
		slog.String("state", s.String()),
	}

	if s == StateFailed {
		attrs = append(attrs, slog.String("reason", c.Reason()))
		logger.LogAttrs(context.Background(), slog.LevelWarn, "command", attrs...)
		return
	}
	logger.LogAttrs(context.Background(), slog.LevelDebug, "command", attrs...)
}
