package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/konnekt/internal/command"
	"github.com/roach88/konnekt/internal/netdef"
	"github.com/roach88/konnekt/internal/network"
	"github.com/roach88/konnekt/internal/state"
	"github.com/roach88/konnekt/internal/testutil"
)

// Harness drives one scenario against a freshly built network.
type Harness struct {
	net      *network.Network
	recorder *testutil.Recorder
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs on its own network and queue. Execution flow:
//  1. Load and build the network description
//  2. Execute flow steps, checking expect clauses
//  3. Snapshot the network state
//  4. Evaluate assertions against the trace and the snapshot
//
// A non-nil error means the scenario could not be executed at all; failed
// expectations are reported through Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	def, err := netdef.Load(scenario.Network)
	if err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := network.New(
		network.WithName(def.Name),
		network.WithLogger(logger),
		network.WithQueueOptions(command.WithLogger(logger)),
	)
	n.Start()
	defer n.Stop(false)

	if err := netdef.NewBuilder().Build(ctx, def, n); err != nil {
		return nil, fmt.Errorf("failed to build network: %w", err)
	}

	h := &Harness{net: n, recorder: testutil.NewRecorder(), logger: logger}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	snapshot, err := h.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot network: %w", err)
	}
	result.State = snapshot

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeFlow runs the steps in order. Every step's commands are committed
// before any is awaited, so a run step of N passes queues N RunNetwork
// commands at once.
func (h *Harness) executeFlow(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		cmds := h.stepCommands(step)
		for _, c := range cmds {
			h.net.Commit(c)
		}
		for _, c := range cmds {
			if err := c.Wait(ctx); err != nil && ctx.Err() != nil {
				return err
			}
			result.Trace = append(result.Trace, h.traceEvent(i, c))
		}

		last := cmds[len(cmds)-1]
		if msg := checkExpect(i, step.Expect, last); msg != "" {
			result.AddError(msg)
		}
		h.logger.Debug("step complete", "step", i, "commands", len(cmds))
	}
	return nil
}

func (h *Harness) stepCommands(step Step) []*command.Command {
	opt := command.WithObserver(h.recorder)
	switch {
	case step.Invalidate != "":
		return []*command.Command{h.net.InvalidateCommand(step.Invalidate, opt)}
	case step.Remove != "":
		return []*command.Command{h.net.RemoveAlgorithmCommand(step.Remove, opt)}
	default:
		cmds := make([]*command.Command, step.Run)
		for i := range cmds {
			cmds[i] = h.net.RunNetworkCommand(opt)
		}
		return cmds
	}
}

func (h *Harness) traceEvent(step int, c *command.Command) TraceEvent {
	ev := TraceEvent{
		Step:        step,
		Command:     c.Name(),
		Kind:        c.Kind(),
		State:       c.State().String(),
		Reason:      c.Reason(),
		Transitions: h.recorder.States(c),
	}
	if report, ok := c.Result().(*network.RunReport); ok {
		ev.Processed = report.Processed
	}
	return ev
}

func checkExpect(step int, expect *ExpectClause, c *command.Command) string {
	want := command.StateSuccess.String()
	if expect != nil {
		want = expect.State
	}

	got := c.State().String()
	if got != want {
		msg := fmt.Sprintf("flow[%d]: %s ended %s, expected %s", step, c.Name(), got, want)
		if r := c.Reason(); r != "" {
			msg += ": " + r
		}
		return msg
	}
	if expect != nil && expect.Reason != "" && !strings.Contains(c.Reason(), expect.Reason) {
		return fmt.Sprintf("flow[%d]: %s reason %q does not contain %q", step, c.Name(), c.Reason(), expect.Reason)
	}
	return ""
}

func (h *Harness) snapshot(ctx context.Context) (*state.State, error) {
	c := h.net.Commit(h.net.QueryStateCommand())
	if err := c.Wait(ctx); err != nil {
		return nil, err
	}
	s, _ := c.Result().(*state.State)
	return s, nil
}
