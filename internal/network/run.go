package network

import (
	"context"
	"time"

	"github.com/roach88/konnekt/internal/command"
)

// RunReport describes one run pass.
type RunReport struct {
	// Pass is the 1-based number of this pass on the network.
	Pass int

	// Processed lists the Algorithms whose Process was called, in call order.
	Processed []string

	// Skipped lists the Algorithms with no changed input.
	Skipped []string

	// Propagated counts Connections that delivered a new package.
	Propagated int

	Elapsed time.Duration
}

// Run executes one run pass over the graph.
//
// Algorithms are visited in topological order. Each incoming Connection is
// propagated; the Algorithm is processed if at least one delivered a new
// package or it was invalidated (newly added Algorithms start invalidated).
// A Process error or panic stops the pass and is returned as a
// *ProcessError; the failing Algorithm stays invalidated so the next pass
// retries it, and outputs already published by earlier Algorithms stay
// published.
func (n *Network) Run(ctx context.Context, tok *command.Token) (*RunReport, error) {
	if err := n.check(tok, "run"); err != nil {
		return nil, err
	}

	start := time.Now()
	n.passes++
	report := &RunReport{Pass: n.passes}

	for _, a := range n.topologicalOrder() {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}

		changed := false
		for _, in := range a.base().inputs {
			conn := in.core().incoming
			if conn != nil && conn.Propagate() {
				changed = true
				report.Propagated++
			}
		}

		if !changed && !n.dirty[a] {
			report.Skipped = append(report.Skipped, a.Name())
			continue
		}
		delete(n.dirty, a)

		n.logger.Debug("processing", "algorithm", a.Name(), "pass", report.Pass)
		if err := n.process(ctx, a); err != nil {
			n.dirty[a] = true
			report.Elapsed = time.Since(start)
			return report, &ProcessError{Algorithm: a.Name(), Err: err}
		}
		report.Processed = append(report.Processed, a.Name())
	}

	report.Elapsed = time.Since(start)
	n.logger.Info("run pass complete",
		"pass", report.Pass,
		"processed", len(report.Processed),
		"skipped", len(report.Skipped),
		"propagated", report.Propagated,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

// process calls a.Process. A panic is recovered into ErrProcessPanicked so
// the caller can re-dirty a like any other failure.
func (n *Network) process(ctx context.Context, a Algorithm) (err error) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("process panicked", "algorithm", a.Name(), "panic", r)
			err = ErrProcessPanicked
		}
	}()
	return a.Process(ctx)
}
