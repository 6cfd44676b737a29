package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/konnekt/internal/state"
)

// EncodeTrace renders a trace in state line format, one subtree per event:
//
//	trace/000/command=run arith
//	trace/000/kind=run-network
//	trace/000/processed=a,b,sum
//	trace/000/state=success
//	trace/000/step=0
//	trace/000/transitions=waiting,busy,success
//
// Command ids and timings are left out, so the output is identical across
// runs.
func EncodeTrace(trace []TraceEvent) ([]byte, error) {
	s := state.New()
	events := s.Child("trace")
	for i, ev := range trace {
		es := events.Child(fmt.Sprintf("%03d", i))
		es.SetInt("step", int64(ev.Step))
		es.Set("command", ev.Command)
		es.Set("kind", ev.Kind)
		es.Set("state", ev.State)
		es.Set("transitions", strings.Join(ev.Transitions, ","))
		if ev.Reason != "" {
			es.Set("reason", ev.Reason)
		}
		if len(ev.Processed) > 0 {
			es.Set("processed", strings.Join(ev.Processed, ","))
		}
	}

	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := EncodeTrace(result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
