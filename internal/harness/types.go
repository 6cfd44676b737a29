package harness

import (
	"github.com/roach88/konnekt/internal/state"
)

// TraceEvent records how one flow command ended.
type TraceEvent struct {
	Step    int    `json:"step"`
	Command string `json:"command"`
	Kind    string `json:"kind"`
	State   string `json:"state"`
	Reason  string `json:"reason,omitempty"`

	// Transitions lists every state the command passed through.
	Transitions []string `json:"transitions"`

	// Processed lists the algorithms a run pass processed, in call order.
	// Empty for other kinds.
	Processed []string `json:"processed,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per flow command, in commit order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the network snapshot taken after the flow.
	State *state.State `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
