package command

// State is a Command's position in its life-cycle.
type State int

const (
	// StateCreated is the state of a Command that was never committed.
	StateCreated State = iota
	// StateQueued means the Command sits in a Queue's pending list.
	StateQueued
	// StateBusy means the worker is running the Command's work function.
	StateBusy
	// StateSuccess means the work function returned without error.
	StateSuccess
	// StateAborted means the Command was cancelled before it became busy.
	StateAborted
	// StateFailed means the work function returned an error or panicked.
	StateFailed
)

var stateNames = [...]string{
	StateCreated: "created",
	StateQueued:  "waiting",
	StateBusy:    "busy",
	StateSuccess: "success",
	StateAborted: "abort",
	StateFailed:  "fail",
}

// String returns the observer-facing name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// IsTerminal reports whether no further transition can follow s.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateAborted || s == StateFailed
}
