package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", i+1, event.Command, event.State)
		if len(event.Processed) > 0 {
			fmt.Fprintf(&buf, " %v", event.Processed)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertStateEquals:
		return assertStateEquals(result, a)
	case AssertStateMissing:
		return assertStateMissing(result, a)
	case AssertProcessedCount:
		return assertProcessedCount(result.Trace, a)
	case AssertProcessOrder:
		return assertProcessOrder(result.Trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func stateValue(result *Result, path string) (string, bool) {
	if result.State == nil {
		return "", false
	}
	v, ok := result.State.Flatten()[path]
	return v, ok
}

// assertStateEquals checks the value stored at a snapshot path.
func assertStateEquals(result *Result, a Assertion) error {
	got, ok := stateValue(result, a.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("%s=%s", a.Path, a.Value),
			Actual:   "path not present in state",
			Trace:    result.Trace,
		}
	}
	if got != a.Value {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("%s=%s", a.Path, a.Value),
			Actual:   fmt.Sprintf("%s=%s", a.Path, got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertStateMissing checks that a snapshot path holds no value.
func assertStateMissing(result *Result, a Assertion) error {
	if got, ok := stateValue(result, a.Path); ok {
		return &AssertionError{
			Type:     AssertStateMissing,
			Expected: fmt.Sprintf("%s absent", a.Path),
			Actual:   fmt.Sprintf("%s=%s", a.Path, got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertProcessedCount checks how many run passes processed an algorithm.
func assertProcessedCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		for _, name := range event.Processed {
			if name == a.Algorithm {
				count++
			}
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertProcessedCount,
			Expected: fmt.Sprintf("%s processed %d times", a.Algorithm, a.Count),
			Actual:   fmt.Sprintf("processed %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertProcessOrder checks that the listed algorithms were first processed
// in the given order. Other algorithms may be processed in between.
func assertProcessOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	pos := 0
	for _, event := range trace {
		for _, name := range event.Processed {
			pos++
			if _, seen := positions[name]; !seen {
				positions[name] = pos
			}
		}
	}

	for _, name := range a.Algorithms {
		if _, ok := positions[name]; !ok {
			return &AssertionError{
				Type:     AssertProcessOrder,
				Expected: fmt.Sprintf("all algorithms processed: %v", a.Algorithms),
				Actual:   fmt.Sprintf("%s never processed", name),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Algorithms); i++ {
		prev, curr := a.Algorithms[i-1], a.Algorithms[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertProcessOrder,
				Expected: fmt.Sprintf("processing order: %v", a.Algorithms),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}
