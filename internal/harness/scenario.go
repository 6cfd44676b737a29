package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario for a processing network.
// It builds the network described by Network, drives it through Flow and
// checks Assertions against the trace and the final state snapshot.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Network is the path to a network description file.
	// Relative paths are resolved against the scenario file's directory.
	Network string `yaml:"network"`

	// Flow lists the steps executed after the network is built.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action of a scenario flow. Exactly one of Run, Invalidate or
// Remove is set.
type Step struct {
	// Run commits this many RunNetwork commands.
	Run int `yaml:"run,omitempty"`

	// Invalidate names an algorithm to force on the next pass.
	Invalidate string `yaml:"invalidate,omitempty"`

	// Remove names an algorithm to unregister.
	Remove string `yaml:"remove,omitempty"`

	// Expect specifies how the step's last command must end.
	// If nil, the command must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected terminal state of a step.
type ExpectClause struct {
	// State is "success", "fail" or "abort".
	State string `yaml:"state"`

	// Reason is a substring the failure reason must contain.
	Reason string `yaml:"reason,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is a state path such as algorithms/out/state/last
	// (state_equals, state_missing).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value at Path (state_equals).
	Value string `yaml:"value,omitempty"`

	// Algorithm names the algorithm counted by processed_count.
	Algorithm string `yaml:"algorithm,omitempty"`

	// Count is the expected number of passes that processed Algorithm.
	Count int `yaml:"count,omitempty"`

	// Algorithms is the expected processing order (process_order).
	Algorithms []string `yaml:"algorithms,omitempty"`
}

// Assertion type constants.
const (
	AssertStateEquals    = "state_equals"
	AssertStateMissing   = "state_missing"
	AssertProcessedCount = "processed_count"
	AssertProcessOrder   = "process_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict fields catch typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Network != "" && !filepath.IsAbs(scenario.Network) {
		scenario.Network = filepath.Join(filepath.Dir(path), scenario.Network)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Network == "" {
		return fmt.Errorf("network is required")
	}
	if _, err := os.Stat(s.Network); os.IsNotExist(err) {
		return fmt.Errorf("network file not found: %s", s.Network)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	set := 0
	if s.Run != 0 {
		set++
	}
	if s.Invalidate != "" {
		set++
	}
	if s.Remove != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("flow[%d]: exactly one of run, invalidate, remove is required", index)
	}
	if s.Run < 0 {
		return fmt.Errorf("flow[%d]: run must be positive", index)
	}
	if s.Expect != nil {
		switch s.Expect.State {
		case "success", "fail", "abort":
		default:
			return fmt.Errorf("flow[%d].expect: state must be success, fail or abort", index)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertStateEquals, AssertStateMissing:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for %s", index, a.Type)
		}
	case AssertProcessedCount:
		if a.Algorithm == "" {
			return fmt.Errorf("assertions[%d]: algorithm is required for processed_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for processed_count", index)
		}
	case AssertProcessOrder:
		if len(a.Algorithms) == 0 {
			return fmt.Errorf("assertions[%d]: algorithms list is required for process_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
