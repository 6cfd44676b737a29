// Package harness provides conformance testing for processing networks.
//
// The harness builds a network from a description file, drives it through
// a flow of graph commands and validates the resulting trace and state
// snapshot.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	network: networks/arith.yaml
//	flow:
//	  - run: 2
//	  - invalidate: b
//	  - remove: a
//	  - invalidate: a
//	    expect:
//	      state: fail
//	      reason: UNKNOWN_ALGORITHM
//	assertions:
//	  - type: state_equals
//	    path: algorithms/out/state/last
//	    value: "14"
//	  - type: processed_count
//	    algorithm: out
//	    count: 2
//
// A step without an expect clause must succeed.
//
// # Assertion Types
//
//   - state_equals: the snapshot holds value at path
//   - state_missing: the snapshot holds nothing at path
//   - processed_count: a run pass processed the algorithm exactly N times
//   - process_order: algorithms were first processed in the given order
//
// # Deterministic Testing
//
// Each scenario runs on its own network and queue, and the trace leaves out
// command ids and timings, so identical scenarios produce identical golden
// files.
package harness
