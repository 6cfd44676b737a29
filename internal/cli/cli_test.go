package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoYAML = `name: demo
algorithms:
  - {name: fibers, kind: dataset}
  - {name: count, kind: line-count}
  - {name: scale, kind: scale, params: {factor: 2}}
  - {name: out, kind: sink}
connections:
  - {from: fibers.dataset, to: count.dataset}
  - {from: count.count, to: scale.in}
  - {from: scale.out, to: out.in}
datasets:
  - {path: fibers.txt, into: fibers}
`

// writeDemo writes the demo description and its dataset into a temp dir
// and returns the description path.
func writeDemo(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fibers.txt"), []byte("a\nb\nc\nd\n"), 0o644))
	path := filepath.Join(dir, "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_Demo(t *testing.T) {
	path := writeDemo(t, demoYAML)
	dir := filepath.Dir(path)
	journal := filepath.Join(dir, "journal.db")
	stateFile := filepath.Join(dir, "demo.state")

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		"--passes", "2", "--journal", journal, "--state-out", stateFile, path)
	require.NoError(t, err)

	assert.Contains(t, out, "network demo: 2 pass(es)")
	assert.Contains(t, out, "pass 1: processed 4 (fibers, count, scale, out)")
	assert.Contains(t, out, "pass 2: processed 0 (-), skipped 4")
	assert.Contains(t, out, "state written to "+stateFile)
	assert.Contains(t, out, "journal run ")

	value, err := execute(t, NewStateCommand(&RootOptions{Format: "text"}),
		"--get", "algorithms/out/state/last", stateFile)
	require.NoError(t, err)
	assert.Equal(t, "8\n", value)

	runs, err := execute(t, NewJournalCommand(&RootOptions{Format: "json"}), "--journal", journal)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   JournalResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(runs), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "demo", resp.Data.Runs[0].Network)
	// 4 algorithms + 3 connections + read + install + 2 passes + query.
	assert.Equal(t, 12, resp.Data.Runs[0].Commands)

	cmds, err := execute(t, NewJournalCommand(&RootOptions{Format: "text"}),
		"--journal", journal, "--run", resp.Data.Runs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, cmds, "12 command(s)")
	assert.Contains(t, cmds, "run-network")
}

func TestRun_JSON(t *testing.T) {
	path := writeDemo(t, demoYAML)

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Passes, 1)
	assert.Equal(t, []string{"fibers", "count", "scale", "out"}, resp.Data.Passes[0].Processed)
	assert.Equal(t, 3, resp.Data.Passes[0].Propagated)
}

func TestRun_WithMetrics(t *testing.T) {
	path := writeDemo(t, demoYAML)

	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		"--metrics-addr", "127.0.0.1:0", path)
	require.NoError(t, err)
}

func TestRun_BuildFailure(t *testing.T) {
	path := writeDemo(t, `name: mismatch
algorithms:
  - {name: c, kind: constant}
  - {name: l, kind: line-count}
connections:
  - {from: c.value, to: l.dataset}
`)

	out, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeBuild)
	assert.Contains(t, out, "INCOMPATIBLE_TYPES")
}

func TestRun_NegativePasses(t *testing.T) {
	path := writeDemo(t, demoYAML)

	_, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}), "--passes=-1", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_Valid(t *testing.T) {
	path := writeDemo(t, demoYAML)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "--build", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ network demo is valid (4 algorithms, 3 connections, 1 datasets)")
}

func TestValidate_SemanticErrors(t *testing.T) {
	path := writeDemo(t, `name: broken
algorithms:
  - {name: a, kind: warp}
connections:
  - {from: a.out, to: ghost.in}
`)

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)
	assert.Equal(t, "E203", resp.Data.Errors[0].Code)
	assert.Equal(t, "E205", resp.Data.Errors[1].Code)
}

func TestValidate_SchemaError(t *testing.T) {
	path := writeDemo(t, "name: x\nsurprise: true\n")

	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeSchema)
	assert.Contains(t, out, "Error ["+ErrCodeSchema+"]")
}

func TestValidate_NotFound(t *testing.T) {
	out, err := execute(t, NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/network.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestJournal_Missing(t *testing.T) {
	_, err := execute(t, NewJournalCommand(&RootOptions{Format: "text"}),
		"--journal", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestState_PrintsCanonical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.state")
	require.NoError(t, os.WriteFile(path, []byte("b/k=2\na=1\n"), 0o644))

	out, err := execute(t, NewStateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Equal(t, "a=1\nb/k=2\n", out)

	_, err = execute(t, NewStateCommand(&RootOptions{Format: "text"}), "--get", "b/missing", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRoot_InvalidFormat(t *testing.T) {
	root := NewRootCommand()
	path := writeDemo(t, demoYAML)

	_, err := execute(t, root, "--format", "xml", "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRoot_Subcommands(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "validate", "journal", "state", "test"}, names)
}

// writeScenario writes a scenario over the demo network into its own
// directory and returns that directory.
func writeScenario(t *testing.T, name, last string) string {
	t.Helper()
	network := writeDemo(t, demoYAML)
	dir := t.TempDir()
	content := `name: ` + name + `
description: "demo network counts four lines and doubles them"
network: ` + network + `
flow:
  - run: 2
assertions:
  - type: state_equals
    path: algorithms/out/state/last
    value: "` + last + `"
  - type: processed_count
    algorithm: out
    count: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644))
	return dir
}

func TestTest_UpdateThenCompare(t *testing.T) {
	dir := writeScenario(t, "demo", "8")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ demo (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "demo.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), "trace/000/processed=fibers,count,scale,out\n")
	assert.Contains(t, string(golden), "trace/001/command=run demo\n")

	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ demo\n")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := writeScenario(t, "demo", "8")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "demo.golden"), []byte("stale\n"), 0o644))

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_FailedAssertionJSON(t *testing.T) {
	dir := writeScenario(t, "wrong", "9")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string   `json:"status"`
		Error  CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "1 scenario(s) failed")
}

func TestTest_FilterAndEmpty(t *testing.T) {
	dir := writeScenario(t, "demo", "8")

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "--filter", "other*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
