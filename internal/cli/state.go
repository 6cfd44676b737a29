package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/konnekt/internal/state"
)

// StateOptions holds flags for the state command.
type StateOptions struct {
	*RootOptions
	Get string
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state <file>",
		Short: "Print a state file",
		Long: `Read a state file written by "konnekt run --state-out" and print it in
canonical order, or print a single value with --get.

Example:
  konnekt state ./demo.state
  konnekt state --get algorithms/out/state/process_count ./demo.state`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Get, "get", "", "print the value at this path (e.g. algorithms/out/state/last)")

	return cmd
}

func runState(opts *StateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := state.FromFile(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeState, "failed to read state", err, nil)
	}

	if opts.Get != "" {
		v, ok := lookupPath(s, opts.Get)
		if !ok {
			return formatter.fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no value at %s", opts.Get), nil, nil)
		}
		if formatter.Format == "json" {
			return formatter.Success(map[string]string{opts.Get: v})
		}
		fmt.Fprintln(formatter.Writer, v)
		return nil
	}

	if formatter.Format == "json" {
		return formatter.Success(s.Flatten())
	}
	if err := s.Encode(formatter.Writer); err != nil {
		return formatter.fail(ExitFailure, ErrCodeState, "failed to print state", err, nil)
	}
	return nil
}

// lookupPath resolves "a/b/key" through nested states.
func lookupPath(s *state.State, path string) (string, bool) {
	parts := strings.Split(path, "/")
	for _, name := range parts[:len(parts)-1] {
		child, ok := s.Lookup(name)
		if !ok {
			return "", false
		}
		s = child
	}
	return s.Get(parts[len(parts)-1])
}
