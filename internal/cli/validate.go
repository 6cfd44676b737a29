package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/konnekt/internal/netdef"
	"github.com/roach88/konnekt/internal/network"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Build bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                     `json:"valid"`
	Network     string                   `json:"network"`
	Algorithms  int                      `json:"algorithms"`
	Connections int                      `json:"connections"`
	Datasets    int                      `json:"datasets"`
	Errors      []netdef.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <network.yaml>",
		Short: "Validate a network description without running it",
		Long: `Validate a network description: YAML syntax, schema, algorithm kinds
and endpoint references.

With --build the network is also built on a scratch queue, which checks
connector names, connector types, cycles and dataset files.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Build, "build", false, "also build the network to check connectors and datasets")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	def, err := netdef.Load(path)
	if err != nil {
		return loadFailure(formatter, err)
	}

	builder := netdef.NewBuilder()
	result := ValidationResult{
		Network:     def.Name,
		Algorithms:  len(def.Algorithms),
		Connections: len(def.Connections),
		Datasets:    len(def.Datasets),
		Errors:      def.Validate(builder.Kinds),
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}

	if opts.Build {
		formatter.VerboseLog("building %s on a scratch queue", def.Name)
		if err := scratchBuild(cmd.Context(), def, builder); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeBuild, "failed to build network", err, nil)
		}
	}

	result.Valid = true
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ network %s is valid (%d algorithms, %d connections, %d datasets)\n",
		result.Network, result.Algorithms, result.Connections, result.Datasets)
	return nil
}

func scratchBuild(parent context.Context, def *netdef.Definition, builder *netdef.Builder) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	n := network.New(network.WithName(def.Name))
	n.Start()
	defer n.Stop(false)
	return builder.Build(ctx, def, n)
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		_ = formatter.Success(result)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ network %s has %d error(s):\n", result.Network, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %d validation error(s)", ErrCodeInvalid, len(result.Errors)))
}

// loadFailure maps a netdef.Load error to an error code.
func loadFailure(formatter *OutputFormatter, err error) error {
	var schemaErr *netdef.SchemaError
	var parseErr *netdef.ParseError

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "network description not found", err, nil)
	case errors.As(err, &schemaErr):
		return formatter.fail(ExitCommandError, ErrCodeSchema, "network description does not match schema", nil, schemaErr.Problems)
	case errors.As(err, &parseErr):
		return formatter.fail(ExitCommandError, ErrCodeParse, "network description is not valid YAML", parseErr, nil)
	default:
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "failed to load network description", err, nil)
	}
}
