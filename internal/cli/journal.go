package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/konnekt/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	RunID    string
	Command  string
}

// JournalResult is the output of the journal command. Exactly one of the
// slices is set, depending on the flags.
type JournalResult struct {
	Runs        []store.RunRecord        `json:"runs,omitempty"`
	Commands    []store.CommandRecord    `json:"commands,omitempty"`
	Transitions []store.TransitionRecord `json:"transitions,omitempty"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect a command journal",
		Long: `List the runs recorded in a command journal, the commands of one run,
or the transitions of one command.

Example:
  konnekt journal --journal ./konnekt.db
  konnekt journal --journal ./konnekt.db --run 0190a5c2-...
  konnekt journal --journal ./konnekt.db --command 0190a5c3-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "journal", "", "path to SQLite command journal (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "list the commands of this run")
	cmd.Flags().StringVar(&opts.Command, "command", "", "list the transitions of this command")
	_ = cmd.MarkFlagRequired("journal")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Opening creates missing files; a journal that does not exist yet is an
	// error here.
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "journal not found", err, nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err, nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	var result JournalResult

	switch {
	case opts.Command != "":
		result.Transitions, err = st.Transitions(ctx, opts.Command)
	case opts.RunID != "":
		result.Commands, err = st.Commands(ctx, opts.RunID)
	default:
		result.Runs, err = st.Runs(ctx)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeJournal, "failed to read journal", err, nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	printJournal(formatter.Writer, opts, result)
	return nil
}

func printJournal(w io.Writer, opts *JournalOptions, r JournalResult) {
	switch {
	case opts.Command != "":
		fmt.Fprintf(w, "command %s: %d transition(s)\n", opts.Command, len(r.Transitions))
		for _, t := range r.Transitions {
			line := fmt.Sprintf("  [%d] %-8s %s", t.Seq, t.State, t.RecordedAt.Format("15:04:05.000"))
			if t.Reason != "" {
				line += " " + t.Reason
			}
			fmt.Fprintln(w, line)
		}
	case opts.RunID != "":
		fmt.Fprintf(w, "run %s: %d command(s)\n", opts.RunID, len(r.Commands))
		for _, c := range r.Commands {
			line := fmt.Sprintf("  [%d] %-8s %-16s %s  %s", c.FirstSeq, c.State, c.Kind, c.Name, c.ID)
			if c.Reason != "" {
				line += "\n      " + c.Reason
			}
			fmt.Fprintln(w, line)
		}
	default:
		fmt.Fprintf(w, "%d run(s)\n", len(r.Runs))
		for _, run := range r.Runs {
			fmt.Fprintf(w, "  %s  %-16s %s  %d command(s)\n",
				run.ID, run.Network, run.StartedAt.Format("2006-01-02 15:04:05"), run.Commands)
		}
	}
}
