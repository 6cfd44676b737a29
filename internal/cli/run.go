package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/konnekt/internal/command"
	"github.com/roach88/konnekt/internal/logging"
	"github.com/roach88/konnekt/internal/metrics"
	"github.com/roach88/konnekt/internal/netdef"
	"github.com/roach88/konnekt/internal/network"
	"github.com/roach88/konnekt/internal/state"
	"github.com/roach88/konnekt/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal     string
	MetricsAddr string
	Passes      int
	Interval    time.Duration
	StateOut    string
	Graceful    bool
}

// PassResult summarizes one run pass.
type PassResult struct {
	Pass       int      `json:"pass"`
	Processed  []string `json:"processed"`
	Skipped    []string `json:"skipped"`
	Propagated int      `json:"propagated"`
	ElapsedMS  float64  `json:"elapsed_ms"`
}

// RunResult is the output of the run command.
type RunResult struct {
	Network     string       `json:"network"`
	RunID       string       `json:"run_id,omitempty"`
	Passes      []PassResult `json:"passes"`
	StateFile   string       `json:"state_file,omitempty"`
	Interrupted bool         `json:"interrupted,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <network.yaml>",
		Short: "Build a network and execute run passes",
		Long: `Build the network described by a YAML file, load its datasets, and
execute run passes through the network's command queue.

With --passes 0 the network runs a pass every --interval until interrupted.

Example:
  konnekt run ./demo.yaml
  konnekt run --passes 3 --journal ./konnekt.db --state-out ./demo.state ./demo.yaml
  konnekt run --passes 0 --interval 5s --metrics-addr :9090 ./demo.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetwork(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite command journal (optional)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (optional)")
	cmd.Flags().IntVar(&opts.Passes, "passes", 1, "number of run passes; 0 runs until interrupted")
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "delay between passes when --passes is 0")
	cmd.Flags().StringVar(&opts.StateOut, "state-out", "", "write the final network state to this file")
	cmd.Flags().BoolVar(&opts.Graceful, "graceful", true, "drain queued commands on shutdown instead of aborting them")

	return cmd
}

// stageError carries the exit code and error code of a failed step.
type stageError struct {
	exit    int
	code    string
	message string
	err     error
}

func (e *stageError) Error() string { return e.message + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func runNetwork(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := logging.New("run")

	if opts.Passes < 0 {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "--passes must be >= 0", nil, nil)
	}

	def, err := netdef.Load(path)
	if err != nil {
		return loadFailure(formatter, err)
	}
	builder := netdef.NewBuilder()
	if errs := def.Validate(builder.Kinds); len(errs) > 0 {
		return formatter.fail(ExitCommandError, ErrCodeInvalid, "invalid network description", nil, errs)
	}
	formatter.VerboseLog("loaded network %s (%d algorithms)", def.Name, len(def.Algorithms))

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	observers := command.MultiObserver{&command.LogObserver{Logger: logging.New("command")}}

	var m *metrics.Metrics
	if opts.MetricsAddr != "" {
		m = metrics.New()
		observers = append(observers, m)
	}

	result := &RunResult{Network: def.Name, Passes: []PassResult{}}

	var journal *store.Journal
	if opts.Journal != "" {
		st, err := store.Open(opts.Journal)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err, nil)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		journal, err = st.NewJournal(ctx, def.Name)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeJournal, "failed to start journal run", err, nil)
		}
		observers = append(observers, journal)
		result.RunID = journal.RunID()
	}

	builder.Options = []command.Option{command.WithObserver(observers)}

	n := network.New(
		network.WithName(def.Name),
		network.WithLogger(logging.New("network")),
		network.WithQueueOptions(command.WithContext(ctx)),
	)
	n.Start()

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	if m != nil {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           metricsMux(m),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", opts.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-done:
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer close(done)
		return pipeline(gctx, opts, def, builder, n, observers, result)
	})

	err = g.Wait()
	n.Stop(opts.Graceful)

	if journal != nil {
		if jerr := journal.Err(); jerr != nil {
			logger.Warn("journal incomplete", "error", jerr)
		}
	}

	if err != nil {
		var se *stageError
		if errors.As(err, &se) {
			return formatter.fail(se.exit, se.code, se.message, se.err, nil)
		}
		return formatter.fail(ExitFailure, ErrCodeGeneric, "run failed", err, nil)
	}

	logger.Info("network stopped", "network", def.Name, "passes", len(result.Passes))
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	printRunResult(formatter.Writer, result)
	return nil
}

// pipeline builds the network, executes the passes and writes the final
// state. An interrupt between or during passes ends the loop without error.
func pipeline(ctx context.Context, opts *RunOptions, def *netdef.Definition, builder *netdef.Builder,
	n *network.Network, observers command.Observer, result *RunResult) error {
	if err := builder.Build(ctx, def, n); err != nil {
		if ctx.Err() != nil {
			result.Interrupted = true
			return nil
		}
		return &stageError{exit: ExitCommandError, code: ErrCodeBuild, message: "failed to build network", err: err}
	}

	for pass := 1; opts.Passes == 0 || pass <= opts.Passes; pass++ {
		c := n.Commit(n.RunNetworkCommand(command.WithObserver(observers)))
		if err := c.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				result.Interrupted = true
				break
			}
			return &stageError{exit: ExitFailure, code: ErrCodeRun, message: fmt.Sprintf("run pass %d failed", pass), err: err}
		}
		if report, ok := c.Result().(*network.RunReport); ok {
			result.Passes = append(result.Passes, passResult(report))
		}

		if opts.Passes == 0 {
			select {
			case <-ctx.Done():
				result.Interrupted = true
			case <-time.After(opts.Interval):
				continue
			}
			break
		}
	}

	if opts.StateOut == "" {
		return nil
	}

	// The final snapshot is taken even after an interrupt.
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	q := n.Commit(n.QueryStateCommand(command.WithObserver(observers)))
	if err := q.Wait(waitCtx); err != nil {
		return &stageError{exit: ExitFailure, code: ErrCodeState, message: "failed to snapshot network", err: err}
	}
	s, _ := q.Result().(*state.State)
	if err := s.ToFile(opts.StateOut); err != nil {
		return &stageError{exit: ExitCommandError, code: ErrCodeWriteFailed, message: "failed to write state", err: err}
	}
	result.StateFile = opts.StateOut
	return nil
}

func passResult(r *network.RunReport) PassResult {
	return PassResult{
		Pass:       r.Pass,
		Processed:  append([]string{}, r.Processed...),
		Skipped:    append([]string{}, r.Skipped...),
		Propagated: r.Propagated,
		ElapsedMS:  float64(r.Elapsed.Microseconds()) / 1000,
	}
}

func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", m.Handler())
	return mux
}

func printRunResult(w io.Writer, r *RunResult) {
	fmt.Fprintf(w, "network %s: %d pass(es)\n", r.Network, len(r.Passes))
	for _, p := range r.Passes {
		processed := "-"
		if len(p.Processed) > 0 {
			processed = strings.Join(p.Processed, ", ")
		}
		fmt.Fprintf(w, "  pass %d: processed %d (%s), skipped %d, propagated %d, %.3fms\n",
			p.Pass, len(p.Processed), processed, len(p.Skipped), p.Propagated, p.ElapsedMS)
	}
	if r.Interrupted {
		fmt.Fprintln(w, "interrupted")
	}
	if r.StateFile != "" {
		fmt.Fprintf(w, "state written to %s\n", r.StateFile)
	}
	if r.RunID != "" {
		fmt.Fprintf(w, "journal run %s\n", r.RunID)
	}
}
