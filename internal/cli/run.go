package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/sheetbridge/internal/harness"
	"github.com/roach88/sheetbridge/internal/sheet"
	"github.com/roach88/sheetbridge/internal/store"
	"github.com/roach88/sheetbridge/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Metrics  bool
	AppIDs   string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Trace    []harness.TraceEvent `json:"trace"`
	Errors   []string             `json:"errors,omitempty"`
	Metrics  string               `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one sheet scenario and print its trace",
		Long: `Run a scripted sheet session and print every event it produced.

With --db, the scenario's document is created in (or resumed from) a SQLite
database and every commit attempt is appended to its commit log.

Window app ids default to UUIDv7 when --db is set and to app-1, app-2, ...
otherwise. Use --app-ids to pick either explicitly.

Exit codes:
  0 - Scenario passed
  1 - A step or expectation failed
  2 - Command error (unreadable scenario, database error)

Examples:
  sheetbridge run ./scenarios/close.yaml
  sheetbridge run --db ./sheets.db ./scenarios/close.yaml
  sheetbridge run --metrics --format json ./scenarios/close.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for persistence")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print store and sheet metrics after the run")
	cmd.Flags().StringVar(&opts.AppIDs, "app-ids", "", "window app id scheme: uuid or sequence (default uuid with --db, else sequence)")

	return cmd
}

func runScenarioFile(ctx context.Context, opts *RunOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.RootOptions, cmd.ErrOrStderr())
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario file not found: %s", path))
	}
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	ids, err := appIDGenerator(opts)
	if err != nil {
		return err
	}

	runOpts := harness.Options{IDs: ids}
	if opts.Database != "" {
		slog.Info("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts.Store = st
	}

	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		m := telemetry.New(reg)
		runOpts.BridgeObserver = m
		runOpts.SheetObserver = m
	}

	result, err := harness.RunWithOptions(ctx, scenario, runOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Trace:    result.Trace,
		Errors:   result.Errors,
	}
	if reg != nil {
		text, err := gatherText(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
		out.Metrics = text
	}

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	if f.JSON() {
		if result.Pass {
			err = f.Success(out)
		} else {
			err = f.Failure(CodeScenarioFailed, fmt.Sprintf("scenario %s failed", scenario.Name), out, nil)
		}
		if err != nil {
			return err
		}
	} else if err := writeRunText(cmd.OutOrStdout(), out); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func writeRunText(w io.Writer, out RunResult) error {
	trace, err := harness.MarshalTrace(out.Scenario, out.Trace)
	if err != nil {
		return err
	}
	if _, err := w.Write(trace); err != nil {
		return err
	}
	if out.Metrics != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, out.Metrics)
	}
	fmt.Fprintln(w)
	if out.Pass {
		fmt.Fprintf(w, "✓ %s passed\n", out.Scenario)
		return nil
	}
	fmt.Fprintf(w, "✗ %s failed\n", out.Scenario)
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	return nil
}

// appIDGenerator picks the window app id scheme. A nil generator leaves
// the harness on its sequence default.
func appIDGenerator(opts *RunOptions) (sheet.IDGenerator, error) {
	scheme := opts.AppIDs
	if scheme == "" && opts.Database != "" {
		scheme = "uuid"
	}
	switch scheme {
	case "", "sequence":
		return nil, nil
	case "uuid":
		return sheet.UUIDv7Generator{}, nil
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid --app-ids %q: must be uuid or sequence", opts.AppIDs))
	}
}

// gatherText renders every collected metric family in the Prometheus text
// exposition format.
func gatherText(g prometheus.Gatherer) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
