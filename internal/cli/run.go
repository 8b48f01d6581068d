package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantfold/pipeline/internal/calendar"
	"github.com/quantfold/pipeline/internal/engine"
	"github.com/quantfold/pipeline/internal/loader"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Pipeline string
	Start    string
	End      string

	// TokenGenerator overrides the engine's run-token generator, for
	// deterministic test output. Nil selects UUIDv7 tokens.
	TokenGenerator engine.TokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <decls-dir>",
		Short: "Run declared pipelines over a session range",
		Long: `Run pipelines declared in CUE files against a SQLite column store.

The declaration directory holds dataset and pipeline declarations; every
declared pipeline runs over the sessions in [--start, --end] unless
--pipeline selects one by name.

Example:
  pipeline run --db ./columns.db --start 2014-01-06 --end 2014-01-10 ./decls
  pipeline run --db ./columns.db --start 2014-01-06 --end 2014-01-10 --pipeline momentum ./decls`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipelines(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite column store (required)")
	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "run only the named pipeline")
	cmd.Flags().StringVar(&opts.Start, "start", "", "first output session (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "last output session (YYYY-MM-DD, required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

// runReport is the JSON payload for one pipeline run.
type runReport struct {
	Pipeline string                 `json:"pipeline"`
	RunToken string                 `json:"run_token"`
	Domain   string                 `json:"domain"`
	Sessions []string               `json:"sessions"`
	Cutoffs  []string               `json:"cutoffs"`
	Sids     []int64                `json:"sids"`
	Columns  map[string][][]float64 `json:"columns"`
}

func runPipelines(opts *RunOptions, declsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	start, end, err := parseDateRange(opts.Start, opts.End)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid date range", err)
	}

	slog.Info("loading declarations", "dir", declsDir)
	decls, err := LoadDeclarations(declsDir)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load declarations", err)
	}
	slog.Info("declarations loaded",
		"datasets", len(decls.DataSets), "pipelines", len(decls.Pipelines))

	selected := sortedKeys(decls.Pipelines)
	if opts.Pipeline != "" {
		if _, ok := decls.Pipelines[opts.Pipeline]; !ok {
			err := fmt.Errorf("pipeline %q not declared (have %v)", opts.Pipeline, selected)
			_ = formatter.Error(err.Error(), nil)
			return WrapExitError(ExitCommandError, "unknown pipeline", err)
		}
		selected = []string{opts.Pipeline}
	}

	slog.Info("opening column store", "path", opts.Database)
	store, err := loader.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open column store", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("closing column store", "error", closeErr)
		}
	}()

	engineOpts := []engine.Option{}
	if opts.TokenGenerator != nil {
		engineOpts = append(engineOpts, engine.WithTokenGenerator(opts.TokenGenerator))
	}
	eng := engine.New(store, engineOpts...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	for _, name := range selected {
		result, err := eng.Run(ctx, decls.Pipelines[name], start, end)
		if err != nil {
			_ = formatter.Error(fmt.Sprintf("pipeline %q: %v", name, err), nil)
			return WrapExitError(ExitFailure, fmt.Sprintf("pipeline %q failed", name), err)
		}
		if err := outputResult(formatter, name, result); err != nil {
			return err
		}
	}
	return nil
}

func outputResult(formatter *OutputFormatter, name string, result *engine.Result) error {
	if formatter.Format == "json" {
		report := runReport{
			Pipeline: name,
			RunToken: result.RunToken,
			Domain:   result.Domain.String(),
			Sessions: formatDates(result.Sessions),
			Cutoffs:  formatTimes(result.Cutoffs, cutoffLayout),
			Sids:     result.Sids,
			Columns:  result.Columns,
		}
		return formatter.JSON(report)
	}

	fmt.Fprintf(formatter.Writer, "pipeline %s: %s, %d sessions, %d assets (run %s)\n",
		name, result.Domain, len(result.Sessions), len(result.Sids), result.RunToken)
	for _, columnName := range sortedKeys(result.Columns) {
		fmt.Fprintf(formatter.Writer, "%s.%s\n", name, columnName)
		matrix := result.Columns[columnName]
		for i, session := range result.Sessions {
			fmt.Fprintf(formatter.Writer, "  %s %s\n",
				session.Format(calendar.DateLayout), formatRow(matrix[i]))
		}
	}
	return nil
}

func formatRow(row []float64) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = fmt.Sprintf("%10.4f", v)
	}
	return strings.Join(parts, " ")
}

func formatTimes(times []time.Time, layout string) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.Format(layout)
	}
	return out
}
