package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantfold/pipeline/internal/calendar"
	"github.com/quantfold/pipeline/internal/domain"
)

// CutoffsOptions holds flags for the cutoffs command.
type CutoffsOptions struct {
	*RootOptions
	Country string
	Offset  time.Duration
	Start   string
	End     string
}

// NewCutoffsCommand creates the cutoffs command.
func NewCutoffsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CutoffsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cutoffs <calendar>",
		Short: "Show data-query cutoffs for a calendar's sessions",
		Long: `Show the data-query cutoff for each session of a named calendar.

The cutoff is the moment up to which raw data may be used when computing a
session's values. It defaults to 45 minutes before market open and moves
with --offset, which may roll the cutoff back across calendar days.

Example:
  pipeline cutoffs NYSE --start 2014-01-01 --end 2014-01-31
  pipeline cutoffs LSE --country GB --offset -10h`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCutoffs(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Country, "country", "US", "ISO 3166 country code for the domain")
	cmd.Flags().DurationVar(&opts.Offset, "offset", domain.DefaultDataQueryOffset,
		"offset of the cutoff from market open (must not be positive)")
	cmd.Flags().StringVar(&opts.Start, "start", "", "first session to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.End, "end", "", "last session to include (YYYY-MM-DD)")

	return cmd
}

// cutoffsReport is the JSON payload of the cutoffs command.
type cutoffsReport struct {
	Domain  string       `json:"domain"`
	Offset  string       `json:"offset"`
	Cutoffs []cutoffPair `json:"cutoffs"`
}

type cutoffPair struct {
	Session string `json:"session"`
	Cutoff  string `json:"cutoff"`
}

const cutoffLayout = "2006-01-02 15:04"

func runCutoffs(opts *CutoffsOptions, calendarName string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Offset > 0 {
		err := fmt.Errorf("offset %s is positive: cutoffs never fall after market open", opts.Offset)
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid offset", err)
	}

	d := domain.NewEquityCalendarDomain(domain.CountryCode(opts.Country), calendarName, opts.Offset)

	all, err := d.AllSessions()
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown calendar", err)
	}
	sessions, err := clipSessions(all, opts.Start, opts.End)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid date range", err)
	}

	cutoffs, err := d.DataQueryCutoffForSessions(sessions)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitFailure, "resolve cutoffs", err)
	}

	if formatter.Format == "json" {
		report := cutoffsReport{
			Domain: d.String(),
			Offset: opts.Offset.String(),
		}
		for i, s := range sessions {
			report.Cutoffs = append(report.Cutoffs, cutoffPair{
				Session: s.Format(calendar.DateLayout),
				Cutoff:  cutoffs[i].Format(cutoffLayout),
			})
		}
		return formatter.JSON(report)
	}

	fmt.Fprintf(formatter.Writer, "%s, offset %s\n", d.String(), opts.Offset)
	for i, s := range sessions {
		fmt.Fprintf(formatter.Writer, "%s  %s\n",
			s.Format(calendar.DateLayout), cutoffs[i].Format(cutoffLayout))
	}
	return nil
}
