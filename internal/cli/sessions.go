package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantfold/pipeline/internal/calendar"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Start string
	End   string
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions <calendar>",
		Short: "List trading sessions for a calendar",
		Long: `List the trading sessions of a named calendar, optionally restricted
to a date range.

Example:
  pipeline sessions NYSE
  pipeline sessions LSE --start 2014-01-01 --end 2014-01-31`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.End, "end", "", "last date to include (YYYY-MM-DD)")

	return cmd
}

// sessionsReport is the JSON payload of the sessions command.
type sessionsReport struct {
	Calendar string   `json:"calendar"`
	Count    int      `json:"count"`
	Sessions []string `json:"sessions"`
}

func runSessions(opts *SessionsOptions, calendarName string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cal, err := calendar.Get(calendarName)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown calendar", err)
	}

	sessions := cal.Sessions()
	sessions, err = clipSessions(sessions, opts.Start, opts.End)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid date range", err)
	}

	if formatter.Format == "json" {
		report := sessionsReport{
			Calendar: cal.Name(),
			Count:    len(sessions),
			Sessions: formatDates(sessions),
		}
		return formatter.JSON(report)
	}

	for _, s := range sessions {
		fmt.Fprintln(formatter.Writer, s.Format(calendar.DateLayout))
	}
	fmt.Fprintf(formatter.Writer, "%d sessions on %s\n", len(sessions), cal.Name())
	return nil
}

// clipSessions restricts sessions to the optional [start, end] date range.
func clipSessions(sessions []time.Time, startStr, endStr string) ([]time.Time, error) {
	start, end, err := parseDateRange(startStr, endStr)
	if err != nil {
		return nil, err
	}

	var out []time.Time
	for _, s := range sessions {
		if !start.IsZero() && s.Before(start) {
			continue
		}
		if !end.IsZero() && s.After(end) {
			break
		}
		out = append(out, s)
	}
	return out, nil
}

// parseDateRange parses optional start and end dates, checking ordering
// when both are present.
func parseDateRange(startStr, endStr string) (start, end time.Time, err error) {
	if startStr != "" {
		start, err = time.Parse(calendar.DateLayout, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", startStr, err)
		}
	}
	if endStr != "" {
		end, err = time.Parse(calendar.DateLayout, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", endStr, err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s precedes start %s", endStr, startStr)
	}
	return start, end, nil
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(calendar.DateLayout)
	}
	return out
}
