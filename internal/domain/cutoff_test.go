package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/pipeline/internal/calendar"
)

// checkCalendarCutoffs asserts that the first 50 sessions of the domain's
// calendar map to the expected local time of day, shifted by dayOffset
// calendar days.
func checkCalendarCutoffs(t *testing.T, d *EquityCalendarDomain, timeOfDay time.Duration, dayOffset int) {
	t.Helper()

	all, err := d.AllSessions()
	require.NoError(t, err)
	sessions := all[:50]

	actual, err := d.DataQueryCutoffForSessions(sessions)
	require.NoError(t, err)
	require.Len(t, actual, len(sessions))

	for i, s := range sessions {
		want := s.AddDate(0, 0, dayOffset).Add(timeOfDay)
		assert.Equal(t, want, actual[i], "session %s", s.Format(calendar.DateLayout))
	}
}

func TestEquityCalendarDomain_DefaultCutoffs(t *testing.T) {
	// 45 minutes before a 09:30 open.
	checkCalendarCutoffs(t, USEquities, 8*time.Hour+45*time.Minute, 0)
	checkCalendarCutoffs(t, CAEquities, 8*time.Hour+45*time.Minute, 0)
	// LSE opens at 08:00, so its default cutoff differs.
	checkCalendarCutoffs(t, GBEquities, 7*time.Hour+15*time.Minute, 0)
}

func TestEquityCalendarDomain_CustomOffset(t *testing.T) {
	checkCalendarCutoffs(t,
		NewEquityCalendarDomain(UnitedStates, "NYSE", -(2*time.Hour+30*time.Minute)),
		7*time.Hour, 0,
	)
}

func TestEquityCalendarDomain_OffsetCrossesMidnight(t *testing.T) {
	checkCalendarCutoffs(t,
		NewEquityCalendarDomain(UnitedStates, "NYSE", -10*time.Hour),
		23*time.Hour+30*time.Minute, -1,
	)
}

func TestEquityCalendarDomain_OffsetCrossesMultipleDays(t *testing.T) {
	checkCalendarCutoffs(t,
		NewEquityCalendarDomain(UnitedStates, "NYSE", -(24*6+10)*time.Hour),
		23*time.Hour+30*time.Minute, -7,
	)
}

func TestEquityCalendarDomain_SessionMismatch(t *testing.T) {
	for _, d := range []*EquityCalendarDomain{USEquities, CAEquities, GBEquities} {
		t.Run(d.CalendarName(), func(t *testing.T) {
			all, err := d.AllSessions()
			require.NoError(t, err)
			valid := all[:50]

			// Every calendar day in the span, including weekends and
			// holidays.
			requested := dateRange(valid[0], valid[len(valid)-1])

			cal, err := d.Calendar()
			require.NoError(t, err)
			var invalid []time.Time
			for _, s := range requested {
				if !cal.IsSession(s) {
					invalid = append(invalid, s)
				}
			}
			require.Greater(t, len(invalid), 1, "need multiple invalid sessions")

			_, err = d.DataQueryCutoffForSessions(requested)
			require.Error(t, err)
			assert.True(t, IsSessionMismatch(err))
			assert.ErrorContains(t, err, d.CalendarName())

			// Every invalid date must be enumerated, not just the first.
			for _, s := range invalid {
				assert.ErrorContains(t, err, s.Format(calendar.DateLayout))
			}
		})
	}
}

func TestEquitySessionDomain_Cutoffs(t *testing.T) {
	sessions := dateRange(date(2000, 1, 1), date(2000, 6, 1))

	tests := []struct {
		name      string
		opts      []SessionOption
		wantDelta time.Duration
	}{
		{
			name:      "morning cutoff",
			opts:      []SessionOption{WithCutoffTime(8*time.Hour + 45*time.Minute)},
			wantDelta: 8*time.Hour + 45*time.Minute,
		},
		{
			name:      "early cutoff",
			opts:      []SessionOption{WithCutoffTime(5 * time.Hour)},
			wantDelta: 5 * time.Hour,
		},
		{
			name: "tokyo wall clock",
			opts: []SessionOption{
				WithCutoffTimeAt(8*time.Hour+45*time.Minute, 9*time.Hour),
			},
			wantDelta: -15 * time.Minute,
		},
		{
			name: "previous day",
			opts: []SessionOption{
				WithCutoffTime(23*time.Hour + 30*time.Minute),
				WithCutoffDayOffset(-1),
			},
			wantDelta: -30 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewEquitySessionDomain(sessions, UnitedStates, tt.opts...)

			actual, err := d.DataQueryCutoffForSessions(sessions)
			require.NoError(t, err)
			require.Len(t, actual, len(sessions))
			for i, s := range sessions {
				assert.Equal(t, s.Add(tt.wantDelta), actual[i])
			}
		})
	}
}

func TestEquitySessionDomain_SessionMismatch(t *testing.T) {
	sessions := []time.Time{date(2000, 1, 3), date(2000, 1, 4)}
	d := NewEquitySessionDomain(sessions, UnitedStates)

	_, err := d.DataQueryCutoffForSessions(dateRange(date(2000, 1, 3), date(2000, 1, 6)))
	require.Error(t, err)
	assert.True(t, IsSessionMismatch(err))
	assert.ErrorContains(t, err, "2000-01-05")
	assert.ErrorContains(t, err, "2000-01-06")
}

func TestEquitySessionDomain_AllSessionsCopies(t *testing.T) {
	sessions := dateRange(date(2000, 1, 1), date(2000, 1, 10))
	d := NewEquitySessionDomain(sessions, UnitedStates)

	got, err := d.AllSessions()
	require.NoError(t, err)
	got[0] = date(1999, 1, 1)

	again, err := d.AllSessions()
	require.NoError(t, err)
	assert.Equal(t, date(2000, 1, 1), again[0])
}
