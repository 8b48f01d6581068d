package domain

import (
	"fmt"
	"time"

	"github.com/quantfold/pipeline/internal/calendar"
)

// DefaultDataQueryOffset is the default offset of the data-query cutoff
// from market open. 45 minutes before open lands at 08:45 local for a
// 09:30 calendar (NYSE, TSX) and 07:15 for an 08:00 calendar (LSE), so the
// effective default cutoff is calendar-specific.
const DefaultDataQueryOffset = -45 * time.Minute

// EquityCalendarDomain is a concrete domain bound to a country and a named
// trading calendar. The calendar is resolved lazily from the default
// registry, so domains can be declared before calendars are registered.
//
// EquityCalendarDomain is an immutable value object.
type EquityCalendarDomain struct {
	country      CountryCode
	calendarName string
	offset       time.Duration
}

// NewEquityCalendarDomain creates a calendar-bound domain.
//
// offset is the signed duration between the calendar's market open and the
// data-query cutoff, and must not be positive: data for a session is never
// available after that session's open. Pass DefaultDataQueryOffset unless
// the data provider has its own timing rules. Panics on a positive offset;
// domains are declared statically and a bad offset is a programming error.
func NewEquityCalendarDomain(country CountryCode, calendarName string, offset time.Duration) *EquityCalendarDomain {
	if offset > 0 {
		panic(fmt.Sprintf("domain: data query offset must not be positive, got %s", offset))
	}
	return &EquityCalendarDomain{
		country:      country,
		calendarName: calendarName,
		offset:       offset,
	}
}

// IsGeneric implements Domain.
func (d *EquityCalendarDomain) IsGeneric() bool { return false }

// CountryCode implements Domain.
func (d *EquityCalendarDomain) CountryCode() CountryCode { return d.country }

// CalendarName returns the name of the attached trading calendar.
func (d *EquityCalendarDomain) CalendarName() string { return d.calendarName }

// DataQueryOffset returns the configured offset from market open.
func (d *EquityCalendarDomain) DataQueryOffset() time.Duration { return d.offset }

// Calendar resolves the attached calendar from the default registry.
func (d *EquityCalendarDomain) Calendar() (*calendar.Calendar, error) {
	return calendar.Get(d.calendarName)
}

// AllSessions implements Domain by delegating to the attached calendar.
func (d *EquityCalendarDomain) AllSessions() ([]time.Time, error) {
	cal, err := d.Calendar()
	if err != nil {
		return nil, err
	}
	return cal.Sessions(), nil
}

// DataQueryCutoffForSessions implements Domain.
//
// The cutoff for a session is the calendar's market open for that session
// plus the configured (non-positive) offset. The open-time-plus-offset sum
// is decomposed into a whole-day shift and a residual time of day, so an
// offset that crosses local midnight rolls the cutoff back one or more
// calendar days instead of wrapping within the session date.
func (d *EquityCalendarDomain) DataQueryCutoffForSessions(sessions []time.Time) ([]time.Time, error) {
	cal, err := d.Calendar()
	if err != nil {
		return nil, err
	}
	if bad := invalidSessions(sessions, cal.IsSession); len(bad) > 0 {
		return nil, NewSessionMismatchError(cal.Name(), bad)
	}

	dayShift, timeOfDay := splitDays(cal.OpenTime() + d.offset)

	out := make([]time.Time, len(sessions))
	for i, s := range sessions {
		out[i] = calendar.Date(s).AddDate(0, 0, dayShift).Add(timeOfDay)
	}
	return out, nil
}

// String implements Domain.
func (d *EquityCalendarDomain) String() string {
	return fmt.Sprintf("EquityCalendarDomain('%s', '%s')", d.country, d.calendarName)
}

// Key implements Domain. Unlike String, the key includes the data-query
// offset so that domains differing only in timing stay distinct in
// memoization tables.
func (d *EquityCalendarDomain) Key() string {
	return fmt.Sprintf("EquityCalendarDomain('%s', '%s', offset=%s)", d.country, d.calendarName, d.offset)
}

// Equal implements Domain.
func (d *EquityCalendarDomain) Equal(other Domain) bool {
	o, ok := other.(*EquityCalendarDomain)
	return ok && d.country == o.country && d.calendarName == o.calendarName && d.offset == o.offset
}

func (d *EquityCalendarDomain) sealedDomain() {}

// Built-in domains for the calendars the engine ships with.
var (
	USEquities = NewEquityCalendarDomain(UnitedStates, "NYSE", DefaultDataQueryOffset)
	CAEquities = NewEquityCalendarDomain(Canada, "TSX", DefaultDataQueryOffset)
	GBEquities = NewEquityCalendarDomain(UnitedKingdom, "LSE", DefaultDataQueryOffset)
	JPEquities = NewEquityCalendarDomain(Japan, "TSE", DefaultDataQueryOffset)
	AUEquities = NewEquityCalendarDomain(Australia, "ASX", DefaultDataQueryOffset)
)
