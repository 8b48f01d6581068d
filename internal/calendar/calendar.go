package calendar

import (
	"fmt"
	"time"
)

// Calendar is an immutable trading calendar: a named, ordered list of
// sessions plus the local open/close times shared by all of them.
//
// Thread-safety: Calendar is immutable after construction and safe for
// concurrent use.
type Calendar struct {
	name     string
	timezone string
	open     time.Duration // offset of market open from local midnight
	close    time.Duration // offset of market close from local midnight
	sessions []time.Time   // ascending, naive midnights
	index    map[int64]int // day key -> position in sessions
}

// newCalendar builds a Calendar from an already-materialized session list.
// The sessions slice must be ascending and is not copied; callers hand over
// ownership.
func newCalendar(name, timezone string, open, close time.Duration, sessions []time.Time) *Calendar {
	index := make(map[int64]int, len(sessions))
	for i, s := range sessions {
		index[dayKey(s)] = i
	}
	return &Calendar{
		name:     name,
		timezone: timezone,
		open:     open,
		close:    close,
		sessions: sessions,
		index:    index,
	}
}

// Name returns the calendar identifier, e.g. "NYSE".
func (c *Calendar) Name() string { return c.name }

// Timezone returns the IANA timezone name, e.g. "America/New_York".
func (c *Calendar) Timezone() string { return c.timezone }

// Sessions returns a copy of all sessions in ascending order.
func (c *Calendar) Sessions() []time.Time {
	out := make([]time.Time, len(c.sessions))
	copy(out, c.sessions)
	return out
}

// NumSessions returns the number of sessions the calendar covers.
func (c *Calendar) NumSessions() int { return len(c.sessions) }

// IsSession reports whether the given date (normalized to midnight) is a
// trading session on this calendar.
func (c *Calendar) IsSession(date time.Time) bool {
	_, ok := c.index[dayKey(Date(date))]
	return ok
}

// SessionsInRange returns the sessions in [start, end], inclusive on both
// ends. Start and end are normalized to midnights before comparison.
func (c *Calendar) SessionsInRange(start, end time.Time) []time.Time {
	start, end = Date(start), Date(end)
	var out []time.Time
	for _, s := range c.sessions {
		if s.Before(start) {
			continue
		}
		if s.After(end) {
			break
		}
		out = append(out, s)
	}
	return out
}

// SessionIndex returns the position of a session in the calendar's session
// list, or an error if the date is not a session.
func (c *Calendar) SessionIndex(date time.Time) (int, error) {
	i, ok := c.index[dayKey(Date(date))]
	if !ok {
		return 0, fmt.Errorf("%s is not a session on the %s calendar", date.Format(DateLayout), c.name)
	}
	return i, nil
}

// OpenTime returns the market-open offset from local midnight.
func (c *Calendar) OpenTime() time.Duration { return c.open }

// CloseTime returns the market-close offset from local midnight.
func (c *Calendar) CloseTime() time.Duration { return c.close }

// OpenOnSession returns the canonical market-open instant for a session as
// a local wall-clock timestamp (naive). The session is not validated;
// callers are expected to check membership first.
func (c *Calendar) OpenOnSession(session time.Time) time.Time {
	return Date(session).Add(c.open)
}

// DateLayout is the textual form used for session dates throughout the
// engine.
const DateLayout = "2006-01-02"

// Date normalizes a timestamp to its naive midnight.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dayKey maps a naive midnight to a stable integer key for membership
// lookups.
func dayKey(t time.Time) int64 {
	return t.Unix() / 86400
}
