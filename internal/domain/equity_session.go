package domain

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/quantfold/pipeline/internal/calendar"
)

// EquitySessionDomain is a concrete domain carrying an explicit session
// list instead of a named calendar. It exists for data providers with
// bespoke schedules and for tests that need full control over sessions.
//
// The data-query cutoff for a session is
//
//	session + dayOffset days + (cutoffTime - utcOffset)
//
// where cutoffTime is a wall-clock time of day and utcOffset is the UTC
// offset that wall clock is expressed in (zero means the cutoff time is
// already UTC). A cutoff of 08:45 at UTC+9 therefore lands 15 minutes
// before the naive session midnight.
//
// EquitySessionDomain is an immutable value object; the session slice is
// copied on construction.
type EquitySessionDomain struct {
	sessions   []time.Time
	index      map[int64]bool
	country    CountryCode
	cutoffTime time.Duration
	utcOffset  time.Duration
	dayOffset  int
}

// SessionOption configures an EquitySessionDomain.
type SessionOption func(*EquitySessionDomain)

// WithCutoffTime sets the cutoff wall-clock time of day, interpreted as
// UTC. Default: midnight.
func WithCutoffTime(timeOfDay time.Duration) SessionOption {
	return func(d *EquitySessionDomain) {
		d.cutoffTime = timeOfDay
		d.utcOffset = 0
	}
}

// WithCutoffTimeAt sets the cutoff wall-clock time of day together with
// the UTC offset it is expressed in.
func WithCutoffTimeAt(timeOfDay, utcOffset time.Duration) SessionOption {
	return func(d *EquitySessionDomain) {
		d.cutoffTime = timeOfDay
		d.utcOffset = utcOffset
	}
}

// WithCutoffDayOffset sets a whole-day shift applied before the cutoff
// time, e.g. -1 with a 23:30 cutoff places the cutoff half an hour before
// the session's midnight.
func WithCutoffDayOffset(days int) SessionOption {
	return func(d *EquitySessionDomain) {
		d.dayOffset = days
	}
}

// NewEquitySessionDomain creates a session-list domain. Session dates are
// normalized to naive midnights and must be in ascending order.
func NewEquitySessionDomain(sessions []time.Time, country CountryCode, opts ...SessionOption) *EquitySessionDomain {
	normalized := make([]time.Time, len(sessions))
	index := make(map[int64]bool, len(sessions))
	for i, s := range sessions {
		normalized[i] = calendar.Date(s)
		index[normalized[i].Unix()/86400] = true
	}
	d := &EquitySessionDomain{
		sessions: normalized,
		index:    index,
		country:  country,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsGeneric implements Domain.
func (d *EquitySessionDomain) IsGeneric() bool { return false }

// CountryCode implements Domain.
func (d *EquitySessionDomain) CountryCode() CountryCode { return d.country }

// AllSessions implements Domain, returning a copy of the explicit session
// list.
func (d *EquitySessionDomain) AllSessions() ([]time.Time, error) {
	out := make([]time.Time, len(d.sessions))
	copy(out, d.sessions)
	return out, nil
}

func (d *EquitySessionDomain) isSession(t time.Time) bool {
	return d.index[calendar.Date(t).Unix()/86400]
}

// DataQueryCutoffForSessions implements Domain.
func (d *EquitySessionDomain) DataQueryCutoffForSessions(sessions []time.Time) ([]time.Time, error) {
	if bad := invalidSessions(sessions, d.isSession); len(bad) > 0 {
		return nil, NewSessionMismatchError(d.String(), bad)
	}
	delta := d.cutoffTime - d.utcOffset
	out := make([]time.Time, len(sessions))
	for i, s := range sessions {
		out[i] = calendar.Date(s).AddDate(0, 0, d.dayOffset).Add(delta)
	}
	return out, nil
}

// String implements Domain.
func (d *EquitySessionDomain) String() string {
	return fmt.Sprintf("EquitySessionDomain('%s', %d sessions)", d.country, len(d.sessions))
}

// Key implements Domain. The session list enters the key as a digest over
// every session date, so any two domains with different session sets get
// different keys and never share a memoization slot.
func (d *EquitySessionDomain) Key() string {
	h := fnv.New64a()
	var buf [8]byte
	for _, s := range d.sessions {
		binary.BigEndian.PutUint64(buf[:], uint64(s.Unix()))
		h.Write(buf[:])
	}
	return fmt.Sprintf(
		"EquitySessionDomain('%s', n=%d, sessions=%016x, cutoff=%s, utc=%s, days=%d)",
		d.country, len(d.sessions), h.Sum64(), d.cutoffTime, d.utcOffset, d.dayOffset,
	)
}

// Equal implements Domain.
func (d *EquitySessionDomain) Equal(other Domain) bool {
	o, ok := other.(*EquitySessionDomain)
	if !ok {
		return false
	}
	if d.country != o.country ||
		d.cutoffTime != o.cutoffTime ||
		d.utcOffset != o.utcOffset ||
		d.dayOffset != o.dayOffset ||
		len(d.sessions) != len(o.sessions) {
		return false
	}
	for i := range d.sessions {
		if !d.sessions[i].Equal(o.sessions[i]) {
			return false
		}
	}
	return true
}

func (d *EquitySessionDomain) sealedDomain() {}
