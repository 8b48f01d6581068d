package domain

import (
	"sort"
	"time"
)

// CountryCode is an ISO 3166 alpha-2 country code.
type CountryCode string

// Country codes for the markets the engine ships calendars for.
const (
	UnitedStates  CountryCode = "US"
	Canada        CountryCode = "CA"
	UnitedKingdom CountryCode = "GB"
	Japan         CountryCode = "JP"
	Australia     CountryCode = "AU"
)

// Domain identifies the market/calendar context a computation runs under.
//
// Domain is a closed sum: the only implementations are Generic,
// *EquityCalendarDomain, and *EquitySessionDomain. Consumers switch
// exhaustively over these three; the sealed method prevents outside
// implementations from widening the set.
type Domain interface {
	// IsGeneric is true only for the Generic sentinel.
	IsGeneric() bool

	// CountryCode returns the domain's country, or "" for Generic.
	CountryCode() CountryCode

	// AllSessions returns the domain's ordered session dates. Fails with
	// an unsupported-operation error for Generic.
	AllSessions() ([]time.Time, error)

	// DataQueryCutoffForSessions returns, for each input session, the
	// wall-clock instant at which that session's data becomes queryable.
	// The result has the same length and order as the input. Every input
	// must be a member of AllSessions; violations fail with a validation
	// error listing every offending session. Fails with an
	// unsupported-operation error for Generic.
	DataQueryCutoffForSessions(sessions []time.Time) ([]time.Time, error)

	// String returns the canonical display form, e.g.
	// "EquityCalendarDomain('US', 'NYSE')". Domains are totally ordered
	// by this form (with Key as a tiebreaker) for deterministic output.
	String() string

	// Key returns the full identity key: two domains are equal iff their
	// keys are equal. Used by memoization tables.
	Key() string

	// Equal reports value equality with another domain.
	Equal(other Domain) bool

	sealedDomain()
}

// Generic is the unique "no domain yet" sentinel. It imposes no constraint
// during inference and cannot answer calendar-timing questions.
var Generic Domain = genericDomain{}

type genericDomain struct{}

func (genericDomain) IsGeneric() bool          { return true }
func (genericDomain) CountryCode() CountryCode { return "" }

func (genericDomain) AllSessions() ([]time.Time, error) {
	return nil, NewUnsupportedError("AllSessions")
}

func (genericDomain) DataQueryCutoffForSessions(sessions []time.Time) ([]time.Time, error) {
	return nil, NewUnsupportedError("DataQueryCutoffForSessions")
}

func (genericDomain) String() string { return "GENERIC" }
func (genericDomain) Key() string    { return "GENERIC" }

func (genericDomain) Equal(other Domain) bool {
	return other != nil && other.IsGeneric()
}

func (genericDomain) sealedDomain() {}

// Sort orders domains in place by canonical string form, with the full
// identity key as tiebreaker. The order is deterministic and independent of
// insertion order or object identity.
func Sort(domains []Domain) {
	sort.Slice(domains, func(i, j int) bool {
		si, sj := domains[i].String(), domains[j].String()
		if si != sj {
			return si < sj
		}
		return domains[i].Key() < domains[j].Key()
	})
}

const day = 24 * time.Hour

// splitDays decomposes an arbitrary-magnitude signed offset from midnight
// into a whole-day shift and a residual time of day in [0, 24h). Offsets
// more negative than -24h shift back multiple days rather than wrapping.
func splitDays(offset time.Duration) (dayShift int, timeOfDay time.Duration) {
	shift := offset / day
	rem := offset % day
	if rem < 0 {
		shift--
		rem += day
	}
	return int(shift), rem
}

// invalidSessions checks the requested sessions against a membership
// predicate and returns every invalid one.
func invalidSessions(requested []time.Time, isMember func(time.Time) bool) []time.Time {
	var bad []time.Time
	for _, s := range requested {
		if !isMember(s) {
			bad = append(bad, s)
		}
	}
	return bad
}
