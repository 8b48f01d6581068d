// Package domain models the market/calendar context a computation runs
// under.
//
// Domain is a closed sum of three variants:
//
//   - Generic: the unique "no domain yet" sentinel. Generic cannot answer
//     calendar-timing questions; it exists so that datasets and terms can be
//     declared once and bound to a concrete market later.
//   - EquityCalendarDomain: a country plus a trading calendar, with a signed
//     data-query offset measured from the calendar's market open.
//   - EquitySessionDomain: an explicit session list plus a fixed cutoff
//     time-of-day and day offset, for tests and ad-hoc session sets.
//
// The package also provides Infer, which resolves the single concrete
// domain governing an arbitrary mix of generic and domain-bound terms, and
// reports genuine conflicts as AmbiguousDomainError.
//
// DATA QUERY CUTOFFS:
//
// A session's data-query cutoff is the wall-clock instant after which that
// session's data is considered available. For calendar domains the cutoff
// is market open plus the (negative) data-query offset; the subtraction is
// decomposed into a whole-day shift and a residual time of day, so offsets
// larger than a day roll back across multiple calendar days instead of
// wrapping modulo 24h.
//
// All concrete domains are immutable value objects: equatable, hashable via
// Key(), and totally ordered by canonical string form so collections of
// domains can be deduplicated and rendered reproducibly.
package domain
