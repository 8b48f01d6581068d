// Package calendar provides trading calendars: ordered session lists,
// timezones, and local open/close times.
//
// Calendars are declared as YAML definitions (weekend mask, holiday list,
// covered date range) and materialized into immutable Calendar values with
// a fully enumerated session list. A process-wide default registry carries
// embedded definitions for the exchanges the engine ships with (NYSE, TSX,
// LSE, TSE, ASX); additional calendars can be registered at startup.
//
// All session dates are represented as timezone-naive midnights (time.Time
// in UTC with a zero clock component). Timestamps derived from sessions
// (opens, data-query cutoffs) are local wall-clock times in the calendar's
// timezone, also carried as naive time.Time values. Callers that need
// absolute instants attach the calendar's timezone themselves.
package calendar
