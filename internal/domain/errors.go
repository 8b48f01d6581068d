package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quantfold/pipeline/internal/calendar"
)

// Error represents a failure in domain resolution or calendar-timing
// arithmetic.
//
// Domain errors indicate programmer or configuration mistakes, not
// transient conditions: none of them are retryable, and callers are
// expected to surface them rather than recover silently.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Domain is the canonical form of the offending domain, if any.
	Domain string

	// Calendar names the calendar involved (for session mismatches).
	Calendar string

	// Sessions lists every offending session (for session mismatches).
	Sessions []time.Time
}

// ErrorCode categorizes domain errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedOperation indicates a calendar-timing query was
	// issued against the generic domain.
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"

	// ErrCodeSessionMismatch indicates a cutoff computation was requested
	// for sessions absent from the domain's session set.
	ErrCodeSessionMismatch ErrorCode = "SESSION_MISMATCH"

	// ErrCodeDomainMismatch indicates a specialization to a disallowed
	// concrete domain.
	ErrCodeDomainMismatch ErrorCode = "DOMAIN_MISMATCH"
)

// Error implements the error interface.
//
// Session mismatches enumerate every offending session, one per line, so a
// misaligned date range is diagnosable from a single failure.
func (e *Error) Error() string {
	if e.Code == ErrCodeSessionMismatch {
		var b strings.Builder
		fmt.Fprintf(&b, "cannot resolve data query cutoff for sessions that are not on the %s calendar:", e.Calendar)
		for _, s := range e.Sessions {
			b.WriteString("\n  - ")
			b.WriteString(s.Format(calendar.DateLayout))
		}
		return b.String()
	}
	if e.Domain != "" {
		return fmt.Sprintf("%s: %s (domain=%s)", e.Code, e.Message, e.Domain)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewUnsupportedError creates an Error for an operation the generic domain
// cannot answer.
func NewUnsupportedError(op string) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedOperation,
		Message: fmt.Sprintf("%s is not supported on the generic domain", op),
		Domain:  Generic.String(),
	}
}

// NewSessionMismatchError creates an Error listing every session absent
// from the named calendar.
func NewSessionMismatchError(calendarName string, sessions []time.Time) *Error {
	return &Error{
		Code:     ErrCodeSessionMismatch,
		Message:  "sessions are not on the calendar",
		Calendar: calendarName,
		Sessions: sessions,
	}
}

// NewDomainMismatchError creates an Error for a specialization to a
// disallowed domain.
func NewDomainMismatchError(message string, offending Domain) *Error {
	return &Error{
		Code:    ErrCodeDomainMismatch,
		Message: message,
		Domain:  offending.String(),
	}
}

// IsUnsupported returns true if the error is an unsupported-operation
// error. Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == ErrCodeUnsupportedOperation
}

// IsSessionMismatch returns true if the error is a session-membership
// validation error.
func IsSessionMismatch(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == ErrCodeSessionMismatch
}

// IsDomainMismatch returns true if the error is a domain-mismatch
// validation error.
func IsDomainMismatch(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == ErrCodeDomainMismatch
}

// AmbiguousDomainError reports that inference over a set of terms found
// more than one concrete domain. Domains holds the deduplicated conflict
// set, sorted by canonical string form for reproducible diagnostics.
type AmbiguousDomainError struct {
	Domains []Domain
}

// Error implements the error interface, listing each conflicting domain's
// canonical form on its own line.
func (e *AmbiguousDomainError) Error() string {
	var b strings.Builder
	b.WriteString("found terms with conflicting domains:")
	for _, d := range e.Domains {
		b.WriteString("\n  - ")
		b.WriteString(d.String())
	}
	return b.String()
}

// IsAmbiguousDomain returns true if the error is an ambiguous-domain
// inference failure.
func IsAmbiguousDomain(err error) bool {
	var ae *AmbiguousDomainError
	return errors.As(err, &ae)
}
