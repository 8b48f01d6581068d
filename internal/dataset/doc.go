// Package dataset implements schema families and their domain
// specializations.
//
// A Family is a named, immutable set of column definitions declared once at
// startup. Each family exposes exactly one declared instance: a generic
// DataSet (no domain attached) or a domain-rooted DataSet (fixed concrete
// domain assigned at declaration). Domain-bound variants of a generic
// family are derived on demand via Specialize and memoized per family, so
// a given (family, domain) pair always resolves to the same *DataSet and
// the same *Column objects for the lifetime of the process.
//
// IDENTITY INVARIANTS:
//
//   - Specialization is a function: repeated Specialize calls with equal
//     domains return the same object, never an equal copy.
//   - A rooted dataset specializes only to its own root (a no-op); any
//     other target is a domain-mismatch error.
//   - Unspecialize on a specialization returns the declared generic
//     instance; on a rooted dataset it returns a memoized derived-generic
//     view whose only legal specialization target is the root. This lets
//     loaders and dispatchers key on the generic form of any dataset
//     without caring whether the family is rooted.
//   - Column operations delegate to the owning dataset and re-resolve the
//     column by name, so column identity follows dataset identity.
//
// The memoization table is the only mutable state in the package. Writes
// are idempotent and guarded by a per-family mutex: racing Specialize
// calls for the same (family, domain) pair publish a single object.
//
// Family and column names are NFC-normalized at declaration time so that
// identity keys are stable across visually identical Unicode spellings.
package dataset
