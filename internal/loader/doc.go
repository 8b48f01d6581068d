// Package loader fetches raw column values for the execution engine.
//
// A Loader answers one question: given an underlying (unspecialized)
// column and an ordered session list - the requested output range plus
// any extra leading history rows - what are the raw values, one row per
// session and one slot per asset? The engine always asks in terms of the
// generic column, so a loader never needs to know which specialization a
// request came through.
//
// Two implementations ship with the engine:
//
//   - Store: a SQLite-backed column store for real data, with WAL mode
//     and an embedded schema.
//   - SeededLoader: deterministic pseudo-random values derived purely
//     from (column, session, asset), for tests and demos. Overlapping
//     requests always agree on shared cells, which is what makes
//     duplicate-invariance testable.
package loader
