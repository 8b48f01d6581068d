// Package engine evaluates pipelines of windowed terms over trading
// sessions.
//
// A Pipeline names a set of output terms and optionally fixes the domain
// the computation runs under. Running a pipeline proceeds in a fixed
// order:
//
//  1. Resolve the domain: the explicit one if given, otherwise inferred
//     from the terms' domains. A computation cannot run generically.
//  2. Specialize every term against the resolved domain. Generic terms
//     are bound; terms already on the domain pass through; terms bound to
//     a foreign domain fail.
//  3. Build the dependency graph and its per-underlying-column extra-row
//     requirements.
//  4. Select the requested session window, compute each session's
//     data-query cutoff, and load raw columns with their extra history
//     rows.
//  5. Evaluate terms row by row over rolling windows.
//
// Because row accounting is keyed by underlying column and maximized over
// the terms actually requested, the numeric output of any term is
// identical whichever generic/specialized duplicates accompany it. The
// powerset tests in this package pin that property.
//
// The evaluation loop is deliberately single-threaded: requests are
// small, and a deterministic loop is easier to reason about than a
// parallel one. Each run is stamped with a run token for log correlation.
package engine
