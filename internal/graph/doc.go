// Package graph models the term-dependency graph handed to the execution
// engine and its row-accounting contract.
//
// A Term is a node of the computation: a raw column reference, a windowed
// factor, or a filter. Terms referencing the same underlying column
// through different schema specializations (or the generic form) are
// distinct nodes, but they consume one shared loadable quantity. The
// graph therefore keys all row accounting by the UNSPECIALIZED column:
// specialization is identity-stable, so Column.Unspecialize() yields one
// canonical *Column per underlying quantity and the dedup key is plain
// pointer identity.
//
// EXTRA ROWS:
//
// A windowed term needs WindowLength-1 rows of history before the first
// requested output date. The extra-row requirement of an underlying
// column is the maximum over all terms that consume it in the current
// request, whatever their specialization. Because the requirement is a
// max over the terms actually present, adding or removing duplicate
// terms never changes the rows loaded for - or the values computed by -
// the terms that remain. Getting this wrong shows up as numerically
// wrong output for some subsets of requested terms; the invariance tests
// in the engine package pin the behavior.
package graph
