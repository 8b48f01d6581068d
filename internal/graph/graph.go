package graph

import (
	"sort"

	"github.com/quantfold/pipeline/internal/dataset"
)

// Graph is the dependency graph for one computation request: the named
// output terms plus per-underlying-column row accounting. The graph is
// fully constructed before any row counts are read and is immutable
// afterwards.
type Graph struct {
	terms map[string]Term
	extra map[*dataset.Column]int
}

// Build constructs the graph for a set of named output terms.
//
// Row accounting is keyed by the unspecialized form of each input column,
// so a generic reference and any number of domain-specialized references
// to the same column count as one loadable quantity. Each quantity's
// extra-row requirement is the maximum of WindowLength-1 over every term
// that consumes it.
func Build(terms map[string]Term) *Graph {
	extra := make(map[*dataset.Column]int)
	for _, t := range terms {
		need := t.WindowLength() - 1
		if need < 0 {
			need = 0
		}
		for _, col := range t.Inputs() {
			underlying := col.Unspecialize()
			if have, ok := extra[underlying]; !ok || need > have {
				extra[underlying] = need
			}
		}
	}

	copied := make(map[string]Term, len(terms))
	for name, t := range terms {
		copied[name] = t
	}
	return &Graph{terms: copied, extra: extra}
}

// Terms returns the named output terms.
func (g *Graph) Terms() map[string]Term {
	out := make(map[string]Term, len(g.terms))
	for name, t := range g.terms {
		out[name] = t
	}
	return out
}

// TermNames returns the output names, sorted.
func (g *Graph) TermNames() []string {
	names := make([]string, 0, len(g.terms))
	for name := range g.terms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadableColumns returns the distinct underlying columns the request
// needs, ordered by qualified name for deterministic loading.
func (g *Graph) LoadableColumns() []*dataset.Column {
	cols := make([]*dataset.Column, 0, len(g.extra))
	for col := range g.extra {
		cols = append(cols, col)
	}
	sort.Slice(cols, func(i, j int) bool {
		return cols[i].QualifiedName() < cols[j].QualifiedName()
	})
	return cols
}

// ExtraRows returns the number of history rows to load before the first
// requested date for the given column. The column may be passed in any
// specialization; accounting always resolves through the underlying
// generic form.
func (g *Graph) ExtraRows(col *dataset.Column) int {
	return g.extra[col.Unspecialize()]
}
