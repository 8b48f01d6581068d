package graph

import (
	"fmt"

	"github.com/quantfold/pipeline/internal/dataset"
	"github.com/quantfold/pipeline/internal/domain"
)

// Kernel computes one output row from one rolling window per input.
// windows[k] holds the window for the k-th input column: WindowLength
// rows, each with one value per asset, oldest row first. out has one slot
// per asset.
type Kernel func(out []float64, windows [][][]float64)

// Term is a node in the computation's dependency graph.
//
// Terms are immutable. A term's domain is inferred from its input columns
// at construction: all-generic inputs make a generic term, and a single
// concrete domain among the inputs binds the term to it.
type Term interface {
	// Domain returns the term's associated domain, generic or concrete.
	Domain() domain.Domain

	// WindowLength returns the number of history rows each window spans.
	// Non-windowed terms report 0.
	WindowLength() int

	// Inputs returns the columns the term consumes.
	Inputs() []*dataset.Column

	// Specialize rebinds the term's generic inputs to the given domain.
	// Inputs already bound to that domain are kept; inputs bound to a
	// foreign domain make the call fail with a domain-mismatch error.
	Specialize(d domain.Domain) (Term, error)

	// Compute evaluates one output row. See Kernel for the window shape.
	Compute(out []float64, windows [][][]float64)
}

// term carries the state shared by every term kind.
type term struct {
	inputs []*dataset.Column
	window int
	kernel Kernel
	domain domain.Domain
}

func newTerm(kernel Kernel, window int, inputs []*dataset.Column) (term, error) {
	if kernel == nil {
		return term{}, fmt.Errorf("graph: kernel is required")
	}
	if window < 1 {
		return term{}, fmt.Errorf("graph: window length must be at least 1, got %d", window)
	}
	if len(inputs) == 0 {
		return term{}, fmt.Errorf("graph: at least one input column is required")
	}

	asTerms := make([]domain.Term, len(inputs))
	for i, col := range inputs {
		asTerms[i] = col
	}
	d, err := domain.Infer(asTerms)
	if err != nil {
		return term{}, err
	}

	copied := make([]*dataset.Column, len(inputs))
	copy(copied, inputs)
	return term{inputs: copied, window: window, kernel: kernel, domain: d}, nil
}

func (t *term) Domain() domain.Domain { return t.domain }

func (t *term) WindowLength() int { return t.window }

func (t *term) Inputs() []*dataset.Column {
	out := make([]*dataset.Column, len(t.inputs))
	copy(out, t.inputs)
	return out
}

func (t *term) Compute(out []float64, windows [][][]float64) {
	t.kernel(out, windows)
}

// specializeInputs resolves every input against the target domain.
// Generic inputs are bound; inputs already on the target are no-ops;
// foreign concrete inputs fail.
func (t *term) specializeInputs(d domain.Domain) ([]*dataset.Column, error) {
	cols := make([]*dataset.Column, len(t.inputs))
	for i, col := range t.inputs {
		specialized, err := col.Specialize(d)
		if err != nil {
			return nil, err
		}
		cols[i] = specialized
	}
	return cols, nil
}

// Factor is a windowed numeric term: it consumes rolling windows of its
// input columns and emits one value per asset.
type Factor struct {
	term
}

// NewFactor creates a factor from a kernel, a window length, and input
// columns.
func NewFactor(kernel Kernel, window int, inputs ...*dataset.Column) (*Factor, error) {
	base, err := newTerm(kernel, window, inputs)
	if err != nil {
		return nil, err
	}
	return &Factor{term: base}, nil
}

// Specialize implements Term.
func (f *Factor) Specialize(d domain.Domain) (Term, error) {
	if d.Equal(f.domain) {
		return f, nil
	}
	cols, err := f.specializeInputs(d)
	if err != nil {
		return nil, err
	}
	return &Factor{term: term{inputs: cols, window: f.window, kernel: f.kernel, domain: d}}, nil
}

// Filter is a windowed boolean term. Outputs are encoded as 1 (true) and
// 0 (false) so filters and factors share one result representation.
type Filter struct {
	term
}

// NewFilter creates a filter from a kernel, a window length, and input
// columns. The kernel is expected to write only 0 or 1.
func NewFilter(kernel Kernel, window int, inputs ...*dataset.Column) (*Filter, error) {
	base, err := newTerm(kernel, window, inputs)
	if err != nil {
		return nil, err
	}
	return &Filter{term: base}, nil
}

// Specialize implements Term.
func (f *Filter) Specialize(d domain.Domain) (Term, error) {
	if d.Equal(f.domain) {
		return f, nil
	}
	cols, err := f.specializeInputs(d)
	if err != nil {
		return nil, err
	}
	return &Filter{term: term{inputs: cols, window: f.window, kernel: f.kernel, domain: d}}, nil
}
