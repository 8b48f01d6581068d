package engine

import (
	"fmt"
	"sort"

	"github.com/quantfold/pipeline/internal/domain"
	"github.com/quantfold/pipeline/internal/graph"
)

// Pipeline is one computation request: named output terms plus an
// optional explicit domain. Pipelines are immutable once constructed.
type Pipeline struct {
	columns map[string]graph.Term
	domain  domain.Domain // nil means "infer from terms"
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithDomain fixes the domain the pipeline runs under instead of
// inferring it from the terms.
func WithDomain(d domain.Domain) PipelineOption {
	return func(p *Pipeline) {
		p.domain = d
	}
}

// NewPipeline creates a pipeline from named output terms.
func NewPipeline(columns map[string]graph.Term, opts ...PipelineOption) (*Pipeline, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("pipeline: at least one output term is required")
	}
	copied := make(map[string]graph.Term, len(columns))
	for name, t := range columns {
		if name == "" {
			return nil, fmt.Errorf("pipeline: output names must be non-empty")
		}
		if t == nil {
			return nil, fmt.Errorf("pipeline: output %q has no term", name)
		}
		copied[name] = t
	}

	p := &Pipeline{columns: copied}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Columns returns the named output terms.
func (p *Pipeline) Columns() map[string]graph.Term {
	out := make(map[string]graph.Term, len(p.columns))
	for name, t := range p.columns {
		out[name] = t
	}
	return out
}

// ColumnNames returns the output names, sorted.
func (p *Pipeline) ColumnNames() []string {
	names := make([]string, 0, len(p.columns))
	for name := range p.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveDomain determines the concrete domain the pipeline runs under:
// the explicit domain if one was given, otherwise the domain inferred
// from the terms. Fails if inference is ambiguous or resolves to the
// generic domain, since a computation needs sessions to run over.
func (p *Pipeline) ResolveDomain() (domain.Domain, error) {
	resolved := p.domain
	if resolved == nil || resolved.IsGeneric() {
		terms := make([]domain.Term, 0, len(p.columns))
		for _, t := range p.columns {
			terms = append(terms, t)
		}
		inferred, err := domain.Infer(terms)
		if err != nil {
			return nil, err
		}
		resolved = inferred
	}
	if resolved.IsGeneric() {
		return nil, fmt.Errorf("pipeline has no concrete domain: all terms are generic and no explicit domain was given")
	}
	return resolved, nil
}
