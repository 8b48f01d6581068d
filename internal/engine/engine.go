package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfold/pipeline/internal/calendar"
	"github.com/quantfold/pipeline/internal/dataset"
	"github.com/quantfold/pipeline/internal/domain"
	"github.com/quantfold/pipeline/internal/graph"
	"github.com/quantfold/pipeline/internal/loader"
)

// Engine runs pipelines against a column loader.
type Engine struct {
	loader loader.Loader
	tokens TokenGenerator
	log    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTokenGenerator overrides the run-token generator, e.g. with a
// FixedGenerator in tests.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithLogger sets the logger used for run diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New creates an Engine reading raw data through the given loader.
func New(l loader.Loader, opts ...Option) *Engine {
	e := &Engine{
		loader: l,
		tokens: UUIDv7Generator{},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the output of one pipeline run.
type Result struct {
	// RunToken correlates the result with engine logs.
	RunToken string

	// Domain is the concrete domain the computation ran under.
	Domain domain.Domain

	// Sessions are the output dates, ascending.
	Sessions []time.Time

	// Cutoffs holds the data-query cutoff for each output session, in
	// the same order.
	Cutoffs []time.Time

	// Sids is the asset universe, one slot per output column.
	Sids []int64

	// Columns maps each output name to a sessions-by-assets matrix.
	Columns map[string][][]float64
}

// Run evaluates a pipeline over the sessions in [start, end].
//
// The window [start, end] selects output sessions from the resolved
// domain's calendar; extra history rows needed by windowed terms are
// loaded before start and never appear in the result.
func (e *Engine) Run(ctx context.Context, p *Pipeline, start, end time.Time) (*Result, error) {
	token := e.tokens.Generate()

	resolved, err := p.ResolveDomain()
	if err != nil {
		return nil, err
	}
	e.log.Debug("pipeline run starting",
		"run", token,
		"domain", resolved.String(),
		"columns", p.ColumnNames(),
	)

	// Bind every term to the resolved domain. Foreign-domain terms fail
	// here, before any data is touched.
	resolvedTerms := make(map[string]graph.Term, len(p.columns))
	for name, t := range p.columns {
		specialized, err := t.Specialize(resolved)
		if err != nil {
			return nil, fmt.Errorf("resolve term %q: %w", name, err)
		}
		resolvedTerms[name] = specialized
	}

	g := graph.Build(resolvedTerms)

	all, err := resolved.AllSessions()
	if err != nil {
		return nil, err
	}
	firstIdx, lastIdx, err := sessionWindow(all, start, end)
	if err != nil {
		return nil, err
	}
	sessions := all[firstIdx : lastIdx+1]

	cutoffs, err := resolved.DataQueryCutoffForSessions(sessions)
	if err != nil {
		return nil, err
	}

	sids, err := e.loader.Sids(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve asset universe: %w", err)
	}

	// Load each underlying column once, with its own extra history.
	raw := make(map[*dataset.Column][][]float64)
	for _, col := range g.LoadableColumns() {
		extra := g.ExtraRows(col)
		if firstIdx < extra {
			return nil, fmt.Errorf(
				"not enough history before %s: %s needs %d extra rows, calendar has %d",
				sessions[0].Format(calendar.DateLayout), col.QualifiedName(), extra, firstIdx,
			)
		}
		data, err := e.loader.Load(ctx, col, all[firstIdx-extra:lastIdx+1])
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", col.QualifiedName(), err)
		}
		raw[col] = data
	}

	result := &Result{
		RunToken: token,
		Domain:   resolved,
		Sessions: sessions,
		Cutoffs:  cutoffs,
		Sids:     sids,
		Columns:  make(map[string][][]float64, len(resolvedTerms)),
	}

	for name, t := range resolvedTerms {
		matrix, err := e.computeTerm(ctx, t, g, raw, len(sessions), len(sids))
		if err != nil {
			return nil, fmt.Errorf("compute %q: %w", name, err)
		}
		result.Columns[name] = matrix
	}

	e.log.Debug("pipeline run finished",
		"run", token,
		"sessions", len(sessions),
		"assets", len(sids),
	)
	return result, nil
}

// computeTerm evaluates one term row by row over its rolling windows.
func (e *Engine) computeTerm(
	ctx context.Context,
	t graph.Term,
	g *graph.Graph,
	raw map[*dataset.Column][][]float64,
	numSessions, numAssets int,
) ([][]float64, error) {
	window := t.WindowLength()
	inputs := t.Inputs()

	out := make([][]float64, numSessions)
	windows := make([][][]float64, len(inputs))
	for i := 0; i < numSessions; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for k, col := range inputs {
			underlying := col.Unspecialize()
			buffer := raw[underlying]
			// Row extra+i of the buffer is output session i; the window
			// is the trailing WindowLength rows ending there.
			extra := g.ExtraRows(underlying)
			windows[k] = buffer[extra+i+1-window : extra+i+1]
		}

		row := make([]float64, numAssets)
		t.Compute(row, windows)
		out[i] = row
	}
	return out, nil
}

// sessionWindow returns the inclusive index range of sessions within
// [start, end].
func sessionWindow(all []time.Time, start, end time.Time) (int, int, error) {
	start, end = calendar.Date(start), calendar.Date(end)
	if end.Before(start) {
		return 0, 0, fmt.Errorf("end %s precedes start %s",
			end.Format(calendar.DateLayout), start.Format(calendar.DateLayout))
	}

	first, last := -1, -1
	for i, s := range all {
		if s.Before(start) {
			continue
		}
		if s.After(end) {
			break
		}
		if first == -1 {
			first = i
		}
		last = i
	}
	if first == -1 {
		return 0, 0, fmt.Errorf("no sessions in range %s..%s",
			start.Format(calendar.DateLayout), end.Format(calendar.DateLayout))
	}
	return first, last, nil
}
