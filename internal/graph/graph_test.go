package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/pipeline/internal/dataset"
	"github.com/quantfold/pipeline/internal/domain"
)

func declareTesting(name string) *dataset.DataSet {
	return dataset.New(name,
		dataset.ColumnDef{Name: "float_col", Dtype: dataset.Float64},
		dataset.ColumnDef{Name: "other_col", Dtype: dataset.Float64},
	)
}

func TestTermDomainInference(t *testing.T) {
	ds := declareTesting("terms")
	usDS, err := ds.Specialize(domain.USEquities)
	require.NoError(t, err)

	generic := RollingSum(ds.MustColumn("float_col"), 3)
	assert.True(t, generic.Domain().IsGeneric())
	assert.Equal(t, 3, generic.WindowLength())

	special := RollingSum(usDS.MustColumn("float_col"), 3)
	assert.Same(t, domain.USEquities, special.Domain())

	// Mixing a generic and a specialized input binds the term to the
	// concrete domain.
	mixed, err := NewFactor(func(out []float64, windows [][][]float64) {}, 2,
		ds.MustColumn("float_col"), usDS.MustColumn("other_col"))
	require.NoError(t, err)
	assert.Same(t, domain.USEquities, mixed.Domain())
}

func TestNewFactor_Errors(t *testing.T) {
	ds := declareTesting("factor_errors")
	kernel := func(out []float64, windows [][][]float64) {}

	_, err := NewFactor(nil, 3, ds.MustColumn("float_col"))
	assert.ErrorContains(t, err, "kernel")

	_, err = NewFactor(kernel, 0, ds.MustColumn("float_col"))
	assert.ErrorContains(t, err, "window length")

	_, err = NewFactor(kernel, 3)
	assert.ErrorContains(t, err, "at least one input")

	usDS, err := ds.Specialize(domain.USEquities)
	require.NoError(t, err)
	caDS, err := ds.Specialize(domain.CAEquities)
	require.NoError(t, err)

	_, err = NewFactor(kernel, 3, usDS.MustColumn("float_col"), caDS.MustColumn("other_col"))
	require.Error(t, err)
	assert.True(t, domain.IsAmbiguousDomain(err))
}

func TestFactorSpecialize(t *testing.T) {
	ds := declareTesting("factor_specialize")
	generic := RollingSum(ds.MustColumn("float_col"), 3)

	specialized, err := generic.Specialize(domain.USEquities)
	require.NoError(t, err)
	assert.Same(t, domain.USEquities, specialized.Domain())

	// The specialized term consumes the same underlying quantity.
	assert.Same(t,
		generic.Inputs()[0],
		specialized.Inputs()[0].Unspecialize(),
	)

	// Specializing to the current domain is a no-op.
	same, err := specialized.Specialize(domain.USEquities)
	require.NoError(t, err)
	assert.Same(t, specialized, same)

	// A term bound to one concrete domain cannot be rebound to another.
	_, err = specialized.Specialize(domain.CAEquities)
	require.Error(t, err)
	assert.True(t, domain.IsDomainMismatch(err))
}

func TestBuild_ExtraRowsDedupedByUnderlyingColumn(t *testing.T) {
	ds := declareTesting("extra_rows")
	usDS, err := ds.Specialize(domain.USEquities)
	require.NoError(t, err)

	genericCol := ds.MustColumn("float_col")
	specialCol := usDS.MustColumn("float_col")

	g := Build(map[string]Term{
		"sum3_generic":  RollingSum(genericCol, 3),
		"sum3_special":  RollingSum(specialCol, 3),
		"sum10_generic": RollingSum(genericCol, 10),
		"sum10_special": RollingSum(specialCol, 10),
	})

	// One loadable quantity, not four.
	cols := g.LoadableColumns()
	require.Len(t, cols, 1)
	assert.Same(t, genericCol, cols[0])

	// Requirement is the max over all consumers, queryable through any
	// specialization path.
	assert.Equal(t, 9, g.ExtraRows(genericCol))
	assert.Equal(t, 9, g.ExtraRows(specialCol))
}

func TestBuild_ExtraRowsShrinkWithSubset(t *testing.T) {
	ds := declareTesting("extra_rows_subset")
	col := ds.MustColumn("float_col")

	g := Build(map[string]Term{"sum3": RollingSum(col, 3)})
	assert.Equal(t, 2, g.ExtraRows(col))

	g = Build(map[string]Term{"latest": Latest(col)})
	assert.Equal(t, 0, g.ExtraRows(col))
}

func TestBuild_LoadableColumnsDeterministic(t *testing.T) {
	ds := declareTesting("ordering")
	other := dataset.New("another",
		dataset.ColumnDef{Name: "x", Dtype: dataset.Float64},
	)

	g := Build(map[string]Term{
		"a": RollingSum(other.MustColumn("x"), 2),
		"b": RollingSum(ds.MustColumn("other_col"), 2),
		"c": RollingSum(ds.MustColumn("float_col"), 2),
	})

	var names []string
	for _, col := range g.LoadableColumns() {
		names = append(names, col.QualifiedName())
	}
	assert.Equal(t, []string{"another.x", "ordering.float_col", "ordering.other_col"}, names)
}

func TestFilterKernel(t *testing.T) {
	ds := declareTesting("filter")
	f := LatestGreaterThan(ds.MustColumn("float_col"), 1.5)
	assert.Equal(t, 1, f.WindowLength())

	out := make([]float64, 3)
	f.Compute(out, [][][]float64{{{1.0, 2.0, 1.5}}})
	assert.Equal(t, []float64{0, 1, 0}, out)
}

func TestRollingKernels(t *testing.T) {
	ds := declareTesting("kernels")
	col := ds.MustColumn("float_col")

	window := [][][]float64{{
		{1, 10},
		{2, 20},
		{3, 30},
	}}

	out := make([]float64, 2)
	RollingSum(col, 3).Compute(out, window)
	assert.Equal(t, []float64{6, 60}, out)

	RollingMean(col, 3).Compute(out, window)
	assert.Equal(t, []float64{2, 20}, out)

	Latest(col).Compute(out, [][][]float64{{{7, 8}}})
	assert.Equal(t, []float64{7, 8}, out)
}
