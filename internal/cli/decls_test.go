package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/pipeline/internal/domain"
)

// writeDecls writes a CUE declaration file into a fresh directory.
func writeDecls(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "decls.cue"), []byte(content), 0o644)
	require.NoError(t, err)
	return dir
}

const validDecls = `
package decls

dataset: pricing: columns: {
	close:  "float64"
	volume: "float64"
}

pipeline: momentum: {
	domain: {country: "US", calendar: "NYSE"}
	columns: {
		sum3:   {op: "rolling_sum", input: "pricing.close", window: 3}
		latest: {op: "latest", input: "pricing.close"}
	}
}
`

func TestLoadDeclarations(t *testing.T) {
	dir := writeDecls(t, validDecls)

	decls, err := LoadDeclarations(dir)
	require.NoError(t, err)

	ds, ok := decls.DataSets["pricing"]
	require.True(t, ok)
	require.Len(t, ds.Columns(), 2)
	closeCol, err := ds.Column("close")
	require.NoError(t, err)
	assert.Equal(t, "pricing.close", closeCol.QualifiedName())

	p, ok := decls.Pipelines["momentum"]
	require.True(t, ok)
	assert.Equal(t, []string{"latest", "sum3"}, p.ColumnNames())

	d, err := p.ResolveDomain()
	require.NoError(t, err)
	assert.True(t, d.Equal(domain.USEquities))
}

func TestLoadDeclarations_NoDomain(t *testing.T) {
	dir := writeDecls(t, `
package decls

dataset: pricing: columns: close: "float64"

pipeline: plain: columns: latest: {op: "latest", input: "pricing.close"}
`)

	decls, err := LoadDeclarations(dir)
	require.NoError(t, err)

	// No explicit domain and generic terms: resolution fails at run time,
	// not at load time.
	_, err = decls.Pipelines["plain"].ResolveDomain()
	assert.ErrorContains(t, err, "no concrete domain")
}

func TestLoadDeclarations_CustomOffset(t *testing.T) {
	dir := writeDecls(t, `
package decls

dataset: pricing: columns: close: "float64"

pipeline: late: {
	domain: {country: "JP", calendar: "TSE", offset: "-15m"}
	columns: latest: {op: "latest", input: "pricing.close"}
}
`)

	decls, err := LoadDeclarations(dir)
	require.NoError(t, err)
	d, err := decls.Pipelines["late"].ResolveDomain()
	require.NoError(t, err)

	ecd, ok := d.(*domain.EquityCalendarDomain)
	require.True(t, ok)
	assert.Equal(t, domain.Japan, ecd.CountryCode())
	assert.Equal(t, "TSE", ecd.CalendarName())
}

func TestLoadDeclarations_Errors(t *testing.T) {
	cases := []struct {
		name    string
		decls   string
		wantErr string
	}{
		{
			name: "unknown op",
			decls: `
dataset: pricing: columns: close: "float64"
pipeline: p: columns: x: {op: "exploding_avg", input: "pricing.close"}
`,
			wantErr: `unknown op "exploding_avg"`,
		},
		{
			name: "undeclared dataset",
			decls: `
dataset: pricing: columns: close: "float64"
pipeline: p: columns: x: {op: "latest", input: "fundamentals.eps"}
`,
			wantErr: `undeclared dataset "fundamentals"`,
		},
		{
			name: "bad input ref",
			decls: `
dataset: pricing: columns: close: "float64"
pipeline: p: columns: x: {op: "latest", input: "close"}
`,
			wantErr: "must be of the form family.column",
		},
		{
			name: "missing window",
			decls: `
dataset: pricing: columns: close: "float64"
pipeline: p: columns: x: {op: "rolling_sum", input: "pricing.close"}
`,
			wantErr: "missing window",
		},
		{
			name: "bad dtype",
			decls: `
dataset: pricing: columns: close: "decimal"
pipeline: p: columns: x: {op: "latest", input: "pricing.close"}
`,
			wantErr: "decimal",
		},
		{
			name: "positive offset",
			decls: `
dataset: pricing: columns: close: "float64"
pipeline: p: {
	domain: {country: "US", calendar: "NYSE", offset: "30m"}
	columns: x: {op: "latest", input: "pricing.close"}
}
`,
			wantErr: "positive",
		},
		{
			name:    "no pipelines",
			decls:   `dataset: pricing: columns: close: "float64"`,
			wantErr: "no pipeline declarations",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeDecls(t, "package decls\n"+tc.decls)
			_, err := LoadDeclarations(dir)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadDeclarations_MissingDir(t *testing.T) {
	_, err := LoadDeclarations(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "not found")
}
