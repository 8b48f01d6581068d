package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/pipeline/internal/calendar"
	"github.com/quantfold/pipeline/internal/dataset"
	"github.com/quantfold/pipeline/internal/loader"
)

// seedStore writes deterministic pricing.close values for the first NYSE
// sessions of 2014, sids 1 and 2.
func seedStore(t *testing.T, dbPath string, numSessions int) []time.Time {
	t.Helper()

	cal, err := calendar.Get("NYSE")
	require.NoError(t, err)
	sessions := cal.Sessions()[:numSessions]

	store, err := loader.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ds := dataset.New("pricing",
		dataset.ColumnDef{Name: "close", Dtype: dataset.Float64},
		dataset.ColumnDef{Name: "volume", Dtype: dataset.Float64},
	)
	var cells []loader.Cell
	for i, s := range sessions {
		cells = append(cells,
			loader.Cell{Session: s, Sid: 1, Value: float64(i + 1)},
			loader.Cell{Session: s, Sid: 2, Value: float64(10 * (i + 1))},
		)
	}
	ctx := context.Background()
	require.NoError(t, store.WriteBatch(ctx, ds.MustColumn("close"), cells))
	require.NoError(t, store.WriteBatch(ctx, ds.MustColumn("volume"), cells))
	return sessions
}

func TestRun_EndToEnd(t *testing.T) {
	declsDir := writeDecls(t, validDecls)
	dbPath := filepath.Join(t.TempDir(), "columns.db")
	seedStore(t, dbPath, 6)

	// Sessions 2014-01-02..09 carry close values 1..6 for sid 1; the run
	// window is the last two, so sum3 sees (3+4+5, 4+5+6).
	out, err := executeCommand(t, "run", declsDir,
		"--db", dbPath, "--start", "2014-01-08", "--end", "2014-01-09", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   runReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "momentum", resp.Data.Pipeline)
	assert.Equal(t, "EquityCalendarDomain('US', 'NYSE')", resp.Data.Domain)
	assert.NotEmpty(t, resp.Data.RunToken)
	assert.Equal(t, []string{"2014-01-08", "2014-01-09"}, resp.Data.Sessions)
	assert.Equal(t, []string{"2014-01-08 08:45", "2014-01-09 08:45"}, resp.Data.Cutoffs)
	assert.Equal(t, []int64{1, 2}, resp.Data.Sids)
	assert.Equal(t, [][]float64{{12, 120}, {15, 150}}, resp.Data.Columns["sum3"])
	assert.Equal(t, [][]float64{{5, 50}, {6, 60}}, resp.Data.Columns["latest"])
}

func TestRun_TextOutput(t *testing.T) {
	declsDir := writeDecls(t, validDecls)
	dbPath := filepath.Join(t.TempDir(), "columns.db")
	seedStore(t, dbPath, 6)

	out, err := executeCommand(t, "run", declsDir,
		"--db", dbPath, "--start", "2014-01-08", "--end", "2014-01-09")
	require.NoError(t, err)
	assert.Contains(t, out, "pipeline momentum: EquityCalendarDomain('US', 'NYSE'), 2 sessions, 2 assets")
	assert.Contains(t, out, "momentum.sum3")
	assert.Contains(t, out, "2014-01-08")
}

func TestRun_SelectPipeline(t *testing.T) {
	declsDir := writeDecls(t, validDecls)
	dbPath := filepath.Join(t.TempDir(), "columns.db")
	seedStore(t, dbPath, 6)

	_, err := executeCommand(t, "run", declsDir,
		"--db", dbPath, "--start", "2014-01-08", "--end", "2014-01-09",
		"--pipeline", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `pipeline "nope" not declared`)
}

func TestRun_InsufficientHistoryFails(t *testing.T) {
	declsDir := writeDecls(t, validDecls)
	dbPath := filepath.Join(t.TempDir(), "columns.db")
	seedStore(t, dbPath, 6)

	// The first session has no history behind it for a 3-session window.
	_, err := executeCommand(t, "run", declsDir,
		"--db", dbPath, "--start", "2014-01-02", "--end", "2014-01-02")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "not enough history")
}

func TestRun_BadDeclsDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "columns.db")
	_, err := executeCommand(t, "run", filepath.Join(t.TempDir(), "nope"),
		"--db", dbPath, "--start", "2014-01-08", "--end", "2014-01-09")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
