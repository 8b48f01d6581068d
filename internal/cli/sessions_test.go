package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_Text(t *testing.T) {
	out, err := executeCommand(t, "sessions", "NYSE", "--start", "2014-01-01", "--end", "2014-01-31")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	// 21 trading days plus the summary line.
	require.Len(t, lines, 22)
	assert.Equal(t, "2014-01-02", lines[0])
	assert.Equal(t, "2014-01-31", lines[20])
	assert.Equal(t, "21 sessions on NYSE", lines[21])
}

func TestSessions_JSON(t *testing.T) {
	out, err := executeCommand(t, "sessions", "LSE",
		"--start", "2014-01-01", "--end", "2014-01-10", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   sessionsReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "LSE", resp.Data.Calendar)
	assert.Equal(t, resp.Data.Count, len(resp.Data.Sessions))
	// Jan 1 is a holiday on the LSE.
	assert.NotContains(t, resp.Data.Sessions, "2014-01-01")
	assert.Contains(t, resp.Data.Sessions, "2014-01-02")
}

func TestSessions_UnknownCalendar(t *testing.T) {
	_, err := executeCommand(t, "sessions", "NOPE")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSessions_BadRange(t *testing.T) {
	_, err := executeCommand(t, "sessions", "NYSE", "--start", "2014-02-01", "--end", "2014-01-01")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
