package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loanwatch/internal/cycle"
	"github.com/roach88/loanwatch/internal/record"
	"github.com/roach88/loanwatch/internal/store"
)

// seedStore writes a config plus a database pre-populated with one stored
// record and one run summary.
func seedStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "loanwatch.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	observedAt := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, st.SaveRecords(context.Background(), []record.Stored{{
		Key:             "a@x.com",
		Stage:           "Submitted",
		Status:          "Approved for Loan",
		RequestedAmount: record.Cents(500000),
		LastObservedAt:  observedAt,
	}}))
	require.NoError(t, st.Record(context.Background(), cycle.Summary{
		CycleID:   "0195f000-0000-7000-8000-000000000001",
		StartedAt: observedAt,
		Duration:  1200 * time.Millisecond,
		Baseline:  true,
		Observed:  1,
		Changes:   1,
	}))

	cfg := fmt.Sprintf(`
database: %s
source:
  url: https://portal.example.com/api/export
webhook:
  url: https://hooks.example.com/x
policy:
  closed_statuses: ["closed"]
`, dbPath)
	cfgPath := filepath.Join(dir, "loanwatch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func TestRecordsCommand(t *testing.T) {
	cfgPath := seedStore(t)

	out, err := execute(t, "records", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string             `json:"status"`
		Data   []storedRecordView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "a@x.com", resp.Data[0].Key)
	assert.Equal(t, "Submitted", resp.Data[0].Stage)
	require.NotNil(t, resp.Data[0].Requested)
	assert.Equal(t, int64(500000), *resp.Data[0].Requested)
	assert.Nil(t, resp.Data[0].Approved)
}

func TestRecordsCommand_Text(t *testing.T) {
	cfgPath := seedStore(t)

	out, err := execute(t, "records", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "a@x.com")
	assert.Contains(t, out, `stage="Submitted"`)
}

func TestRunsCommand(t *testing.T) {
	cfgPath := seedStore(t)

	out, err := execute(t, "runs", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []cycle.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "0195f000-0000-7000-8000-000000000001", resp.Data[0].CycleID)
	assert.True(t, resp.Data[0].Baseline)
}
