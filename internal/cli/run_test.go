package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loanwatch/internal/cycle"
)

// writeTestConfig writes a config pointing at the given portal and webhook
// test servers and a temp database, and returns the config path.
func writeTestConfig(t *testing.T, portalURL, webhookURL string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
database: %s
source:
  url: %s
webhook:
  url: %s
policy:
  closed_statuses: ["closed", "n/a"]
  excluded_stages: ["Funded & Closed Out"]
`, filepath.Join(dir, "loanwatch.db"), portalURL, webhookURL)

	path := filepath.Join(dir, "loanwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand_TwoCycles(t *testing.T) {
	// First cycle sees one record (baseline, no delivery). Second cycle
	// sees a stage move and delivers exactly one digest.
	exports := []string{
		`{"applications": [{"email": "a@x.com", "tab": "Submitted", "status": "Approved for Loan", "requested_amount_cents": 500000}]}`,
		`{"applications": [{"email": "a@x.com", "tab": "Accepted & Approved", "status": "Approved for Loan", "requested_amount_cents": 500000}]}`,
	}
	fetches := 0
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := exports[fetches]
		if fetches < len(exports)-1 {
			fetches++
		}
		w.Write([]byte(body))
	}))
	defer portal.Close()

	var deliveries []string
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		deliveries = append(deliveries, string(body))
	}))
	defer webhook.Close()

	cfgPath := writeTestConfig(t, portal.URL, webhook.URL)

	// Baseline cycle.
	out, err := execute(t, "run", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Status string        `json:"status"`
		Data   cycle.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Baseline)
	assert.Equal(t, 1, resp.Data.Observed)
	assert.Equal(t, 0, resp.Data.Delivered)
	assert.Empty(t, deliveries, "baseline run must not notify")

	// Change cycle.
	out, err = execute(t, "run", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Data.Baseline)
	assert.Equal(t, 1, resp.Data.Changes)
	assert.Equal(t, 1, resp.Data.Delivered)
	require.Len(t, deliveries, 1)
	assert.Contains(t, deliveries[0], `stage \"Submitted\" -> \"Accepted & Approved\"`)
}

func TestRunCommand_DryRun(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"applications": [{"email": "a@x.com", "tab": "Submitted", "status": "New"}]}`))
	}))
	defer portal.Close()

	webhookHit := false
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookHit = true
	}))
	defer webhook.Close()

	cfgPath := writeTestConfig(t, portal.URL, webhook.URL)

	_, err := execute(t, "run", "--config", cfgPath, "--dry-run")
	require.NoError(t, err)
	assert.False(t, webhookHit, "dry run must not touch the webhook")
}

func TestRunCommand_PortalDown(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer portal.Close()
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer webhook.Close()

	cfgPath := writeTestConfig(t, portal.URL, webhook.URL)

	_, err := execute(t, "run", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRunCommand_MissingConfig(t *testing.T) {
	_, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
