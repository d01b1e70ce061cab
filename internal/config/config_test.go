package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
database: /var/lib/loanwatch/snapshot.db
source:
  url: https://portal.example.com/api/export
  token: portal-token
  timeout: 45s
webhook:
  url: https://hooks.example.com/services/T0/B0/xyz
  timeout: 5s
policy:
  closed_statuses: ["closed", "n/a"]
  excluded_stages: ["Funded & Closed Out"]
  deliver_closed: false
metrics:
  pushgateway_url: http://pushgateway:9091
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/loanwatch/snapshot.db", cfg.Database)
	assert.Equal(t, "https://portal.example.com/api/export", cfg.Source.URL)
	assert.Equal(t, "portal-token", cfg.Source.Token)
	assert.Equal(t, Duration(45*time.Second), cfg.Source.Timeout)
	assert.Equal(t, Duration(5*time.Second), cfg.Webhook.Timeout)
	assert.Equal(t, []string{"closed", "n/a"}, cfg.Policy.ClosedStatuses)
	assert.Equal(t, []string{"Funded & Closed Out"}, cfg.Policy.ExcludedStages)
	assert.False(t, cfg.Policy.DeliverClosed)
	assert.Equal(t, "http://pushgateway:9091", cfg.Metrics.PushgatewayURL)
	assert.Equal(t, "loanwatch", cfg.Metrics.Job, "default job name")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loanwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/loanwatch/snapshot.db", cfg.Database)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	bad := validYAML + "\npolicyy:\n  closed_statuses: [\"closed\"]\n"
	_, err := Parse([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestParse_WrongTypeRejected(t *testing.T) {
	bad := `
database: /tmp/db
source:
  url: https://portal.example.com/api/export
webhook:
  url: https://hooks.example.com/x
policy:
  closed_statuses: "closed"
`
	_, err := Parse([]byte(bad))
	assert.Error(t, err, "scalar where a list is required")
}

func TestParse_SemanticFailures(t *testing.T) {
	testCases := []struct {
		name   string
		yaml   string
		wantIn string
	}{
		{
			name: "empty closed vocabulary",
			yaml: `
database: /tmp/db
source:
  url: https://portal.example.com/api/export
webhook:
  url: https://hooks.example.com/x
policy:
  closed_statuses: []
`,
			wantIn: "closed_statuses",
		},
		{
			name: "missing source url",
			yaml: `
database: /tmp/db
webhook:
  url: https://hooks.example.com/x
policy:
  closed_statuses: ["closed"]
`,
			wantIn: "source.url",
		},
		{
			name: "missing webhook url",
			yaml: `
database: /tmp/db
source:
  url: https://portal.example.com/api/export
policy:
  closed_statuses: ["closed"]
`,
			wantIn: "webhook.url",
		},
		{
			name: "missing database",
			yaml: `
source:
  url: https://portal.example.com/api/export
webhook:
  url: https://hooks.example.com/x
policy:
  closed_statuses: ["closed"]
`,
			wantIn: "database",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantIn)
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("LOANWATCH_SOURCE_TOKEN", "env-token")
	t.Setenv("LOANWATCH_WEBHOOK_URL", "https://hooks.example.com/from-env")

	yaml := `
database: /tmp/db
source:
  url: https://portal.example.com/api/export
policy:
  closed_statuses: ["closed"]
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Source.Token)
	assert.Equal(t, "https://hooks.example.com/from-env", cfg.Webhook.URL,
		"env satisfies the semantic requirement the file omitted")
}

func TestDuration_BadValue(t *testing.T) {
	bad := `
database: /tmp/db
source:
  url: https://portal.example.com/api/export
  timeout: soon
webhook:
  url: https://hooks.example.com/x
policy:
  closed_statuses: ["closed"]
`
	_, err := Parse([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse duration")
}
