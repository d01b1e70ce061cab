// Package config loads and validates the loanwatch configuration.
//
// Three layers, failing fast at load time rather than per record:
//  1. structural validation of the YAML against an embedded CUE schema
//     (unknown keys, wrong types),
//  2. YAML decoding with environment-variable overrides for secrets,
//  3. semantic checks (non-empty closed vocabulary, required URLs).
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE []byte

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full loanwatch configuration.
type Config struct {
	// Database is the SQLite snapshot database path.
	Database string `yaml:"database" env:"LOANWATCH_DATABASE"`

	Source  SourceConfig  `yaml:"source"`
	Webhook WebhookConfig `yaml:"webhook"`
	Policy  PolicyConfig  `yaml:"policy"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SourceConfig configures the portal export client.
type SourceConfig struct {
	URL     string   `yaml:"url" env:"LOANWATCH_SOURCE_URL"`
	Token   string   `yaml:"token" env:"LOANWATCH_SOURCE_TOKEN"`
	Timeout Duration `yaml:"timeout"`
}

// WebhookConfig configures notification delivery.
type WebhookConfig struct {
	URL     string   `yaml:"url" env:"LOANWATCH_WEBHOOK_URL"`
	Timeout Duration `yaml:"timeout"`
}

// PolicyConfig is the notification policy vocabulary.
type PolicyConfig struct {
	ClosedStatuses []string `yaml:"closed_statuses"`
	ExcludedStages []string `yaml:"excluded_stages"`
	DeliverClosed  bool     `yaml:"deliver_closed"`
}

// MetricsConfig configures the optional per-cycle Pushgateway push.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" env:"LOANWATCH_PUSHGATEWAY_URL"`
	Job            string `yaml:"job"`
}

// Load reads, validates, and decodes the config file at path, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and decodes raw config bytes.
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: environment overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "loanwatch"
	}
	return cfg, nil
}

// validateSchema checks the raw YAML against the embedded CUE schema.
func validateSchema(data []byte) error {
	cuectx := cuecontext.New()
	compiled := cuectx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := compiled.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	schema := compiled.LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("lookup schema: %w", err)
	}
	if err := cueyaml.Validate(data, schema); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// validate applies the semantic checks the schema cannot express. These run
// after environment overrides, so an env-supplied URL satisfies them.
func (c *Config) validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required")
	}
	nonBlank := 0
	for _, s := range c.Policy.ClosedStatuses {
		if s != "" {
			nonBlank++
		}
	}
	if nonBlank == 0 {
		return fmt.Errorf("policy.closed_statuses must not be empty")
	}
	return nil
}
