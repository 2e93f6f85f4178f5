// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/artpar/datagate/domain/call"
	"github.com/artpar/datagate/domain/resource"
)

// Config is the root configuration structure.
type Config struct {
	Admin     AdminConfig      `yaml:"admin"`
	Transport TransportConfig  `yaml:"transport"`
	Recorder  RecorderConfig   `yaml:"recorder"`
	Resources []ResourceConfig `yaml:"resources"`
	Logging   LoggingConfig    `yaml:"logging"`
	Metrics   MetricsConfig    `yaml:"metrics"`
}

// AdminConfig configures the admin/observability HTTP endpoint.
type AdminConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// TransportConfig configures the outgoing HTTP transport.
type TransportConfig struct {
	BaseURL         string            `yaml:"base_url"`
	Timeout         time.Duration     `yaml:"timeout"`
	MaxIdleConns    int               `yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration     `yaml:"idle_conn_timeout"`
	MaxBodyBytes    int64             `yaml:"max_body_bytes"`
	UserAgent       string            `yaml:"user_agent"`
	Headers         map[string]string `yaml:"headers,omitempty"`
}

// RecorderConfig configures call audit recording.
// Use "none" to disable, "memory" for in-process storage or "sqlite"
// for a durable store.
type RecorderConfig struct {
	Mode          string        `yaml:"mode"` // "none", "memory" or "sqlite"
	DSN           string        `yaml:"dsn"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // Serve /metrics on the admin endpoint
}

// ResourceConfig declares one remote resource and the operations it
// offers.
type ResourceConfig struct {
	Domain     string                     `yaml:"domain"`
	Name       string                     `yaml:"name"`
	Operations map[string]OperationConfig `yaml:"operations"`
}

// ID returns the registry key this resource will occupy.
func (r ResourceConfig) ID() string {
	return strings.ToLower(r.Domain + ":" + r.Name)
}

// OperationConfig declares one call operation against the remote
// service. Field semantics follow app.HTTPOptions.
type OperationConfig struct {
	Method   string `yaml:"method"`
	Path     string `yaml:"path"`
	FullPath bool   `yaml:"full_path,omitempty"`
	Query    string `yaml:"query,omitempty"`

	Input  []string `yaml:"input,omitempty"`
	Output string   `yaml:"output"`

	ParamsStatic map[string]any    `yaml:"params_static,omitempty"`
	ParamsMap    map[string]string `yaml:"params_map,omitempty"`
	Providers    map[string]string `yaml:"providers,omitempty"` // Expr source per parameter

	Headers map[string]string `yaml:"headers,omitempty"`

	Authorization *AuthorizationConfig `yaml:"authorization,omitempty"`

	Body        string `yaml:"body,omitempty"`
	BodyPattern string `yaml:"body_pattern,omitempty"`
	BodyType    string `yaml:"body_type,omitempty"`

	ValidateExpr  string `yaml:"validate_expr,omitempty"`
	FilterExpr    string `yaml:"filter_expr,omitempty"`
	JSONFilter    string `yaml:"json_filter,omitempty"`
	FilterPattern string `yaml:"filter_pattern,omitempty"`

	// RefreshToken captures a bearer token from responses at the given
	// dot path ("." for the whole output) and installs it on the
	// resource's executors.
	RefreshToken string `yaml:"refresh_token,omitempty"`

	ErrorResponse  string `yaml:"error_response,omitempty"`
	ErrorRetries   int    `yaml:"error_max_retries,omitempty"`
	DisableRetries bool   `yaml:"disable_retries,omitempty"`
}

// AuthorizationConfig configures credentials for an operation. Set
// token for bearer auth, user/pass for fixed basic auth, or fields to
// derive basic auth from call parameters.
type AuthorizationConfig struct {
	User   string   `yaml:"user,omitempty"`
	Pass   string   `yaml:"pass,omitempty"`
	Token  string   `yaml:"token,omitempty"`
	Fields []string `yaml:"fields,omitempty"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// Useful for container deployments where no config file is mounted.
//
// Environment variables:
//
//	DATAGATE_BASE_URL        - Remote service base URL (required)
//	DATAGATE_TIMEOUT         - Transport timeout (default: 30s)
//	DATAGATE_RECORDER_MODE   - Recorder mode: none, memory or sqlite (default: memory)
//	DATAGATE_RECORDER_DSN    - SQLite path (default: datagate.db)
//	DATAGATE_ADMIN_ENABLED   - Enable the admin endpoint (default: true)
//	DATAGATE_ADMIN_HOST      - Admin host (default: 0.0.0.0)
//	DATAGATE_ADMIN_PORT      - Admin port (default: 8089)
//	DATAGATE_LOG_LEVEL       - Log level: debug, info, warn, error (default: info)
//	DATAGATE_LOG_FORMAT      - Log format: json or console (default: json)
//	DATAGATE_METRICS_ENABLED - Enable /metrics (default: true)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set DATAGATE_BASE_URL")
}

// HasEnvConfig reports whether enough environment configuration exists
// to run without a config file.
func HasEnvConfig() bool {
	return os.Getenv("DATAGATE_BASE_URL") != ""
}

// applyEnvOverrides applies DATAGATE_* environment variables to the
// config. Environment variables always override file-based values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATAGATE_BASE_URL"); v != "" {
		cfg.Transport.BaseURL = v
	}
	if v := os.Getenv("DATAGATE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Transport.Timeout = d
		}
	}

	if v := os.Getenv("DATAGATE_RECORDER_MODE"); v != "" {
		cfg.Recorder.Mode = v
	}
	if v := os.Getenv("DATAGATE_RECORDER_DSN"); v != "" {
		cfg.Recorder.DSN = v
	}
	if v := os.Getenv("DATAGATE_RECORDER_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Recorder.BatchSize = n
		}
	}
	if v := os.Getenv("DATAGATE_RECORDER_FLUSH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Recorder.FlushInterval = d
		}
	}

	if v := os.Getenv("DATAGATE_ADMIN_ENABLED"); v != "" {
		cfg.Admin.Enabled = parseBool(v)
	}
	if v := os.Getenv("DATAGATE_ADMIN_HOST"); v != "" {
		cfg.Admin.Host = v
	}
	if v := os.Getenv("DATAGATE_ADMIN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Admin.Port = port
		}
	}

	if v := os.Getenv("DATAGATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DATAGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("DATAGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Admin.Host == "" {
		cfg.Admin.Host = "0.0.0.0"
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 8089
	}
	if cfg.Admin.ReadTimeout == 0 {
		cfg.Admin.ReadTimeout = 30 * time.Second
	}
	if cfg.Admin.WriteTimeout == 0 {
		cfg.Admin.WriteTimeout = 60 * time.Second
	}

	if cfg.Transport.Timeout == 0 {
		cfg.Transport.Timeout = 30 * time.Second
	}
	if cfg.Transport.MaxIdleConns == 0 {
		cfg.Transport.MaxIdleConns = 100
	}
	if cfg.Transport.IdleConnTimeout == 0 {
		cfg.Transport.IdleConnTimeout = 90 * time.Second
	}

	if cfg.Recorder.Mode == "" {
		cfg.Recorder.Mode = "memory"
	}
	if cfg.Recorder.DSN == "" {
		cfg.Recorder.DSN = "datagate.db"
	}
	if cfg.Recorder.BatchSize == 0 {
		cfg.Recorder.BatchSize = 100
	}
	if cfg.Recorder.FlushInterval == 0 {
		cfg.Recorder.FlushInterval = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	for i := range cfg.Resources {
		for name, op := range cfg.Resources[i].Operations {
			if op.Method == "" {
				op.Method = "GET"
			}
			if op.Output == "" {
				op.Output = "json"
			}
			cfg.Resources[i].Operations[name] = op
		}
	}
}

var knownOperations = map[string]bool{
	"get": true, "find": true, "findById": true, "findByIdRange": true, "put": true,
}

func validate(cfg *Config) error {
	validRecorderModes := map[string]bool{"none": true, "memory": true, "sqlite": true}
	if !validRecorderModes[cfg.Recorder.Mode] {
		return fmt.Errorf("recorder.mode must be 'none', 'memory' or 'sqlite', got %q", cfg.Recorder.Mode)
	}

	seen := make(map[string]bool)
	for i, res := range cfg.Resources {
		if !resource.ValidName(res.Domain) {
			return fmt.Errorf("resources[%d].domain %q is not a valid name", i, res.Domain)
		}
		if !resource.ValidName(res.Name) {
			return fmt.Errorf("resources[%d].name %q is not a valid name", i, res.Name)
		}
		if seen[res.ID()] {
			return fmt.Errorf("resources[%d]: duplicate resource %s", i, res.ID())
		}
		seen[res.ID()] = true

		if len(res.Operations) == 0 {
			return fmt.Errorf("resources[%d] (%s): no operations declared", i, res.ID())
		}

		refreshes := 0
		for name, op := range res.Operations {
			if !knownOperations[name] {
				return fmt.Errorf("%s: unknown operation %q", res.ID(), name)
			}
			if err := validateOperation(op); err != nil {
				return fmt.Errorf("%s.%s: %w", res.ID(), name, err)
			}
			if op.Path != "" && !op.FullPath && !strings.Contains(op.Path, "://") && cfg.Transport.BaseURL == "" {
				return fmt.Errorf("%s.%s: relative path needs transport.base_url", res.ID(), name)
			}
			if op.RefreshToken != "" {
				refreshes++
			}
		}
		if refreshes > 1 {
			return fmt.Errorf("%s: at most one operation may set refresh_token", res.ID())
		}
	}

	return nil
}

func validateOperation(op OperationConfig) error {
	if _, err := call.ParseOutputKind(op.Output); err != nil {
		return err
	}

	filters := 0
	if op.FilterExpr != "" {
		filters++
	}
	if op.JSONFilter != "" {
		filters++
	}
	if op.FilterPattern != "" {
		filters++
	}
	if filters > 1 {
		return fmt.Errorf("at most one of filter_expr, json_filter and filter_pattern may be set")
	}

	if a := op.Authorization; a != nil {
		if a.Token != "" && (a.User != "" || a.Pass != "") {
			return fmt.Errorf("authorization: token and user/pass are mutually exclusive")
		}
		if len(a.Fields) > 2 {
			return fmt.Errorf("authorization.fields takes at most two names (user, pass)")
		}
	}

	return nil
}
