package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/datagate/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
transport:
  base_url: "http://localhost:3000"
  timeout: 15s
  headers:
    X-Client: "datagate"

recorder:
  mode: "sqlite"
  dsn: ":memory:"
  batch_size: 50
  flush_interval: 5s

admin:
  enabled: true
  host: "127.0.0.1"
  port: 9090

resources:
  - domain: inventory
    name: item
    operations:
      get:
        method: GET
        path: /items/{{id}}
        input: [id]
        output: json
      put:
        method: POST
        path: /items
        input: [data]
        output: bool
        body_pattern: "{{data}}"
        body_type: json
`

	cfg := writeAndLoad(t, content)

	if cfg.Transport.BaseURL != "http://localhost:3000" {
		t.Errorf("Transport.BaseURL = %s, want http://localhost:3000", cfg.Transport.BaseURL)
	}
	if cfg.Transport.Timeout != 15*time.Second {
		t.Errorf("Transport.Timeout = %v, want 15s", cfg.Transport.Timeout)
	}
	if cfg.Transport.Headers["X-Client"] != "datagate" {
		t.Errorf("Transport.Headers = %v, want X-Client entry", cfg.Transport.Headers)
	}
	if cfg.Recorder.Mode != "sqlite" {
		t.Errorf("Recorder.Mode = %s, want sqlite", cfg.Recorder.Mode)
	}
	if cfg.Recorder.BatchSize != 50 {
		t.Errorf("Recorder.BatchSize = %d, want 50", cfg.Recorder.BatchSize)
	}
	if cfg.Admin.Port != 9090 {
		t.Errorf("Admin.Port = %d, want 9090", cfg.Admin.Port)
	}
	if len(cfg.Resources) != 1 {
		t.Fatalf("len(Resources) = %d, want 1", len(cfg.Resources))
	}

	res := cfg.Resources[0]
	if res.ID() != "inventory:item" {
		t.Errorf("ID() = %s, want inventory:item", res.ID())
	}
	get, ok := res.Operations["get"]
	if !ok {
		t.Fatal("get operation missing")
	}
	if get.Path != "/items/{{id}}" {
		t.Errorf("get.Path = %s, want /items/{{id}}", get.Path)
	}
	if len(get.Input) != 1 || get.Input[0] != "id" {
		t.Errorf("get.Input = %v, want [id]", get.Input)
	}
	put := res.Operations["put"]
	if put.BodyPattern != "{{data}}" {
		t.Errorf("put.BodyPattern = %s, want {{data}}", put.BodyPattern)
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
transport:
  base_url: "http://localhost:3000"
`

	cfg := writeAndLoad(t, content)

	if cfg.Admin.Host != "0.0.0.0" {
		t.Errorf("default Admin.Host = %s, want 0.0.0.0", cfg.Admin.Host)
	}
	if cfg.Admin.Port != 8089 {
		t.Errorf("default Admin.Port = %d, want 8089", cfg.Admin.Port)
	}
	if cfg.Transport.Timeout != 30*time.Second {
		t.Errorf("default Transport.Timeout = %v, want 30s", cfg.Transport.Timeout)
	}
	if cfg.Recorder.Mode != "memory" {
		t.Errorf("default Recorder.Mode = %s, want memory", cfg.Recorder.Mode)
	}
	if cfg.Recorder.BatchSize != 100 {
		t.Errorf("default Recorder.BatchSize = %d, want 100", cfg.Recorder.BatchSize)
	}
	if cfg.Recorder.FlushInterval != 10*time.Second {
		t.Errorf("default Recorder.FlushInterval = %v, want 10s", cfg.Recorder.FlushInterval)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default Logging.Format = %s, want json", cfg.Logging.Format)
	}
}

func TestLoad_OperationDefaults(t *testing.T) {
	content := `
transport:
  base_url: "http://localhost:3000"

resources:
  - domain: crm
    name: contact
    operations:
      find:
        path: /contacts
`

	cfg := writeAndLoad(t, content)

	find := cfg.Resources[0].Operations["find"]
	if find.Method != "GET" {
		t.Errorf("default Method = %s, want GET", find.Method)
	}
	if find.Output != "json" {
		t.Errorf("default Output = %s, want json", find.Output)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	os.Setenv("TEST_REMOTE_URL", "http://env-test:3000")
	defer os.Unsetenv("TEST_REMOTE_URL")

	content := `
transport:
  base_url: "${TEST_REMOTE_URL}"
`

	cfg := writeAndLoad(t, content)

	if cfg.Transport.BaseURL != "http://env-test:3000" {
		t.Errorf("BaseURL = %s, want env-expanded value", cfg.Transport.BaseURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("DATAGATE_BASE_URL", "http://override:9000")
	os.Setenv("DATAGATE_RECORDER_MODE", "none")
	os.Setenv("DATAGATE_LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("DATAGATE_BASE_URL")
		os.Unsetenv("DATAGATE_RECORDER_MODE")
		os.Unsetenv("DATAGATE_LOG_LEVEL")
	}()

	content := `
transport:
  base_url: "http://file:3000"

recorder:
  mode: "memory"
`

	cfg := writeAndLoad(t, content)

	if cfg.Transport.BaseURL != "http://override:9000" {
		t.Errorf("BaseURL = %s, env override lost", cfg.Transport.BaseURL)
	}
	if cfg.Recorder.Mode != "none" {
		t.Errorf("Recorder.Mode = %s, env override lost", cfg.Recorder.Mode)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, env override lost", cfg.Logging.Level)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("DATAGATE_BASE_URL", "http://envonly:3000")
	os.Setenv("DATAGATE_ADMIN_PORT", "7070")
	defer func() {
		os.Unsetenv("DATAGATE_BASE_URL")
		os.Unsetenv("DATAGATE_ADMIN_PORT")
	}()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Transport.BaseURL != "http://envonly:3000" {
		t.Errorf("BaseURL = %s, want http://envonly:3000", cfg.Transport.BaseURL)
	}
	if cfg.Admin.Port != 7070 {
		t.Errorf("Admin.Port = %d, want 7070", cfg.Admin.Port)
	}
}

func TestLoadWithFallback_NoConfig(t *testing.T) {
	os.Unsetenv("DATAGATE_BASE_URL")

	_, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error when no config is available")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "bad recorder mode",
			content: `
transport:
  base_url: "http://localhost:3000"
recorder:
  mode: "postgres"
`,
			wantErr: "recorder.mode",
		},
		{
			name: "bad resource domain",
			content: `
transport:
  base_url: "http://localhost:3000"
resources:
  - domain: "Bad Domain"
    name: item
    operations:
      get:
        path: /items
`,
			wantErr: "domain",
		},
		{
			name: "duplicate resource",
			content: `
transport:
  base_url: "http://localhost:3000"
resources:
  - domain: inventory
    name: item
    operations:
      get:
        path: /items
  - domain: inventory
    name: item
    operations:
      find:
        path: /items
`,
			wantErr: "duplicate",
		},
		{
			name: "unknown operation",
			content: `
transport:
  base_url: "http://localhost:3000"
resources:
  - domain: inventory
    name: item
    operations:
      fetch:
        path: /items
`,
			wantErr: "unknown operation",
		},
		{
			name: "no operations",
			content: `
transport:
  base_url: "http://localhost:3000"
resources:
  - domain: inventory
    name: item
`,
			wantErr: "no operations",
		},
		{
			name: "bad output kind",
			content: `
transport:
  base_url: "http://localhost:3000"
resources:
  - domain: inventory
    name: item
    operations:
      get:
        path: /items
        output: xml
`,
			wantErr: "output kind",
		},
		{
			name: "two filters",
			content: `
transport:
  base_url: "http://localhost:3000"
resources:
  - domain: inventory
    name: item
    operations:
      get:
        path: /items
        filter_expr: "output"
        filter_pattern: "{{output}}"
`,
			wantErr: "at most one",
		},
		{
			name: "token and basic auth together",
			content: `
transport:
  base_url: "http://localhost:3000"
resources:
  - domain: inventory
    name: item
    operations:
      get:
        path: /items
        authorization:
          token: "abc"
          user: "joe"
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "relative path without base url",
			content: `
resources:
  - domain: inventory
    name: item
    operations:
      get:
        path: /items
`,
			wantErr: "base_url",
		},
		{
			name: "two refresh operations",
			content: `
transport:
  base_url: "http://localhost:3000"
resources:
  - domain: inventory
    name: item
    operations:
      get:
        path: /login
        refresh_token: "token"
      find:
        path: /session
        refresh_token: "."
`,
			wantErr: "refresh_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := writeAndLoadErr(t, tt.content)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FullPathSkipsBaseURLCheck(t *testing.T) {
	content := `
resources:
  - domain: inventory
    name: item
    operations:
      get:
        path: "http://fixed-host:3000/items"
        output: json
`

	cfg := writeAndLoad(t, content)
	if cfg.Resources[0].Operations["get"].Path != "http://fixed-host:3000/items" {
		t.Error("absolute path was not preserved")
	}
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return config.Load(path)
}
