package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
storage:
  gcs_bucket: scraper-artifacts
  local_dir: /tmp/repo
sandbox:
  interpreter: python3.12
  timeout_seconds: 10
fetch:
  user_agent: vault-agent
  nav_timeout_seconds: 20
  max_parallel: 4
  min_document_bytes: 256
history:
  dsn: postgres://localhost/vault
events:
  project_id: proj
  topic_name: scraper-events
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.GCSBucket != "scraper-artifacts" || cfg.Storage.LocalDir != "/tmp/repo" {
		t.Fatalf("expected storage overrides to apply, got %+v", cfg.Storage)
	}
	if cfg.Sandbox.Interpreter != "python3.12" || cfg.Sandbox.TimeoutSeconds != 10 {
		t.Fatalf("expected sandbox overrides to apply, got %+v", cfg.Sandbox)
	}
	if cfg.Fetch.MinDocumentBytes != 256 || cfg.Fetch.MaxParallel != 4 {
		t.Fatalf("expected fetch overrides to apply, got %+v", cfg.Fetch)
	}
	if cfg.History.DSN == "" || cfg.Events.TopicName != "scraper-events" {
		t.Fatalf("expected history/events overrides to apply")
	}
	if cfg.Logging.Development {
		t.Fatal("expected development logging disabled")
	}
	if cfg.SandboxTimeout() != 10*time.Second {
		t.Fatalf("expected 10s sandbox timeout, got %s", cfg.SandboxTimeout())
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Sandbox.Interpreter != "python3" || cfg.Sandbox.TimeoutSeconds != 30 {
		t.Fatalf("unexpected sandbox defaults: %+v", cfg.Sandbox)
	}
	if cfg.Storage.GCSBucket != "" {
		t.Fatalf("expected no remote bucket by default, got %q", cfg.Storage.GCSBucket)
	}
	if cfg.NavTimeout() != 30*time.Second {
		t.Fatalf("unexpected nav timeout: %s", cfg.NavTimeout())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ZeroPort", func(c *Config) { c.Server.Port = 0 }},
		{"EmptyLocalDir", func(c *Config) { c.Storage.LocalDir = " " }},
		{"ZeroSandboxTimeout", func(c *Config) { c.Sandbox.TimeoutSeconds = 0 }},
		{"EmptyInterpreter", func(c *Config) { c.Sandbox.Interpreter = "" }},
		{"ZeroNavTimeout", func(c *Config) { c.Fetch.NavTimeoutSec = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
