// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	History HistoryConfig `mapstructure:"history"`
	Events  EventsConfig  `mapstructure:"events"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// StorageConfig selects the storage tiers. GCSBucket is optional; when empty
// the repository runs in local-only mode.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
}

// SandboxConfig governs isolated execution of candidate scraper code.
type SandboxConfig struct {
	Interpreter    string `mapstructure:"interpreter"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	WorkDir        string `mapstructure:"work_dir"`
}

// FetchConfig configures the page fetchers.
type FetchConfig struct {
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSec     int    `mapstructure:"nav_timeout_seconds"`
	MaxParallel       int    `mapstructure:"max_parallel"`
	MinDocumentBytes  int    `mapstructure:"min_document_bytes"`
	HeadlessPromotion bool   `mapstructure:"headless_promotion"`
}

// HistoryConfig controls the optional validation-run audit store.
type HistoryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// EventsConfig holds metadata for publish-subscribe notifications.
type EventsConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPERVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.local_dir", "data/repository")
	v.SetDefault("sandbox.interpreter", "python3")
	v.SetDefault("sandbox.timeout_seconds", 30)
	v.SetDefault("fetch.user_agent", "scrapervault/0.1")
	v.SetDefault("fetch.nav_timeout_seconds", 30)
	v.SetDefault("fetch.max_parallel", 2)
	v.SetDefault("fetch.min_document_bytes", 100)
	v.SetDefault("fetch.headless_promotion", true)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		return fmt.Errorf("storage.local_dir must be set")
	}
	if c.Sandbox.TimeoutSeconds <= 0 {
		return fmt.Errorf("sandbox.timeout_seconds must be > 0")
	}
	if strings.TrimSpace(c.Sandbox.Interpreter) == "" {
		return fmt.Errorf("sandbox.interpreter must be set")
	}
	if c.Fetch.NavTimeoutSec <= 0 {
		return fmt.Errorf("fetch.nav_timeout_seconds must be > 0")
	}
	return nil
}

// SandboxTimeout converts the configured sandbox limit into a duration.
func (c Config) SandboxTimeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutSeconds) * time.Second
}

// NavTimeout converts the configured navigation limit into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Fetch.NavTimeoutSec) * time.Second
}
