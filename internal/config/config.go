// Package config loads host settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix, e.g. BRIDGE_LOG_LEVEL.
const Prefix = "BRIDGE"

// Config holds host configuration.
type Config struct {
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	LogDev           bool          `envconfig:"LOG_DEV" default:"false"`
	MemoryLimitPages uint32        `envconfig:"MEMORY_LIMIT_PAGES" default:"0"`
	RunTimeout       time.Duration `envconfig:"RUN_TIMEOUT" default:"0s"`
	Metrics          bool          `envconfig:"METRICS" default:"false"`
}

// Load reads configuration from BRIDGE_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration or falls back to Default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{LogLevel: "info"}
}
