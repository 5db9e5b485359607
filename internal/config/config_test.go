package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *Default() {
		t.Errorf("Load() = %+v, want %+v", cfg, Default())
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("BRIDGE_LOG_LEVEL", "debug")
	t.Setenv("BRIDGE_LOG_DEV", "true")
	t.Setenv("BRIDGE_MEMORY_LIMIT_PAGES", "16")
	t.Setenv("BRIDGE_RUN_TIMEOUT", "2s")
	t.Setenv("BRIDGE_METRICS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		LogLevel:         "debug",
		LogDev:           true,
		MemoryLimitPages: 16,
		RunTimeout:       2 * time.Second,
		Metrics:          true,
	}
	if *cfg != want {
		t.Errorf("Load() = %+v, want %+v", *cfg, want)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("BRIDGE_MEMORY_LIMIT_PAGES", "lots")
	if _, err := Load(); err == nil {
		t.Error("expected error")
	}
	if cfg := LoadOrDefault(); cfg.LogLevel != "info" {
		t.Errorf("LoadOrDefault = %+v", cfg)
	}
}
