// Package testsupport provides shared helpers for dialbridge tests: temp
// configs, a fake host capability, and state-record writers.
package testsupport

import (
	"path/filepath"
	"testing"

	"dialbridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.FallbackDirs = []string{filepath.Join(base, "fallback")}
	cfg.Paths.MappingsDir = filepath.Join(base, "mappings")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Socket = filepath.Join(base, "dialbridged.sock")
	cfg.Host.Socket = filepath.Join(base, "host.sock")
	cfg.Devices.MonitorHotplug = false

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithPollInterval overrides the engine poll interval in milliseconds.
func WithPollInterval(ms int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Engine.PollIntervalMillis = ms
	}
}

// WithConsoleDisabled turns off the multi-channel console record pass.
func WithConsoleDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Engine.ConsoleEnabled = false
	}
}
