// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"pocketsync/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with a unique temp state dir per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(t.TempDir(), "state")
	cfg.History.Enabled = false

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithOutputFormat sets the target encoding name.
func WithOutputFormat(name string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Output.Format = name
	}
}

// WithArtStrategy sets the album art strategy.
func WithArtStrategy(strategy string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Art.Strategy = strategy
	}
}

// WriteFile creates a file (and its parents) below root, returning the
// absolute path.
func WriteFile(t testing.TB, root, rel string, data []byte) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
