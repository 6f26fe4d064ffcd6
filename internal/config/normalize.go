package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOutput()
	c.normalizeArt()
	c.normalizeFilters()
	c.normalizeSync()
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	// TOML cannot distinguish an absent quality from an explicit zero;
	// zero means unset here, and quality 0 stays reachable via the CLI.
	c.Output.QualitySet = c.Output.Quality != 0
}

func (c *Config) normalizeArt() {
	c.Art.Strategy = strings.ToLower(strings.TrimSpace(c.Art.Strategy))
	if c.Art.Strategy == "" {
		c.Art.Strategy = defaultArtStrategy
	}
	if len(c.Art.Basenames) == 0 {
		c.Art.Basenames = defaultArtBasenames()
		return
	}
	names := make([]string, 0, len(c.Art.Basenames))
	seen := make(map[string]struct{}, len(c.Art.Basenames))
	for _, name := range c.Art.Basenames {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		names = append(names, normalized)
	}
	if len(names) == 0 {
		names = defaultArtBasenames()
	}
	c.Art.Basenames = names
}

func (c *Config) normalizeFilters() {
	exts := make([]string, 0, len(c.Filters.ExcludeExtensions))
	seen := make(map[string]struct{}, len(c.Filters.ExcludeExtensions))
	for _, ext := range c.Filters.ExcludeExtensions {
		normalized := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(ext, ".")))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	c.Filters.ExcludeExtensions = exts
}

func (c *Config) normalizeSync() {
	if c.Sync.Workers < 0 {
		c.Sync.Workers = 0
	}
	if c.Sync.ScanWorkers <= 0 {
		c.Sync.ScanWorkers = defaultScanWorkers
	}
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
