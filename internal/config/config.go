package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// StateDir holds the run history database and log files. It is never
	// placed inside either library root.
	StateDir string `toml:"state_dir"`
}

// Output contains the default target encoding. CLI flags override every
// field per run.
type Output struct {
	Format      string  `toml:"format"`
	BitrateKbps int     `toml:"bitrate_kbps"`
	Quality     float64 `toml:"quality"`
	QualitySet  bool    `toml:"-"`
	Complexity  int     `toml:"complexity"`
}

// Art contains album-art handling configuration.
type Art struct {
	// Strategy is one of none, embed-all, prefer-file, file-only.
	Strategy string `toml:"strategy"`
	// Basenames are the case-insensitive file stems recognized as dedicated
	// album art, in preference order.
	Basenames []string `toml:"basenames"`
}

// Filters lists file extensions excluded from synchronization.
type Filters struct {
	ExcludeExtensions []string `toml:"exclude_extensions"`
}

// Sync contains execution tuning.
type Sync struct {
	// Workers bounds the transcode/copy pool. 0 means one per CPU.
	Workers int `toml:"workers"`
	// ScanWorkers bounds the metadata probing pool during the tree walk.
	// Probing is I/O bound so it defaults higher than Workers.
	ScanWorkers int `toml:"scan_workers"`
	// VerifyCopies enables hash verification of verbatim copies.
	VerifyCopies bool `toml:"verify_copies"`
	// WriteRecords controls whether sync records are persisted to the
	// target root. Disabling keeps the target clean but slows later runs.
	WriteRecords bool `toml:"write_records"`
}

// Tools names the external binaries.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	ToFile bool   `toml:"to_file"`
}

// History configures the per-run journal.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for pocketsync.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Output  Output  `toml:"output"`
	Art     Art     `toml:"art"`
	Filters Filters `toml:"filters"`
	Sync    Sync    `toml:"sync"`
	Tools   Tools   `toml:"tools"`
	Logging Logging `toml:"logging"`
	History History `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pocketsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path, the third whether a file was actually read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pocketsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureStateDir creates the state directory used for history and logs.
func (c *Config) EnsureStateDir() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// LogFilePath returns the log file location, or "" when file logging is off.
func (c *Config) LogFilePath() string {
	if !c.Logging.ToFile {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "pocketsync.log")
}

// HistoryDBPath returns the run journal database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// ExpandPath resolves a leading tilde against the current user's home
// directory and returns an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// WriteSample writes the sample configuration to path, refusing to overwrite
// an existing file.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}
