package config

import (
	"errors"
	"fmt"
)

var validLogFormats = map[string]struct{}{"console": {}, "json": {}}

var validArtStrategies = map[string]struct{}{
	"none":        {},
	"embed-all":   {},
	"prefer-file": {},
	"file-only":   {},
}

var validOutputFormats = map[string]struct{}{
	"mp3-cbr": {},
	"mp3-vbr": {},
	"opus":    {},
	"vorbis":  {},
	"flac":    {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateArt(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOutput() error {
	if _, ok := validOutputFormats[c.Output.Format]; !ok {
		return fmt.Errorf("output.format %q is not one of mp3-cbr, mp3-vbr, opus, vorbis, flac", c.Output.Format)
	}
	if c.Output.BitrateKbps < 0 {
		return errors.New("output.bitrate_kbps must not be negative")
	}
	return nil
}

func (c *Config) validateArt() error {
	if _, ok := validArtStrategies[c.Art.Strategy]; !ok {
		return fmt.Errorf("art.strategy %q is not one of none, embed-all, prefer-file, file-only", c.Art.Strategy)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Workers > 256 {
		return errors.New("sync.workers must be at most 256")
	}
	if c.Sync.ScanWorkers > 256 {
		return errors.New("sync.scan_workers must be at most 256")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, ok := validLogFormats[c.Logging.Format]; !ok {
		return fmt.Errorf("logging.format %q is not one of console, json", c.Logging.Format)
	}
	return nil
}
