// Package config loads, normalizes, and validates pocketsync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the CLI needs:
// output format defaults, art strategy, filter extensions, worker counts, and
// external tool names. Always obtain settings through this package so
// downstream code receives sanitized paths and validated values.
package config
