// Package logging constructs slog loggers for pocketsync and centralizes the
// structured attribute vocabulary used across the sync pipeline.
//
// Component loggers carry a "component" attribute so scan, plan, and execution
// output can be filtered apart. The console format is the default for
// interactive use; json is available for captured runs.
package logging
