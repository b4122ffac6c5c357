// Package logging builds the slog loggers used across frameloop.
//
// Two output formats are supported: a compact console format for
// interactive use and JSON for log shipping. Helper constructors keep
// attribute keys consistent between components.
package logging
