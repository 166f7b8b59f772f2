// Package logging assembles structured slog loggers and formatting helpers used
// across decart.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so loader and cache code tag
// log lines with the cartridge source, operation and correlation ID. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
