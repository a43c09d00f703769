// Package logging assembles structured slog loggers and formatting helpers used
// across moodreel.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so curation stages tag log lines
// with run, movie, and profile IDs. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
package logging
