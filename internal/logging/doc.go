// Package logging assembles structured slog loggers and formatting helpers used
// across scenecast.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so workflow code can tag log lines with
// session IDs, stages, and correlation IDs. When a log directory is configured
// every record is also teed as JSON into a file, and CleanupOldLogs prunes old
// files. The package provides a no-op logger for tests and wiring code that
// cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
