// Package logging assembles structured slog loggers and formatting helpers used
// across the minute daemon and CLI.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so lifecycle code can
// automatically tag log lines with meeting IDs, bot IDs, webhook event names,
// and correlation IDs. The package also provides a no-op logger for tests and
// wiring code that cannot fail, plus the in-memory stream hub and on-disk
// event archive that back log streaming over the HTTP API.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
