// Package logging assembles structured slog loggers and formatting helpers used
// across Archivist components.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code automatically tags log
// lines with asset IDs, stages, worker slots, and correlation IDs. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
