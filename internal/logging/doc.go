// Package logging assembles structured slog loggers and formatting helpers used
// across placematch.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so batch code can tag every line with
// the run identifier. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits the same field names (component, event_type, error_hint, impact,
// place_id, external_id, decision_*).
package logging
