// Package logging assembles the structured slog loggers used across wificam.
//
// It owns the console and JSON handlers, level parsing, output routing to
// stderr and the log file, and the session and component fields the
// pipeline stamps on its records.
package logging
