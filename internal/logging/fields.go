package logging

import "log/slog"

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID is the standardized structured logging key for run session identifiers.
	FieldSessionID = "session_id"
	// FieldSeq is the standardized structured logging key for frame sequence numbers.
	FieldSeq = "seq"
)

// WithSession returns a logger that stamps every record with the run's
// session id. The id stays at the top level even if groups are opened later.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldSessionID, sessionID))
}
