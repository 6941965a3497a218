package logger

// Logger is the leveled logging surface the engine's components depend on.
// Implementations live under infra/logger so core packages stay free of
// logging backends.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw attaches structured fields to a debug message.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
