package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// zerologLogger adapts rs/zerolog to the engine's Logger interface. Every
// entry carries the originating component as a field.
type zerologLogger struct {
	z zerolog.Logger
}

// NewZerologLogger builds the service logger for a component. APP_ENV=dev
// switches to the human-readable console writer; any other value emits JSON
// lines for log shipping.
func NewZerologLogger(component string) Logger {
	z := zerolog.New(logOutput()).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &zerologLogger{z: z}
}

func logOutput() io.Writer {
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return os.Stdout
}

func (l *zerologLogger) Debugf(format string, args ...any) {
	l.z.Debug().Msgf(format, args...)
}

// Debugw emits a debug entry with structured fields attached.
func (l *zerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.z.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *zerologLogger) Infof(format string, args ...any) {
	l.z.Info().Msgf(format, args...)
}

func (l *zerologLogger) Warnf(format string, args ...any) {
	l.z.Warn().Msgf(format, args...)
}

func (l *zerologLogger) Errorf(format string, args ...any) {
	l.z.Error().Msgf(format, args...)
}
