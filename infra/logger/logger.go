package logger

import corelogger "github.com/kdarko/wastedispatch/core/logger"

// Logger re-exports the core logging interface so infra packages and tests
// need only one logger import.
type Logger = corelogger.Logger

// New builds the default zerolog-backed Logger for a component, formatted
// per the APP_ENV environment variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// NopLogger discards every entry. It is the logger of choice in tests and
// the fallback when a component is wired without one.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}
