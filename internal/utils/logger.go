package utils

import (
	"log/slog"
	"os"
)

// Logger is a thin wrapper around slog for the application
type Logger struct {
	log *slog.Logger
}

// NewLogger creates a JSON logger writing to stdout
func NewLogger() *Logger {
	return &Logger{
		log: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
}

// Info logs an informational message with key-value attributes
func (l *Logger) Info(msg string, args ...any) {
	l.log.Info(msg, args...)
}

// Error logs an error message with key-value attributes
func (l *Logger) Error(msg string, args ...any) {
	l.log.Error(msg, args...)
}

// Slog exposes the underlying slog logger for libraries that want one
func (l *Logger) Slog() *slog.Logger {
	return l.log
}
