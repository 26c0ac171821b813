package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger interface for structured logging
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Fatal(msg string, err error, fields ...interface{})
	With(fields ...interface{}) Logger
}

// SlogLogger implements Logger on top of log/slog.
// Fields are alternating key/value pairs.
type SlogLogger struct {
	logger *slog.Logger
	exit   func(code int)
}

// New creates a logger writing to stdout. Production gets JSON output,
// everything else gets human readable text.
func New(environment, level string) Logger {
	return NewWithWriter(os.Stdout, environment, level)
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, environment, level string) Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &SlogLogger{logger: slog.New(handler), exit: os.Exit}
}

// NewNop returns a logger that discards everything
func NewNop() Logger {
	return &SlogLogger{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		exit:   os.Exit,
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Info logs an info message
func (l *SlogLogger) Info(msg string, fields ...interface{}) {
	l.logger.Info(msg, fields...)
}

// Error logs an error message
func (l *SlogLogger) Error(msg string, err error, fields ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, fields...)...)
}

// Warn logs a warning message
func (l *SlogLogger) Warn(msg string, fields ...interface{}) {
	l.logger.Warn(msg, fields...)
}

// Debug logs a debug message
func (l *SlogLogger) Debug(msg string, fields ...interface{}) {
	l.logger.Debug(msg, fields...)
}

// Fatal logs a fatal error and exits
func (l *SlogLogger) Fatal(msg string, err error, fields ...interface{}) {
	l.Error(msg, err, fields...)
	l.exit(1)
}

// With returns a logger that adds fields to every entry
func (l *SlogLogger) With(fields ...interface{}) Logger {
	return &SlogLogger{logger: l.logger.With(fields...), exit: l.exit}
}
