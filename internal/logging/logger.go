// Package logging provides structured logging for render-runner.
//
// Two families of handlers are available: the stock slog JSON/text handlers
// for machine-readable output, and the severity line handlers (console and
// file) that render "SEVERITY ... message" rows for people reading a terminal
// or a shared log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the subset of *slog.Logger that diagnostic consumers need.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var _ Logger = (*slog.Logger)(nil)

// NewLogger creates a new structured logger with the specified format and level.
// Format should be "json", "text" or "console".
// Level should be "debug", "info", "warn", or "error".
func NewLogger(format, level string, verbose bool) *slog.Logger {
	var handler slog.Handler

	logLevel := parseLevel(level)
	if verbose {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
		// Add source location for debug level
		AddSource: logLevel == slog.LevelDebug,
	}

	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "console":
		handler = NewConsoleHandler(os.Stderr, verbose)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// NewLoggerWithWriter creates a logger that writes to a custom writer.
// Useful for testing.
func NewLoggerWithWriter(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "console":
		handler = NewConsoleHandler(w, opts.Level.Level() <= slog.LevelInfo)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewFileLogger returns a logger whose records go to the given handler and,
// when logFile is non-empty, also to a FileHandler appending to logFile.
func NewFileLogger(primary slog.Handler, logFile string, verbose bool) *slog.Logger {
	if logFile == "" {
		return slog.New(primary)
	}
	return slog.New(Fanout(primary, NewFileHandler(logFile, verbose)))
}

// parseLevel converts a string level to slog.Level.
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

// SetDefault sets the default logger for the slog package.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
