// Package slogger provides the structured logging facade used across the
// application. It wraps log/slog with field-map helpers so call sites stay
// uniform, and supports swapping the backing logger in tests.
package slogger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Fields represents structured logging fields.
type Fields map[string]interface{}

var (
	loggerMu sync.RWMutex
	logger   *slog.Logger //nolint:gochecknoglobals // Singleton logging infrastructure
)

// Configure installs the global logger with the given level and format.
// Format is "json" or "text"; unknown values fall back to JSON.
func Configure(level, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	SetGlobalLogger(slog.New(handler))
}

// SetGlobalLogger allows setting a custom global logger (useful for testing).
func SetGlobalLogger(l *slog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

func getLogger() *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return logger
}

func attrs(fields Fields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

// Context-aware logging functions (preferred)

// Debug logs a debug message with context.
func Debug(ctx context.Context, msg string, fields Fields) {
	getLogger().DebugContext(ctx, msg, attrs(fields)...)
}

// Info logs an info message with context.
func Info(ctx context.Context, msg string, fields Fields) {
	getLogger().InfoContext(ctx, msg, attrs(fields)...)
}

// Warn logs a warning message with context.
func Warn(ctx context.Context, msg string, fields Fields) {
	getLogger().WarnContext(ctx, msg, attrs(fields)...)
}

// Error logs an error message with context.
func Error(ctx context.Context, msg string, fields Fields) {
	getLogger().ErrorContext(ctx, msg, attrs(fields)...)
}

// ErrorWithError logs an error message with an error object and context.
func ErrorWithError(ctx context.Context, err error, msg string, fields Fields) {
	args := attrs(fields)
	args = append(args, "error", err)
	getLogger().ErrorContext(ctx, msg, args...)
}

// DebugNoCtx logs a debug message without context.
func DebugNoCtx(msg string, fields Fields) {
	Debug(context.Background(), msg, fields)
}

// InfoNoCtx logs an info message without context.
func InfoNoCtx(msg string, fields Fields) {
	Info(context.Background(), msg, fields)
}

// WarnNoCtx logs a warning message without context.
func WarnNoCtx(msg string, fields Fields) {
	Warn(context.Background(), msg, fields)
}

// ErrorNoCtx logs an error message without context.
func ErrorNoCtx(msg string, fields Fields) {
	Error(context.Background(), msg, fields)
}

// ErrorWithErrorNoCtx logs an error message with an error object without context.
func ErrorWithErrorNoCtx(err error, msg string, fields Fields) {
	ErrorWithError(context.Background(), err, msg, fields)
}
