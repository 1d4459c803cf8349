// Package logging provides structured logging for labstatd.
//
// It wraps log/slog so every component logs the same way. Output is text by
// default and JSON when requested.
//
// Usage:
//
//	logging.Init(slog.LevelInfo, false)
//
//	log := logging.Component("ingestion")
//	log.Info("file ingested", "file_id", id, "rows", n)
//
//	// Request scoped
//	ctx = logging.ContextWithSessionID(ctx, sessionID)
//	logging.WithContext(ctx).Debug("buffer flushed", "size", len(buf))
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance.
var Logger *slog.Logger

// Init initializes the global logger with the specified level and format.
func Init(level slog.Level, jsonFormat bool) {
	InitWriter(os.Stdout, level, jsonFormat)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level slog.Level, jsonFormat bool) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// InitWithHandler initializes the global logger with a custom handler.
func InitWithHandler(handler slog.Handler) {
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ParseLevel converts a config string into a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func ensure() {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
}

// With returns a new logger with additional attributes.
func With(args ...any) *slog.Logger {
	ensure()
	return Logger.With(args...)
}

// Component returns a logger tagged with the component name.
//
// Component loggers are usually created in package-level vars, before Init
// runs. They resolve the global handler on every record, so a later Init
// still applies to them.
func Component(name string) *slog.Logger {
	return slog.New(&globalHandler{}).With("component", name)
}

// globalHandler forwards to the handler of the current global Logger.
type globalHandler struct {
	ops []func(slog.Handler) slog.Handler
}

func (h *globalHandler) current() slog.Handler {
	ensure()
	handler := Logger.Handler()
	for _, op := range h.ops {
		handler = op(handler)
	}
	return handler
}

func (h *globalHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.current().Enabled(ctx, level)
}

func (h *globalHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

func (h *globalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *globalHandler) WithGroup(name string) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *globalHandler) with(op func(slog.Handler) slog.Handler) slog.Handler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &globalHandler{ops: append(ops, op)}
}

// WithContext returns a logger carrying the session and file ids found in ctx.
func WithContext(ctx context.Context) *slog.Logger {
	ensure()
	return Enrich(ctx, Logger)
}

// Enrich adds the context values known to this package to an existing logger.
func Enrich(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if sessionID, ok := ctx.Value(contextKeySessionID).(string); ok {
		logger = logger.With("session_id", sessionID)
	}
	if fileID, ok := ctx.Value(contextKeyFileID).(string); ok {
		logger = logger.With("file_id", fileID)
	}
	if requestID, ok := ctx.Value(contextKeyRequestID).(string); ok {
		logger = logger.With("request_id", requestID)
	}
	return logger
}

type contextKey int

const (
	contextKeySessionID contextKey = iota
	contextKeyFileID
	contextKeyRequestID
)

// ContextWithSessionID adds an ingestion session ID to the context.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKeySessionID, sessionID)
}

// SessionIDFromContext returns the session ID stored in ctx, if any.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKeySessionID).(string)
	return id, ok
}

// ContextWithFileID adds the file being processed to the context.
func ContextWithFileID(ctx context.Context, fileID string) context.Context {
	return context.WithValue(ctx, contextKeyFileID, fileID)
}

// ContextWithRequestID adds an HTTP request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	ensure()
	Logger.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	ensure()
	Logger.Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	ensure()
	Logger.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	ensure()
	Logger.Error(msg, args...)
}
