// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// SetLogger replaces the logger used by the helpers in this package.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// Logger returns the logger used by the helpers in this package.
func Logger() *slog.Logger {
	return logger.Load()
}

func fieldAttrs(base []any, fields map[string]interface{}) []any {
	for k, v := range fields {
		base = append(base, slog.Any(k, v))
	}
	return base
}

// TableLogger provides structured logging for table store calls.
type TableLogger struct {
	backend string
}

// NewTableLogger creates a TableLogger for the given store backend.
func NewTableLogger(backend string) *TableLogger {
	return &TableLogger{backend: backend}
}

// LogError logs a failed table call.
func (l *TableLogger) LogError(ctx context.Context, table, operation string, err error) {
	Logger().ErrorContext(ctx, "table call failed",
		slog.String("backend", l.backend),
		slog.String("table", table),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// LogCall logs a completed table call at debug level.
func (l *TableLogger) LogCall(ctx context.Context, table, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("backend", l.backend),
		slog.String("table", table),
		slog.String("operation", operation),
	}
	Logger().DebugContext(ctx, "table call", fieldAttrs(attrs, fields)...)
}

// LogAsyncOperationStart logs the start of an asynchronous operation.
func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_start"),
	}
	Logger().DebugContext(ctx, "async operation started", fieldAttrs(attrs, fields)...)
}

// LogAsyncOperationEnd logs the completion of an asynchronous operation.
func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_end"),
	}
	Logger().DebugContext(ctx, "async operation completed", fieldAttrs(attrs, fields)...)
}

// LogAsyncOperationError logs an error in an asynchronous operation.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
	}
	Logger().ErrorContext(ctx, "async operation failed", fieldAttrs(attrs, fields)...)
}

// WSLogger provides structured logging for websocket view sessions.
type WSLogger struct {
	view string
}

// NewWSLogger creates a WSLogger for sessions of the named view.
func NewWSLogger(view string) *WSLogger {
	return &WSLogger{view: view}
}

// LogConnect logs a session opening.
func (l *WSLogger) LogConnect(ctx context.Context, fields map[string]interface{}) {
	attrs := []any{slog.String("view", l.view)}
	Logger().InfoContext(ctx, "websocket connected", fieldAttrs(attrs, fields)...)
}

// LogDisconnect logs a session closing.
func (l *WSLogger) LogDisconnect(ctx context.Context, reason string) {
	Logger().InfoContext(ctx, "websocket disconnected",
		slog.String("view", l.view),
		slog.String("reason", reason),
	)
}

// LogMessage logs an incoming session message.
func (l *WSLogger) LogMessage(ctx context.Context, messageType string) {
	Logger().DebugContext(ctx, "websocket message",
		slog.String("view", l.view),
		slog.String("message_type", messageType),
	)
}

// LogError logs a session error.
func (l *WSLogger) LogError(ctx context.Context, eventType string, err error) {
	Logger().ErrorContext(ctx, "websocket error",
		slog.String("view", l.view),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}
