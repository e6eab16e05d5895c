package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// QueryLogger is the gorm logger of the table store. Statements are logged
// through slog, so view session and request ids from the context come along,
// and each one is added as an event to the span active in the context.
type QueryLogger struct {
	log     *slog.Logger
	backend string
	level   logger.LogLevel
	slow    time.Duration
}

// NewQueryLogger returns a QueryLogger for backend writing to l at warn level.
func NewQueryLogger(l *slog.Logger, backend string) *QueryLogger {
	return &QueryLogger{
		log:     l.With(slog.String("backend", backend)),
		backend: backend,
		level:   logger.Warn,
		slow:    200 * time.Millisecond,
	}
}

// LogMode implements logger.Interface.
func (l *QueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *QueryLogger) printf(ctx context.Context, at logger.LogLevel, lvl slog.Level, msg string, data []interface{}) {
	if l.level >= at {
		l.log.Log(ctx, lvl, fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.printf(ctx, logger.Error, slog.LevelError, msg, data)
}

// classify picks the record for a finished statement. A missing row is
// how single selects report "no post", so it is not an error here.
func (l *QueryLogger) classify(elapsed time.Duration, err error) (slog.Level, string, bool) {
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return slog.LevelError, "query failed", l.level >= logger.Error
	case l.slow > 0 && elapsed > l.slow:
		return slog.LevelWarn, "slow query", l.level >= logger.Warn
	default:
		return slog.LevelInfo, "query", l.level >= logger.Info
	}
}

// Trace implements logger.Interface.
func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	lvl, msg, enabled := l.classify(elapsed, err)

	span := trace.SpanFromContext(ctx)
	if !enabled && !span.IsRecording() {
		return
	}
	stmt, rows := fc()

	if span.IsRecording() {
		span.AddEvent("sql", trace.WithAttributes(
			attribute.String("db.system", l.backend),
			attribute.String("db.statement", stmt),
			attribute.Int64("db.rows", rows),
			attribute.Int64("db.elapsed_ms", elapsed.Milliseconds()),
		))
		if lvl == slog.LevelError {
			span.RecordError(err)
		}
	}
	if !enabled {
		return
	}

	attrs := []slog.Attr{
		slog.String("sql", stmt),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if lvl == slog.LevelError {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.log.LogAttrs(ctx, lvl, msg, attrs...)
}
