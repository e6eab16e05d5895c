package tablestore

import (
	"context"

	"footballsocial/internal/observability"
)

type instrumented struct {
	next    Store
	backend string
	log     *observability.TableLogger
}

// Instrument wraps next so every call is traced, timed and, on failure, logged.
func Instrument(next Store, backend string) Store {
	return &instrumented{next: next, backend: backend, log: observability.NewTableLogger(backend)}
}

func (s *instrumented) observe(ctx context.Context, operation, table string, call func(context.Context) error) error {
	ctx, span := observability.StartTableSpan(ctx, s.backend, operation, table)
	defer span.End()
	defer observability.TrackTableCall(operation, table)()

	err := call(ctx)
	if err != nil {
		span.SetError(err)
		observability.TableCallErrors.WithLabelValues(operation, table).Inc()
		s.log.LogError(ctx, table, operation, err)
		return err
	}
	s.log.LogCall(ctx, table, operation, nil)
	return nil
}

func (s *instrumented) Select(ctx context.Context, table string, q Query, dest any) error {
	return s.observe(ctx, "select", table, func(ctx context.Context) error {
		return s.next.Select(ctx, table, q, dest)
	})
}

func (s *instrumented) Insert(ctx context.Context, table string, rows ...Row) error {
	return s.observe(ctx, "insert", table, func(ctx context.Context) error {
		return s.next.Insert(ctx, table, rows...)
	})
}

func (s *instrumented) Update(ctx context.Context, table string, changes Row, f Filter) error {
	return s.observe(ctx, "update", table, func(ctx context.Context) error {
		return s.next.Update(ctx, table, changes, f)
	})
}

func (s *instrumented) Delete(ctx context.Context, table string, f Filter) error {
	return s.observe(ctx, "delete", table, func(ctx context.Context) error {
		return s.next.Delete(ctx, table, f)
	})
}

func (s *instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
