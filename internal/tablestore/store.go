// Package tablestore is the client for the remote table-oriented data service.
//
// A Store exposes select, insert, update and delete against named tables with
// an optional equality filter. Callers must check the returned error before
// trusting any payload; there are no retries at this layer.
package tablestore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotSingle is returned when a single-row select matches zero or several rows.
	ErrNotSingle = errors.New("tablestore: expected exactly one row")
	// ErrUnknownTable is returned for tables the store was not configured with.
	ErrUnknownTable = errors.New("tablestore: unknown table")
	// ErrMissingFilter is returned when a mutation is attempted without a filter.
	ErrMissingFilter = errors.New("tablestore: filter required")
)

// Row is a field map keyed by column name.
type Row map[string]any

// Filter is an equality filter on one column.
type Filter struct {
	Column string
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Value: value}
}

// Order orders a select by one column.
type Order struct {
	Column     string
	Descending bool
}

// Query describes a select. Single requires exactly one matching row and
// expects dest to point at a struct rather than a slice.
type Query struct {
	Filter *Filter
	Order  *Order
	Single bool
}

// Where returns a copy of q filtered by column = value.
func (q Query) Where(column string, value any) Query {
	f := Eq(column, value)
	q.Filter = &f
	return q
}

// OrderBy returns a copy of q ordered by column.
func (q Query) OrderBy(column string, descending bool) Query {
	q.Order = &Order{Column: column, Descending: descending}
	return q
}

// One returns a copy of q constrained to exactly one result.
func (q Query) One() Query {
	q.Single = true
	return q
}

// Store is the remote data service.
type Store interface {
	Select(ctx context.Context, table string, q Query, dest any) error
	Insert(ctx context.Context, table string, rows ...Row) error
	Update(ctx context.Context, table string, changes Row, f Filter) error
	Delete(ctx context.Context, table string, f Filter) error
	Ping(ctx context.Context) error
}

func notSingle(table string, n int) error {
	if n == 0 {
		return fmt.Errorf("%w: no rows in %s", ErrNotSingle, table)
	}
	return fmt.Errorf("%w: multiple rows in %s", ErrNotSingle, table)
}

func validFilter(f Filter) error {
	if f.Column == "" {
		return ErrMissingFilter
	}
	return nil
}
