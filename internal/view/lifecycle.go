// Package view holds the per-page state machines of the feed.
//
// Each view owns its state behind a mutex. After Dispose, continuations of
// calls that were already in flight still run to completion against the
// remote service, but they no longer touch the view, notify its listener or
// navigate.
package view

import (
	"context"
	"sync"

	"footballsocial/internal/observability"
)

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, message string) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// Listener receives a snapshot after every state change. It must not call
// back into the view that invoked it.
type Listener[S any] func(S)

type lifecycle[S any] struct {
	name string

	mu       sync.Mutex // guards disposed and the embedding view's state
	disposed bool

	notifyMu sync.Mutex // orders listener calls
	listener Listener[S]
	snapshot func() S // called with mu held

	nav     Navigator
	pending sync.WaitGroup
}

func (l *lifecycle[S]) init(name string, nav Navigator, snapshot func() S) {
	l.name = name
	l.nav = nav
	l.snapshot = snapshot
}

// OnChange installs the listener. Passing nil removes it.
func (l *lifecycle[S]) OnChange(fn Listener[S]) {
	l.notifyMu.Lock()
	l.listener = fn
	l.notifyMu.Unlock()
}

// Snapshot returns a copy of the current state.
func (l *lifecycle[S]) Snapshot() S {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Dispose detaches the view. It is safe to call more than once.
func (l *lifecycle[S]) Dispose() {
	l.mu.Lock()
	l.disposed = true
	l.mu.Unlock()
}

// Disposed reports whether Dispose was called.
func (l *lifecycle[S]) Disposed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disposed
}

// Wait blocks until every background write started by the view has settled.
func (l *lifecycle[S]) Wait() {
	l.pending.Wait()
}

// mutate runs fn under the state lock and publishes the result. It reports
// false without running fn once the view is disposed.
func (l *lifecycle[S]) mutate(fn func()) bool {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return false
	}
	fn()
	l.mu.Unlock()
	l.publish()
	return true
}

func (l *lifecycle[S]) publish() {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()
	if l.listener == nil {
		return
	}
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return
	}
	snap := l.snapshot()
	l.mu.Unlock()
	l.listener(snap)
}

func (l *lifecycle[S]) navigate(path string) {
	if l.nav == nil || l.Disposed() {
		return
	}
	l.nav.Navigate(path)
}

// background runs fn on a context that outlives ctx's cancellation and is
// tracked by Wait.
func (l *lifecycle[S]) background(ctx context.Context, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		fn(ctx)
	}()
}

// optimistic applies do locally, then runs write in the background. If write
// fails the error is logged and undo is applied, unless the view is gone by
// then. do reports false to skip the write altogether.
func (l *lifecycle[S]) optimistic(ctx context.Context, operation string, fields map[string]interface{}, do func() bool, undo func(), write func(context.Context) error) bool {
	applied := false
	l.mutate(func() { applied = do() })
	if !applied {
		return false
	}

	l.background(ctx, func(ctx context.Context) {
		ctx, span := observability.StartViewSpan(ctx, l.name, operation)
		defer span.End()

		err := write(ctx)
		if err == nil {
			return
		}
		span.SetError(err)
		observability.LogAsyncOperationError(ctx, l.name+"."+operation, err, fields)
		if l.mutate(undo) {
			observability.OptimisticRollbacks.WithLabelValues(operation).Inc()
		}
	})
	return true
}
