package eventmodels

import (
	"context"
	"sync"
	"time"
)

// Future is a single-assignment promise resolved by whichever callback
// delivers the first value. Later resolutions are no-ops, so a feed that
// fires repeatedly can resolve without coordination.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{
		done: make(chan struct{}),
	}
}

func (f *Future[T]) Resolve(val T) {
	f.once.Do(func() {
		f.val = val
		close(f.done)
	})
}

func (f *Future[T]) Fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Await blocks until the future resolves, the timeout lapses, or ctx is
// cancelled. Timeout returns ErrFutureTimeout so callers can treat a missing
// first value as best-effort.
func (f *Future[T]) Await(ctx context.Context, timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.val, f.err
	case <-timer.C:
		var zero T
		return zero, ErrFutureTimeout
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// IsResolved reports whether the future already holds a value or error.
func (f *Future[T]) IsResolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
