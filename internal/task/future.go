package task

import (
	"context"
	"sync"
)

// Future is the result of a background job without progress semantics.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

// Go runs fn on its own goroutine and returns its future.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		v, err := fn(ctx)
		f.resolve(v, err)
	}()
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Poll returns the result without blocking; ok is false while still running.
func (f *Future[T]) Poll() (v T, ok bool, err error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		return v, false, nil
	}
}

// Wait blocks until the result is available or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
