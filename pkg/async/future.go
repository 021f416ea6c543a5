package async

import (
	"context"
	"sync"
)

// Future holds the single terminal result of an asynchronous operation.
// Only the first Resolve or Reject takes effect; later calls are ignored.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	value     T
	err       error
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go runs fn in a goroutine and completes the returned future with its
// result.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		value, err := fn(ctx)
		f.complete(value, err)
	}()
	return f
}

// Resolve reports whether this call completed the future.
func (f *Future[T]) Resolve(value T) bool {
	return f.complete(value, nil)
}

// Reject reports whether this call completed the future.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.complete(zero, err)
}

func (f *Future[T]) complete(value T, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed {
		return false
	}
	f.completed = true
	f.value = value
	f.err = err
	close(f.done)
	return true
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future completes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Peek returns the result without blocking. ok is false while the future is
// still pending.
func (f *Future[T]) Peek() (value T, ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.completed, f.err
}
