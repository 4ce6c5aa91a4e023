package xterm

import (
	"context"
	"fmt"
	"sync"
)

// Deferred is a value that becomes available later, computed at most once.
// The computation starts on the first Await; later callers share its result.
type Deferred[T any] struct {
	once sync.Once
	fn   func(ctx context.Context) (T, error)
	done chan struct{}
	val  T
	err  error
}

// Just returns an already resolved Deferred.
func Just[T any](v T) *Deferred[T] {
	d := &Deferred[T]{done: make(chan struct{}), val: v}
	d.once.Do(func() { close(d.done) })
	return d
}

// Fail returns a Deferred that resolves to err.
func Fail[T any](err error) *Deferred[T] {
	d := &Deferred[T]{done: make(chan struct{}), err: err}
	d.once.Do(func() { close(d.done) })
	return d
}

// Defer wraps fn. fn runs in its own goroutine with the context of the
// first Await call.
func Defer[T any](fn func(ctx context.Context) (T, error)) *Deferred[T] {
	return &Deferred[T]{fn: fn, done: make(chan struct{})}
}

// Map returns a Deferred holding fn applied to the value of d. Errors from d
// are passed through and fn is not called.
func Map[T, U any](d *Deferred[T], fn func(T) U) *Deferred[U] {
	return Defer(func(ctx context.Context) (U, error) {
		v, err := d.Await(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v), nil
	})
}

// Await blocks until the value is resolved or ctx is done. The computation
// runs with the context of the Await that starts it; an Await whose context
// is already done does not start it, so a later caller still can.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	if d.Resolved() {
		return d.val, d.err
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	d.once.Do(func() {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					d.err = fmt.Errorf("deferred value panicked: %v", r)
				}
				close(d.done)
			}()
			d.val, d.err = d.fn(ctx)
		}()
	})
	select {
	case <-d.done:
		return d.val, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnError returns a Deferred with the outcome of d that also calls fn when d
// fails on its own. Cancellation of the awaiting context is not reported.
func OnError[T any](d *Deferred[T], fn func(error)) *Deferred[T] {
	return Defer(func(ctx context.Context) (T, error) {
		v, err := d.Await(ctx)
		if err != nil && ctx.Err() == nil {
			fn(err)
		}
		return v, err
	})
}

// Resolved reports whether the value is available without blocking.
func (d *Deferred[T]) Resolved() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}
