// Package deadline runs a single upstream call under its own timeout.
package deadline

import (
	"context"
	"fmt"
	"time"
)

type outcome[T any] struct {
	value T
	err   error
}

// Call runs fn with a context that expires after d and waits for whichever
// comes first: fn's answer or the deadline. A call that overruns is abandoned;
// its goroutine drains into a buffered channel. Panics inside fn are returned
// as errors.
func Call[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- outcome[T]{value: zero, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(callCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-callCtx.Done():
		var zero T
		return zero, callCtx.Err()
	}
}
