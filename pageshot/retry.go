package pageshot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AttemptFunc performs attempt n (1-based) of an operation.
type AttemptFunc[T any] func(ctx context.Context, n int) (T, error)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Retry returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry runs fn up to budget times and returns the first success with the
// attempt number that produced it. When every attempt fails the errors are
// joined. A Permanent error or a cancelled context stops immediately.
func Retry[T any](ctx context.Context, budget int, fn AttemptFunc[T]) (T, int, error) {
	var zero T
	if budget < 1 {
		budget = 1
	}

	var errs []error
	for n := 1; n <= budget; n++ {
		if err := ctx.Err(); err != nil {
			return zero, n - 1, err
		}
		v, err := fn(ctx, n)
		if err == nil {
			return v, n, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, n, perm.err
		}
		errs = append(errs, fmt.Errorf("attempt %d: %w", n, err))
	}
	return zero, budget, errors.Join(errs...)
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
