// Package deadline bounds persistence calls made from request paths.
//
// A bounded call fails fast with domain.ErrStorageTimeout once its budget is
// spent, even when the wrapped function ignores its context. The wrapped call
// is not awaited after that point: it may still complete in the background and
// its result is discarded.
package deadline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-verification-room/internal/domain"
	"github.com/go-verification-room/internal/pkg/metrics"
)

// Call runs fn under a budget and returns its result, or an error wrapping
// domain.ErrStorageTimeout when the budget elapses first. op names the
// operation in errors and metrics.
func Call[T any](ctx context.Context, op string, budget time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if budget <= 0 {
		return fn(ctx)
	}
	bctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	// Buffered so an abandoned call can still finish and exit.
	done := make(chan result, 1)
	go func() {
		v, err := fn(bctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return settle(ctx, op, budget, r.v, r.err)
	case <-bctx.Done():
		// A result that raced the deadline still wins.
		select {
		case r := <-done:
			return settle(ctx, op, budget, r.v, r.err)
		default:
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, timeout(op, budget)
	}
}

func settle[T any](ctx context.Context, op string, budget time.Duration, v T, err error) (T, error) {
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		var zero T
		return zero, timeout(op, budget)
	}
	return v, err
}

func timeout(op string, budget time.Duration) error {
	metrics.RecordStorageTimeout(op)
	return fmt.Errorf("%s exceeded %s: %w", op, budget, domain.ErrStorageTimeout)
}

// Do is Call for functions without a result value.
func Do(ctx context.Context, op string, budget time.Duration, fn func(context.Context) error) error {
	_, err := Call(ctx, op, budget, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
