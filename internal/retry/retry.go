package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pbaille/chebi/internal/domain"
)

// Policy bounds a retry loop by attempts and by wall-clock time.
// The interval between attempts is fixed.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
	// Deadline caps the total time spent, measured from the first attempt.
	// Zero means no deadline.
	Deadline time.Duration
}

// sleep waits for d or until ctx is done. Tests replace it.
var sleep = func(ctx context.Context, d time.Duration) error {
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

var now = time.Now

// Do calls fn until it succeeds, the attempts run out or the deadline passes.
// onRetry, when non-nil, is called after every failed attempt that will be retried.
// Exhaustion returns an error wrapping domain.ErrTimeout and the last failure;
// a single-attempt policy returns the failure unchanged.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error), onRetry func(attempt int, err error)) (T, error) {
	var zero T
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	start := now()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		if p.Deadline > 0 && now().Add(p.Interval).Sub(start) > p.Deadline {
			return zero, fmt.Errorf("%w: deadline %s reached after %d attempts: %w", domain.ErrTimeout, p.Deadline, attempt, lastErr)
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return zero, err
		}
	}
	if maxAttempts == 1 {
		return zero, lastErr
	}
	return zero, fmt.Errorf("%w: %d attempts failed: %w", domain.ErrTimeout, maxAttempts, lastErr)
}

// Wait blocks for the policy interval unless ctx is done first.
func (p Policy) Wait(ctx context.Context) error {
	return sleep(ctx, p.Interval)
}

// Expired reports whether a loop started at start has outlived the deadline.
func (p Policy) Expired(start time.Time) bool {
	return p.Deadline > 0 && now().Sub(start) > p.Deadline
}
