package execution

import (
	"context"
	"math/rand"
	"time"
)

// RetryableFunc is a function that can be retried.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// RetryPolicy decides whether an error is worth another attempt.
// A nil policy retries every error.
type RetryPolicy func(error) bool

// WithRetry calls fn up to maxAttempts times with exponential backoff and
// jitter between attempts. It stops early when ctx is done or policy
// rejects the error, returning the last result and error.
func WithRetry[T any](ctx context.Context, maxAttempts int, initialBackoff, maxBackoff time.Duration, policy RetryPolicy, fn RetryableFunc[T]) (T, error) {
	var result T
	var err error

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if policy != nil && !policy(err) {
			return result, err
		}
		if attempt == maxAttempts-1 {
			break
		}

		backoff := initialBackoff * time.Duration(1<<attempt)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		if backoff > 0 {
			backoff += time.Duration(rand.Int63n(int64(backoff)/10 + 1))
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, err
}
