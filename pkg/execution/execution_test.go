package execution_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spounge-ai/sysaudit/pkg/execution"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func TestWithRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := execution.WithRetry(context.Background(), 3, time.Millisecond, 5*time.Millisecond, nil,
			func(context.Context) (string, error) {
				calls++
				if calls < 3 {
					return "", errTransient
				}
				return "ok", nil
			})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, calls)
	})

	t.Run("policy stops retries", func(t *testing.T) {
		calls := 0
		permanent := errors.New("permanent")
		_, err := execution.WithRetry(context.Background(), 5, time.Millisecond, time.Millisecond,
			func(err error) bool { return errors.Is(err, errTransient) },
			func(context.Context) (int, error) {
				calls++
				return 0, permanent
			})
		require.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := execution.WithRetry(ctx, 5, time.Second, time.Second, nil,
			func(context.Context) (int, error) {
				cancel()
				return 0, errTransient
			})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestWithTimeout(t *testing.T) {
	_, err := execution.WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	got, err := execution.WithTimeout(context.Background(), 0, func(ctx context.Context) (int, error) {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}
