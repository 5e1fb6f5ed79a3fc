package circuitbreaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spounge-ai/sysaudit/pkg/patterns/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail(context.Context) (int, error) { return 0, errBoom }
func ok(context.Context) (int, error)   { return 1, nil }

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var transitions []string
	cb := circuitbreaker.New[int](2, time.Minute,
		circuitbreaker.WithClock(func() time.Time { return now }),
		circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)
	ctx := context.Background()

	_, err := cb.Execute(ctx, fail)
	require.ErrorIs(t, err, errBoom)
	_, err = cb.Execute(ctx, fail)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())

	_, err = cb.Execute(ctx, ok)
	require.ErrorIs(t, err, circuitbreaker.ErrOpen)

	now = now.Add(2 * time.Minute)
	got, err := cb.Execute(ctx, ok)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestBreakerFailurePredicate(t *testing.T) {
	ignored := errors.New("client error")
	cb := circuitbreaker.New[int](1, time.Minute,
		circuitbreaker.WithFailurePredicate(func(err error) bool { return !errors.Is(err, ignored) }))

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(context.Background(), func(context.Context) (int, error) { return 0, ignored })
		require.ErrorIs(t, err, ignored)
	}
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}
