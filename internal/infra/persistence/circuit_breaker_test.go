package persistence_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/infra/persistence"
	"github.com/spounge-ai/sysaudit/pkg/patterns/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyRepo struct {
	domain.CheckRepository
	err   error
	calls int
}

func (f *flakyRepo) Stats(context.Context) (domain.Stats, error) {
	f.calls++
	return domain.Stats{}, f.err
}

func (f *flakyRepo) Ping(context.Context) error { return f.err }

func TestCircuitBreakerRepository(t *testing.T) {
	inner := &flakyRepo{err: errors.New("connection refused")}
	var opened bool
	repo := persistence.NewCircuitBreakerRepository(inner, 2, time.Hour, func(_, to circuitbreaker.State) {
		opened = opened || to == circuitbreaker.StateOpen
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := repo.Stats(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, app_errors.ErrUnavailable)
	}
	assert.True(t, opened)

	_, err := repo.Stats(ctx)
	require.ErrorIs(t, err, app_errors.ErrUnavailable)
	assert.Equal(t, 2, inner.calls, "open breaker does not reach the store")

	require.Error(t, repo.Ping(ctx), "ping bypasses the breaker")
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	inner := &flakyRepo{err: context.Canceled}
	repo := persistence.NewCircuitBreakerRepository(inner, 1, time.Hour, nil)

	for i := 0; i < 3; i++ {
		_, err := repo.Stats(context.Background())
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 3, inner.calls)
}

func TestConnectionMonitor(t *testing.T) {
	inner := &flakyRepo{err: errors.New("down")}
	mon := persistence.NewConnectionMonitor(inner, time.Minute, discard)

	require.Error(t, mon.Check(context.Background()))
	healthy, err := mon.IsHealthy()
	assert.False(t, healthy)
	require.Error(t, err)

	inner.err = nil
	require.NoError(t, mon.Check(context.Background()))
	healthy, err = mon.IsHealthy()
	assert.True(t, healthy)
	require.NoError(t, err)
}

type countingPinger struct {
	pings atomic.Int32
}

func (p *countingPinger) Ping(context.Context) error {
	p.pings.Add(1)
	return nil
}

func TestConnectionMonitorLifecycle(t *testing.T) {
	pinger := &countingPinger{}
	mon := persistence.NewConnectionMonitor(pinger, 10*time.Millisecond, discard)

	ctx := context.Background()
	require.NoError(t, mon.Start(ctx))
	require.NoError(t, mon.Start(ctx))
	assert.Eventually(t, func() bool { return pinger.pings.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, mon.Health(ctx).Ready)

	require.NoError(t, mon.Stop(ctx))
	stopped := pinger.pings.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, pinger.pings.Load())
}
