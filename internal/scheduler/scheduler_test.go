package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type countingRunner struct {
	calls atomic.Int32
	block bool
}

func (r *countingRunner) RunPass(ctx context.Context) (*domain.PassReport, error) {
	r.calls.Add(1)
	if r.block {
		<-ctx.Done()
		return &domain.PassReport{Cancelled: true}, nil
	}
	return &domain.PassReport{ID: "pass"}, nil
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := scheduler.New("every tuesday", &countingRunner{}, discard)
	require.Error(t, err)
	assert.ErrorIs(t, err, app_errors.ErrConfig)

	_, err = scheduler.New("*/5 * * * *", &countingRunner{}, discard)
	assert.NoError(t, err)
}

func TestSchedulerRunsPasses(t *testing.T) {
	runner := &countingRunner{}
	s, err := scheduler.New("@every 1s", runner, discard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerSkipsOverlappingPasses(t *testing.T) {
	runner := &countingRunner{block: true}
	s, err := scheduler.New("@every 1s", runner, discard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, 5*time.Second, 50*time.Millisecond)
	time.Sleep(2200 * time.Millisecond)
	assert.Equal(t, int32(1), runner.calls.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
