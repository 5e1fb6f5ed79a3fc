package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spounge-ai/sysaudit/pkg/patterns/lifecycle"
)

// Pinger is anything that can report store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionMonitor pings the store periodically and logs transitions
// between healthy and unhealthy.
type ConnectionMonitor struct {
	store     Pinger
	logger    *slog.Logger
	interval  time.Duration
	timeout   time.Duration
	mu        sync.RWMutex
	isHealthy bool
	lastErr   error

	cancel context.CancelFunc
	done   chan struct{}
}

var _ lifecycle.ManagedResource = (*ConnectionMonitor)(nil)

func NewConnectionMonitor(store Pinger, interval time.Duration, logger *slog.Logger) *ConnectionMonitor {
	return &ConnectionMonitor{
		store:     store,
		logger:    logger,
		interval:  interval,
		timeout:   5 * time.Second,
		isHealthy: true,
	}
}

// Start checks once and then keeps checking every interval in the
// background until Stop.
func (cm *ConnectionMonitor) Start(ctx context.Context) error {
	cm.mu.Lock()
	if cm.done != nil {
		cm.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cm.cancel = cancel
	cm.done = make(chan struct{})
	cm.mu.Unlock()

	_ = cm.Check(runCtx)
	go cm.run(runCtx)
	return nil
}

func (cm *ConnectionMonitor) run(ctx context.Context) {
	defer close(cm.done)

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = cm.Check(ctx)
		}
	}
}

// Stop ends the background checks.
func (cm *ConnectionMonitor) Stop(ctx context.Context) error {
	cm.mu.Lock()
	cancel, done := cm.cancel, cm.done
	cm.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cm *ConnectionMonitor) Health(_ context.Context) lifecycle.HealthStatus {
	ok, err := cm.IsHealthy()
	status := lifecycle.HealthStatus{Ready: ok}
	if err != nil {
		status.Message = err.Error()
	}
	return status
}

// Check pings the store once and records the outcome.
func (cm *ConnectionMonitor) Check(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	err := cm.store.Ping(checkCtx)

	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.lastErr = err
	switch {
	case err != nil && cm.isHealthy:
		cm.isHealthy = false
		cm.logger.ErrorContext(ctx, "check store unhealthy", "error", err)
	case err == nil && !cm.isHealthy:
		cm.isHealthy = true
		cm.logger.InfoContext(ctx, "check store recovered")
	}
	return err
}

// IsHealthy returns the outcome of the last check and its error.
func (cm *ConnectionMonitor) IsHealthy() (bool, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.isHealthy, cm.lastErr
}
