// Package lifecycle starts and stops long-running components.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message,omitempty"`
}

// ManagedResource is a component with a start/stop lifecycle. Start and
// Stop must be idempotent.
type ManagedResource interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) HealthStatus
}

// Group starts resources in order and stops them in reverse order.
type Group struct {
	mu        sync.Mutex
	resources []ManagedResource
	started   int
}

var _ ManagedResource = (*Group)(nil)

func NewGroup(resources ...ManagedResource) *Group {
	return &Group{resources: resources}
}

// Start starts every resource not yet started. If one fails, the ones
// already started are stopped again before the error is returned.
func (g *Group) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for g.started < len(g.resources) {
		if err := g.resources[g.started].Start(ctx); err != nil {
			startErr := fmt.Errorf("start resource %d: %w", g.started, err)
			return errors.Join(startErr, g.stopLocked(ctx))
		}
		g.started++
	}
	return nil
}

// Stop stops started resources in reverse order and joins their errors.
func (g *Group) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopLocked(ctx)
}

func (g *Group) stopLocked(ctx context.Context) error {
	var errs []error
	for ; g.started > 0; g.started-- {
		if err := g.resources[g.started-1].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop resource %d: %w", g.started-1, err))
		}
	}
	return errors.Join(errs...)
}

// Health is ready only when every resource is.
func (g *Group) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{Ready: true}
	var messages []string
	for _, r := range g.resources {
		h := r.Health(ctx)
		if !h.Ready {
			status.Ready = false
		}
		if h.Message != "" {
			messages = append(messages, h.Message)
		}
	}
	status.Message = strings.Join(messages, "; ")
	return status
}
