package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spounge-ai/sysaudit/internal/domain"
	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/pkg/patterns/circuitbreaker"
)

// CircuitBreakerRepository fails fast with ErrUnavailable while the
// underlying store keeps failing. Context cancellation does not count as a
// store failure.
type CircuitBreakerRepository struct {
	next    domain.CheckRepository
	breaker *circuitbreaker.Breaker[any]
}

var _ domain.CheckRepository = (*CircuitBreakerRepository)(nil)

func NewCircuitBreakerRepository(next domain.CheckRepository, maxFailures int, resetTimeout time.Duration, onStateChange func(from, to circuitbreaker.State)) *CircuitBreakerRepository {
	opts := []circuitbreaker.Option{
		circuitbreaker.WithFailurePredicate(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}),
	}
	if onStateChange != nil {
		opts = append(opts, circuitbreaker.WithStateChange(onStateChange))
	}
	return &CircuitBreakerRepository{
		next:    next,
		breaker: circuitbreaker.New[any](maxFailures, resetTimeout, opts...),
	}
}

func execute[T any](ctx context.Context, r *CircuitBreakerRepository, fn func(context.Context) (T, error)) (T, error) {
	out, err := r.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		var zero T
		return zero, fmt.Errorf("check store: %w: %w", app_errors.ErrUnavailable, err)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

func (r *CircuitBreakerRepository) ApplyBatch(ctx context.Context, records []domain.CheckRecord, at time.Time) (domain.SubmitResult, error) {
	return execute(ctx, r, func(ctx context.Context) (domain.SubmitResult, error) {
		return r.next.ApplyBatch(ctx, records, at)
	})
}

func (r *CircuitBreakerRepository) ListCurrent(ctx context.Context, filter domain.CheckFilter) ([]domain.CheckRecord, error) {
	return execute(ctx, r, func(ctx context.Context) ([]domain.CheckRecord, error) {
		return r.next.ListCurrent(ctx, filter)
	})
}

func (r *CircuitBreakerRepository) ListHistory(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	return execute(ctx, r, func(ctx context.Context) ([]domain.HistoryEntry, error) {
		return r.next.ListHistory(ctx, limit)
	})
}

func (r *CircuitBreakerRepository) Stats(ctx context.Context) (domain.Stats, error) {
	return execute(ctx, r, func(ctx context.Context) (domain.Stats, error) {
		return r.next.Stats(ctx)
	})
}

// Ping bypasses the breaker so readiness reflects the real store.
func (r *CircuitBreakerRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func (r *CircuitBreakerRepository) Close() error {
	return r.next.Close()
}
