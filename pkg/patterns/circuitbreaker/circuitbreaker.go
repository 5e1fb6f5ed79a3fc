package circuitbreaker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var ErrOpen = errors.New("circuit breaker is open")

// Option configures a Breaker.
type Option func(*options)

type options struct {
	now           func() time.Time
	onStateChange func(from, to State)
	isFailure     func(error) bool
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithStateChange registers a callback invoked after every transition.
func WithStateChange(fn func(from, to State)) Option {
	return func(o *options) { o.onStateChange = fn }
}

// WithFailurePredicate limits which errors count as failures. Errors the
// predicate rejects are passed through and treated as successes.
func WithFailurePredicate(fn func(error) bool) Option {
	return func(o *options) { o.isFailure = fn }
}

// Breaker is a generic, thread-safe circuit breaker.
type Breaker[T any] struct {
	maxFailures      int64
	resetTimeout     time.Duration
	halfOpenRequests int64
	opts             options

	state           atomic.Int32
	failures        atomic.Int64
	lastFailureTime atomic.Int64 // Unix nano
	successCount    atomic.Int64
}

// New creates a new generic Circuit Breaker.
func New[T any](maxFailures int, resetTimeout time.Duration, opts ...Option) *Breaker[T] {
	cb := &Breaker[T]{
		maxFailures:      int64(maxFailures),
		resetTimeout:     resetTimeout,
		halfOpenRequests: 1,
		opts:             options{now: time.Now},
	}
	for _, opt := range opts {
		opt(&cb.opts)
	}
	cb.state.Store(int32(StateClosed))
	return cb
}

// State returns the current state.
func (cb *Breaker[T]) State() State {
	return State(cb.state.Load())
}

// Execute wraps a function call with the circuit breaker logic.
func (cb *Breaker[T]) Execute(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	if !cb.canExecute() {
		var zero T
		return zero, ErrOpen
	}

	result, err := fn(ctx)
	cb.recordResult(err)

	return result, err
}

func (cb *Breaker[T]) transition(from, to State) bool {
	if !cb.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	if cb.opts.onStateChange != nil {
		cb.opts.onStateChange(from, to)
	}
	return true
}

func (cb *Breaker[T]) canExecute() bool {
	switch State(cb.state.Load()) {
	case StateClosed:
		return true
	case StateOpen:
		now := cb.opts.now().UnixNano()
		if now > cb.lastFailureTime.Load()+cb.resetTimeout.Nanoseconds() {
			if cb.transition(StateOpen, StateHalfOpen) {
				cb.successCount.Store(0)
			}
			return true
		}
		return false
	case StateHalfOpen:
		return cb.successCount.Load() < cb.halfOpenRequests
	default:
		return false
	}
}

func (cb *Breaker[T]) recordResult(err error) {
	if err != nil && (cb.opts.isFailure == nil || cb.opts.isFailure(err)) {
		newFailures := cb.failures.Add(1)
		cb.lastFailureTime.Store(cb.opts.now().UnixNano())

		currentState := State(cb.state.Load())
		if currentState == StateHalfOpen || (currentState == StateClosed && newFailures >= cb.maxFailures) {
			cb.transition(currentState, StateOpen)
		}
		return
	}

	if State(cb.state.Load()) == StateHalfOpen {
		if cb.successCount.Add(1) >= cb.halfOpenRequests {
			if cb.transition(StateHalfOpen, StateClosed) {
				cb.failures.Store(0)
			}
		}
		return
	}
	cb.failures.Store(0)
}
