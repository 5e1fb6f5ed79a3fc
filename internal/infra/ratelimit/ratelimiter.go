package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for a rate limiter.
// This allows for different implementations (e.g., in-memory, distributed).
type Limiter interface {
	// Allow checks if a request is allowed for a given identifier (e.g., client address).
	Allow(identifier string) bool
}

// DefaultIdleTTL is how long an unused client limiter is kept.
const DefaultIdleTTL = 10 * time.Minute

// NewInMemoryRateLimiter creates a new in-memory rate limiter with one token
// bucket per identifier. Buckets idle for longer than idleTTL are dropped.
func NewInMemoryRateLimiter(r rate.Limit, b int, idleTTL time.Duration) *InMemoryRateLimiter {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &InMemoryRateLimiter{
		rate:    r,
		burst:   b,
		idleTTL: idleTTL,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type InMemoryRateLimiter struct {
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
	mu        sync.Mutex
}

func (l *InMemoryRateLimiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idleTTL {
		l.sweep(now)
	}

	c, exists := l.clients[identifier]
	if !exists {
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[identifier] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// Len returns the number of tracked identifiers.
func (l *InMemoryRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *InMemoryRateLimiter) sweep(now time.Time) {
	for id, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, id)
		}
	}
	l.lastSweep = now
}
