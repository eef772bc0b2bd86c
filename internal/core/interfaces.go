package core

import (
	"context"
	"sync"
	"time"

	"recipebox/internal/types"
)

// Authenticator resolves a bearer token to an Actor. Implementations return
// auth_* AppErrors for bad credentials and storage_* errors when the session
// store cannot be reached.
type Authenticator interface {
	ResolveToken(ctx context.Context, token string) (*types.Actor, error)
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RateLimitResult is the outcome of one IncrementAndCheck.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// MemoryRateLimiter is a process-local fixed-window RateLimitStore. Counts
// are not shared between replicas.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	clock   types.Clock
	windows map[string]*rateWindow
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// NewMemoryRateLimiter creates a MemoryRateLimiter.
func NewMemoryRateLimiter(clock types.Clock) *MemoryRateLimiter {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &MemoryRateLimiter{clock: clock, windows: make(map[string]*rateWindow)}
}

func (m *MemoryRateLimiter) IncrementAndCheck(_ context.Context, key string, limit int, window time.Duration) (RateLimitResult, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		m.windows[key] = w
		m.evictExpired(now)
	}
	w.count++

	return RateLimitResult{
		Allowed:   w.count <= limit,
		Remaining: max(limit-w.count, 0),
		ResetAt:   w.resetAt,
	}, nil
}

// evictExpired drops finished windows so the map tracks only active clients.
func (m *MemoryRateLimiter) evictExpired(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
		}
	}
}
