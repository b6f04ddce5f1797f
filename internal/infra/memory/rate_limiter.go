package memory

import (
	"context"
	"sync"
	"time"

	"eventqa-service/internal/app"
)

// RateLimiter is a map-backed fixed-window limiter. Windows expire lazily on
// the next check; Cleanup drops stale entries and is meant to run on a
// ticker.
type RateLimiter struct {
	limits map[app.Operation]app.Limit
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]windowEntry
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limits map[app.Operation]app.Limit) *RateLimiter {
	if limits == nil {
		limits = app.DefaultLimits()
	}
	return &RateLimiter{
		limits:  limits,
		clock:   time.Now,
		windows: make(map[string]windowEntry),
	}
}

// WithClock overrides the time source, for deterministic tests.
func (l *RateLimiter) WithClock(clock func() time.Time) *RateLimiter {
	l.clock = clock
	return l
}

func (l *RateLimiter) Allow(_ context.Context, op app.Operation, actor string) (app.RateLimitResult, error) {
	limit, ok := l.limits[op]
	if !ok || limit.Requests <= 0 {
		return app.RateLimitResult{Allowed: true}, nil
	}

	now := l.clock()
	key := string(op) + ":" + actor

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.windows[key]
	if !exists || !entry.resetAt.After(now) {
		entry = windowEntry{count: 0, resetAt: now.Add(limit.Window)}
	}
	entry.count++
	l.windows[key] = entry

	remaining := limit.Requests - entry.count
	if remaining < 0 {
		remaining = 0
	}
	return app.RateLimitResult{
		Allowed:   entry.count <= limit.Requests,
		Remaining: remaining,
		ResetAt:   entry.resetAt,
	}, nil
}

// Cleanup removes expired windows.
func (l *RateLimiter) Cleanup() {
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.windows {
		if !entry.resetAt.After(now) {
			delete(l.windows, key)
		}
	}
}
