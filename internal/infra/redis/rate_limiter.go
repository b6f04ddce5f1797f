package redis

import (
	"context"
	"time"

	"eventqa-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window limiter on Redis, shared across instances.
// Counters live at ratelimit:{op}:{actor}; the first hit in a window sets
// the expiry, later hits only increment.
type RateLimiter struct {
	client *redis.Client
	limits map[app.Operation]app.Limit
}

func NewRateLimiter(client *redis.Client, limits map[app.Operation]app.Limit) *RateLimiter {
	if limits == nil {
		limits = app.DefaultLimits()
	}
	return &RateLimiter{client: client, limits: limits}
}

func (l *RateLimiter) Allow(ctx context.Context, op app.Operation, actor string) (app.RateLimitResult, error) {
	limit, ok := l.limits[op]
	if !ok || limit.Requests <= 0 {
		return app.RateLimitResult{Allowed: true}, nil
	}

	key := l.key(op, actor)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return app.RateLimitResult{}, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, limit.Window).Err(); err != nil {
			return app.RateLimitResult{}, err
		}
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = limit.Window
	}

	remaining := limit.Requests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return app.RateLimitResult{
		Allowed:   int(count) <= limit.Requests,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

func (l *RateLimiter) key(op app.Operation, actor string) string {
	return "ratelimit:" + string(op) + ":" + actor
}
