package app

import (
	"context"
	"time"
)

// Operation is a rate-limited operation kind. Each kind gets an independent
// fixed window per actor.
type Operation string

const (
	OpAIGeneration     Operation = "ai-gen"
	OpAnswerSubmission Operation = "answer"
	OpAPICall          Operation = "api"
)

// Limit is a fixed-window quota.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits is the production quota set: 5 generations per hour per
// admin, 30 answer submissions per minute per user, 100 API calls per minute
// per IP.
func DefaultLimits() map[Operation]Limit {
	return map[Operation]Limit{
		OpAIGeneration:     {Requests: 5, Window: time.Hour},
		OpAnswerSubmission: {Requests: 30, Window: time.Minute},
		OpAPICall:          {Requests: 100, Window: time.Minute},
	}
}

// RateLimitResult reports the outcome of a quota check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter checks a fixed-window quota keyed by (operation, actor). It is
// advisory input to the HTTP layer; the engines never call it themselves.
type RateLimiter interface {
	Allow(ctx context.Context, op Operation, actor string) (RateLimitResult, error)
}
