// Package ratelimit limits requests per client key within a time window.
//
// Two backends exist: an in-process fixed window for single instances and a
// Redis sorted-set sliding window shared by every instance pointing at the
// same Redis.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	// RetryAfter is how long the caller should wait; zero when allowed.
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type noLimiter struct{}

func (noLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// None returns a Limiter that allows everything.
func None() Limiter {
	return noLimiter{}
}
