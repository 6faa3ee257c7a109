package rate_limiter

import (
	"context"
	"time"
)

type AtomicCounter struct {
	Limit            int           // max accepted requests per window
	ExpiresIn        time.Duration // reset on every accepted request
	rateLimitHandler AtomicCounterStorer
}

func NewAtomicCounter(handler AtomicCounterStorer, options *AtomicCounter) RateLimiter {
	options.rateLimitHandler = handler
	return options
}

func (ac *AtomicCounter) Allow(ctx context.Context, key string) (Decision, error) {
	count, ok, err := ac.rateLimitHandler.IncrementBelow(ctx, key, ac.Limit, ac.ExpiresIn)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: ok, Count: count}, nil
}
