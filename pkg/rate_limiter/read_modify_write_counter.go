package rate_limiter

import (
	"context"
	"strconv"
	"time"
)

// ReadModifyWriteCounter issues a separate Get and Put. Concurrent requests
// sharing a key may both read the same value, so the limit can be exceeded
// by up to the number of in-flight requests minus one.
type ReadModifyWriteCounter struct {
	Limit            int
	ExpiresIn        time.Duration
	rateLimitHandler KeyValueStorer
}

func NewReadModifyWriteCounter(handler KeyValueStorer, options *ReadModifyWriteCounter) RateLimiter {
	options.rateLimitHandler = handler
	return options
}

func (c *ReadModifyWriteCounter) Allow(ctx context.Context, key string) (Decision, error) {
	value, _, err := c.rateLimitHandler.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	count := parseCount(value)
	if count >= int64(c.Limit) {
		return Decision{Allowed: false, Count: count}, nil
	}

	count++
	if err := c.rateLimitHandler.Put(ctx, key, strconv.FormatInt(count, 10), c.ExpiresIn); err != nil {
		return Decision{}, err
	}

	return Decision{Allowed: true, Count: count}, nil
}
