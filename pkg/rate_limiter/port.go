package rate_limiter

import (
	"context"
	"time"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// KeyValueStorer is the plain get/put contract of a counter store.
// Get reports false when the key is absent or expired.
type KeyValueStorer interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key string, value string, expiresIn time.Duration) error
}

// AtomicCounterStorer reads the counter, compares it with limit and, when
// below, writes count+1 with a fresh expiry, all as one operation.
type AtomicCounterStorer interface {
	IncrementBelow(ctx context.Context, key string, limit int, expiresIn time.Duration) (count int64, allowed bool, err error)
}

type Storer interface {
	KeyValueStorer
	AtomicCounterStorer
	Ping(ctx context.Context) error
	Close() error
}
