package rate_limiter

import (
	"context"
	"fmt"
	"github/wdns/chatproxy/pkg/config"
	"github/wdns/chatproxy/pkg/enum"
	"log"
	"log/slog"
)

type Servicer interface {
	CheckRateLimit(ctx context.Context, clientKey string) (Decision, error)
	GetCount(ctx context.Context, clientKey string) (int64, error)
	Ping(ctx context.Context) error
}

type Client struct {
	rateStorage Storer
	cfg         config.RateLimitConfig
	rateLimiter RateLimiter
}

func New(storage Storer, cfg config.RateLimitConfig) *Client {
	c := &Client{
		rateStorage: storage,
		cfg:         cfg,
	}
	c.rateLimiter = c.newRateLimiter()
	return c
}

func (c *Client) newRateLimiter() RateLimiter {
	switch c.cfg.Strategy {
	case enum.Atomic:
		return NewAtomicCounter(c.rateStorage, &AtomicCounter{
			Limit:     c.cfg.Limit,
			ExpiresIn: c.cfg.Window,
		})
	case enum.ReadModifyWrite:
		return NewReadModifyWriteCounter(c.rateStorage, &ReadModifyWriteCounter{
			Limit:     c.cfg.Limit,
			ExpiresIn: c.cfg.Window,
		})
	default:
		log.Fatalf("Unknown rate limit strategy: %v", c.cfg.Strategy)
	}

	return nil
}

func (c *Client) storageKey(clientKey string) string {
	return fmt.Sprintf("%s:%s", c.cfg.KeyPrefix, clientKey)
}

func (c *Client) CheckRateLimit(ctx context.Context, clientKey string) (Decision, error) {
	key := c.storageKey(clientKey)
	slog.Debug("checking rate limit", "key", key, "strategy", c.cfg.Strategy.String())

	decision, err := c.rateLimiter.Allow(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("check rate limit %s: %w", key, err)
	}

	decision.Key = key
	decision.Limit = c.cfg.Limit
	return decision, nil
}

func (c *Client) GetCount(ctx context.Context, clientKey string) (int64, error) {
	value, _, err := c.rateStorage.Get(ctx, c.storageKey(clientKey))
	if err != nil {
		return 0, err
	}
	return parseCount(value), nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rateStorage.Ping(ctx)
}
