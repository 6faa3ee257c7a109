package rate_limiter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"github/wdns/chatproxy/pkg/env"
	"log/slog"
	"time"
)

var ErrRedisAddrMissing = errors.New("redis address is not configured")

//go:embed scripts/increment_below.lua
var incrementBelowScriptSource string

var incrementBelowScript = redis.NewScript(incrementBelowScriptSource)

type RedisStorage struct {
	dB *redis.Client
}

func NewRedis() (Storer, error) {
	envObj := env.GetEnv()
	if envObj.RedisAddr == "" {
		return nil, ErrRedisAddrMissing
	}
	return &RedisStorage{
		dB: redis.NewClient(&redis.Options{
			Addr:     envObj.RedisAddr,
			Password: envObj.RedisPassword,
			DB:       envObj.RedisDb,
			PoolSize: envObj.RedisPoolSize,
		}),
	}, nil
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.dB.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisStorage) Put(ctx context.Context, key string, value string, expiresIn time.Duration) error {
	if err := r.dB.Set(ctx, key, value, expiresIn).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) IncrementBelow(ctx context.Context, key string, limit int, expiresIn time.Duration) (int64, bool, error) {
	result, err := incrementBelowScript.Run(
		ctx,
		r.dB,
		[]string{key},
		limit,
		expiresIn.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("redis increment %s: %w", key, err)
	}
	if len(result) != 2 {
		return 0, false, fmt.Errorf("redis increment %s: unexpected script reply %v", key, result)
	}

	ok, count := result[0], result[1]
	slog.Debug("[AtomicCounter]", "key", key, "ok", ok, "count", count)
	return count, ok > 0, nil
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.dB.Ping(ctx).Err()
}

func (r *RedisStorage) Close() error {
	return r.dB.Close()
}
