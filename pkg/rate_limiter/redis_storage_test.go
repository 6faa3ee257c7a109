package rate_limiter

import (
	"context"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

// newTestRedisStorage create a fake redis initialized with the given db
// and returns the fake redis instance and the RedisStorage instance
func newTestRedisStorage(t *testing.T, db map[string]string) (*miniredis.Miniredis, *RedisStorage) {
	mr := miniredis.RunT(t)
	for key, value := range db {
		require.NoError(t, mr.Set(key, value))
	}

	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rc.Close()
	})

	return mr, &RedisStorage{
		dB: rc,
	}
}

func assertNotAllowed(t *testing.T, ok bool, err error, message string) {
	require.NoError(t, err)
	assert.False(t, ok, message)
}

func assertAllowed(t *testing.T, ok bool, err error, message string) {
	require.NoError(t, err)
	assert.True(t, ok, message)
}

func TestRedisStorage_GetPut(t *testing.T) {
	ctx := context.Background()
	mr, storage := newTestRedisStorage(t, nil)

	_, ok, err := storage.Get(ctx, "rate_limit:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok, "unknown key should be absent")

	require.NoError(t, storage.Put(ctx, "rate_limit:1.2.3.4", "4", time.Minute))
	value, ok, err := storage.Get(ctx, "rate_limit:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4", value)
	assert.Equal(t, time.Minute, mr.TTL("rate_limit:1.2.3.4"))

	mr.FastForward(time.Minute)
	_, ok, err = storage.Get(ctx, "rate_limit:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok, "key should be gone once ttl elapsed")
}

func TestRedisStorage_IncrementBelow(t *testing.T) {
	var (
		limit     = 2
		expiresIn = time.Minute
	)

	tests := []struct {
		id        string
		db        map[string]string
		wantOk    bool
		wantCount int64
		wantValue string
	}{
		{
			id:        "Allow request because the counter does not exist",
			db:        map[string]string{},
			wantOk:    true,
			wantCount: 1,
			wantValue: "1",
		},
		{
			id:        "Allow request because the counter is below the limit",
			db:        map[string]string{"rate_limit:john": "1"},
			wantOk:    true,
			wantCount: 2,
			wantValue: "2",
		},
		{
			id:        "Disallow request because the counter reached the limit",
			db:        map[string]string{"rate_limit:john": "2"},
			wantOk:    false,
			wantCount: 2,
			wantValue: "2",
		},
		{
			id:        "Allow request because an unparseable counter reads as zero",
			db:        map[string]string{"rate_limit:john": "garbage"},
			wantOk:    true,
			wantCount: 1,
			wantValue: "1",
		},
		{
			id:        "Allow request because a decimal counter reads its integer part",
			db:        map[string]string{"rate_limit:john": "1.5"},
			wantOk:    true,
			wantCount: 2,
			wantValue: "2",
		},
		{
			id:        "Disallow request because a counter with a trailing suffix reads its leading integer",
			db:        map[string]string{"rate_limit:john": "2abc"},
			wantOk:    false,
			wantCount: 2,
			wantValue: "2abc",
		},
		{
			id:        "Allow request because a negative counter reads as zero",
			db:        map[string]string{"rate_limit:john": "-4"},
			wantOk:    true,
			wantCount: 1,
			wantValue: "1",
		},
	}

	for _, tt := range tests {
		mr, storage := newTestRedisStorage(t, tt.db)

		t.Run(tt.id, func(t *testing.T) {
			count, ok, err := storage.IncrementBelow(context.Background(), "rate_limit:john", limit, expiresIn)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantCount, count)

			value, err := mr.Get("rate_limit:john")
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestRedisStorage_IncrementBelow_Expiry(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted request resets the ttl", func(t *testing.T) {
		mr, storage := newTestRedisStorage(t, nil)
		key := "rate_limit:sliding"

		_, ok, err := storage.IncrementBelow(ctx, key, 10, time.Minute)
		assertAllowed(t, ok, err, "first request")

		mr.FastForward(50 * time.Second)
		_, ok, err = storage.IncrementBelow(ctx, key, 10, time.Minute)
		assertAllowed(t, ok, err, "second request")
		assert.Equal(t, time.Minute, mr.TTL(key))

		mr.FastForward(time.Minute)
		assert.False(t, mr.Exists(key), "key should expire a full window after the last write")
	})

	t.Run("rejected request leaves the ttl untouched", func(t *testing.T) {
		mr, storage := newTestRedisStorage(t, nil)
		key := "rate_limit:blocked"

		_, ok, err := storage.IncrementBelow(ctx, key, 1, time.Minute)
		assertAllowed(t, ok, err, "first request")

		mr.FastForward(30 * time.Second)
		_, ok, err = storage.IncrementBelow(ctx, key, 1, time.Minute)
		assertNotAllowed(t, ok, err, "second request is over the limit")
		assert.Equal(t, 30*time.Second, mr.TTL(key))
	})
}

func TestRedisStorage_IncrementBelow_Concurrent(t *testing.T) {
	_, storage := newTestRedisStorage(t, nil)
	var (
		limit      = 10
		goroutines = 40
		allowed    = make(chan bool, goroutines)
		wg         sync.WaitGroup
	)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := storage.IncrementBelow(context.Background(), "rate_limit:burst", limit, time.Minute)
			assert.NoError(t, err)
			allowed <- ok
		}()
	}
	wg.Wait()
	close(allowed)

	accepted := 0
	for ok := range allowed {
		if ok {
			accepted++
		}
	}
	assert.Equal(t, limit, accepted)
}

func TestRedisStorage_ErrorsAreWrapped(t *testing.T) {
	mr, storage := newTestRedisStorage(t, nil)
	mr.Close()

	_, _, err := storage.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get k")

	_, _, err = storage.IncrementBelow(context.Background(), "k", 1, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis increment k")

	assert.Error(t, storage.Ping(context.Background()))
}
