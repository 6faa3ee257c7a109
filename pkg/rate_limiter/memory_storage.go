package rate_limiter

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type MemoryStorage struct {
	mu  *sync.Mutex
	db  map[string]memoryEntry
	now func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return NewMemoryStorageWithClock(time.Now)
}

func NewMemoryStorageWithClock(now func() time.Time) *MemoryStorage {
	return &MemoryStorage{
		mu:  &sync.Mutex{},
		db:  make(map[string]memoryEntry),
		now: now,
	}
}

// lookup must be called with mu held.
func (m *MemoryStorage) lookup(key string, now time.Time) (memoryEntry, bool) {
	entry, ok := m.db[key]
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(now) {
		delete(m.db, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (m *MemoryStorage) store(key, value string, now time.Time, expiresIn time.Duration) {
	entry := memoryEntry{value: value}
	if expiresIn > 0 {
		entry.expiresAt = now.Add(expiresIn)
	}
	m.db[key] = entry
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.lookup(key, m.now())
	return entry.value, ok, nil
}

func (m *MemoryStorage) Put(_ context.Context, key string, value string, expiresIn time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store(key, value, m.now(), expiresIn)
	return nil
}

func (m *MemoryStorage) IncrementBelow(_ context.Context, key string, limit int, expiresIn time.Duration) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, _ := m.lookup(key, now)
	count := parseCount(entry.value)
	if count >= int64(limit) {
		slog.Debug("counter at limit", "key", key, "count", count)
		return count, false, nil
	}

	count++
	m.store(key, strconv.FormatInt(count, 10), now, expiresIn)
	return count, true, nil
}

// Sweep drops expired keys and returns how many were removed.
func (m *MemoryStorage) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.db {
		if entry.expired(now) {
			delete(m.db, key)
			removed++
		}
	}
	return removed
}

// RunJanitor calls Sweep every interval until ctx is done.
func (m *MemoryStorage) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.Sweep(); removed > 0 {
				slog.Debug("swept expired counters", "removed", removed)
			}
		}
	}
}

func (m *MemoryStorage) Ping(context.Context) error { return nil }

func (m *MemoryStorage) Close() error { return nil }
