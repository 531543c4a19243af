package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryRateLimiter is the single-process fallback for RedisRateLimiter.
type MemoryRateLimiter struct {
	windows sync.Map
	now     func() time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{now: time.Now}
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemoryRateLimiter) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	val, _ := r.windows.LoadOrStore(key, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	now := r.now()
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.expiresAt.IsZero() || !now.Before(entry.expiresAt) {
		entry.count = 0
		entry.expiresAt = now.Add(window)
	}
	entry.count++

	return entry.count <= limit, nil
}

// Sweep drops windows that have expired so idle client keys do not accumulate.
func (r *MemoryRateLimiter) Sweep() int {
	now := r.now()
	removed := 0
	r.windows.Range(func(k, v any) bool {
		entry := v.(*rateLimitEntry)
		entry.mu.Lock()
		expired := !now.Before(entry.expiresAt)
		entry.mu.Unlock()
		if expired {
			r.windows.Delete(k)
			removed++
		}
		return true
	})
	return removed
}
