// Package ratelimit provides a keyed rate limiter using token bucket algorithm.
// It supports both non-blocking (Allow) and blocking (Wait) operations.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limit describes the token bucket for one key.
type Limit struct {
	// RPS is the steady-state refill rate in requests per second.
	RPS float64
	// Burst is the bucket capacity (tokens available immediately).
	Burst int
}

// KeyedRateLimiter manages per-key rate limiting.
// Each unique key gets its own independent token bucket. Keys may carry their
// own configured limits; unregistered keys fall back to the default.
type KeyedRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limits   map[string]Limit
	fallback Limit

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new keyed rate limiter with the given default limit for keys
// that have no registered limit of their own.
func New(fallback Limit) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limits:   make(map[string]Limit),
		fallback: fallback,
		done:     make(chan struct{}),
	}

	go krl.cleanup()

	return krl
}

// Register assigns a dedicated limit to a key. A bucket already created for
// the key is replaced, so Register should run before traffic starts.
func (krl *KeyedRateLimiter) Register(key string, limit Limit) {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	krl.limits[key] = limit
	delete(krl.limiters, key)
}

// Allow checks if a request for the given key should be allowed.
// Returns immediately without blocking. Use for inbound request protection.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.getLimiter(key).Allow()
}

// Wait blocks until a request for the given key is allowed or context is canceled.
// Use for outbound requests where you want to respect rate limits.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.getLimiter(key).Wait(ctx)
}

// getLimiter returns the limiter for a key, creating one if needed.
func (krl *KeyedRateLimiter) getLimiter(key string) *rate.Limiter {
	// Fast path: read lock
	krl.mu.RLock()
	limiter, exists := krl.limiters[key]
	krl.mu.RUnlock()

	if exists {
		return limiter
	}

	// Slow path: write lock to create
	krl.mu.Lock()
	defer krl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = krl.limiters[key]; exists {
		return limiter
	}

	limit, ok := krl.limits[key]
	if !ok {
		limit = krl.fallback
	}
	limiter = rate.NewLimiter(rate.Limit(limit.RPS), limit.Burst)
	krl.limiters[key] = limiter
	return limiter
}

// Stop shuts down the cleanup goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

// cleanup waits for the stop signal.
// Note: Currently no cleanup is performed since rate.Limiter doesn't track
// last access time. The key space here is the fixed set of provider names,
// so unbounded growth is not a concern.
func (krl *KeyedRateLimiter) cleanup() {
	<-krl.done
}
