package server

import (
	"sync"
	"time"
)

// RateLimiter is a window-reset token bucket keyed by session and
// operation class. Disabled limiters allow everything.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	Enabled bool
	MaxRate int
	Window  time.Duration
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a limiter allowing maxRate operations per key
// per window.
func NewRateLimiter(enabled bool, maxRate int, window time.Duration) *RateLimiter {
	if maxRate <= 0 {
		maxRate = 20
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &RateLimiter{
		buckets: map[string]*bucket{},
		Enabled: enabled,
		MaxRate: maxRate,
		Window:  window,
	}
}

// Allow reports whether the session may perform one more operation of
// the given class right now.
func (rl *RateLimiter) Allow(sid, op string) bool {
	if !rl.Enabled {
		return true
	}
	key := sid + "|" + op
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.lastReset) >= rl.Window {
		rl.buckets[key] = &bucket{tokens: rl.MaxRate - 1, lastReset: now}
		return true
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter reports how long the session should wait before the bucket
// refills.
func (rl *RateLimiter) RetryAfter(sid, op string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[sid+"|"+op]
	if !ok {
		return 0
	}
	wait := rl.Window - time.Since(b.lastReset)
	if wait < 0 {
		return 0
	}
	return wait
}

// Forget drops every bucket belonging to a session. Called on disconnect
// so long-lived processes do not accumulate dead keys.
func (rl *RateLimiter) Forget(sid string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	prefix := sid + "|"
	for key := range rl.buckets {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(rl.buckets, key)
		}
	}
}
