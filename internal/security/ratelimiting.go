package security

import (
	"sync"
	"time"
)

// RateLimiter is a per-identifier token bucket. Each identifier (a user id,
// or an IP for anonymous callers) starts with maxTokens and regains one token
// every refillRate.
type RateLimiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex

	maxTokens  int
	refillRate time.Duration
	idleTTL    time.Duration
	now        func() time.Time

	cleanupTicker *time.Ticker
	stopOnce      sync.Once
	stopCleanup   chan struct{}
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a limiter and starts its idle-bucket sweeper.
// Call Stop to release the sweeper.
//
// Example:
//
//	// 120 writes per minute per user
//	limiter := NewRateLimiter(120, 500*time.Millisecond)
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:     make(map[string]*bucket),
		maxTokens:   maxTokens,
		refillRate:  refillRate,
		idleTTL:     time.Hour,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	rl.cleanupTicker = time.NewTicker(10 * time.Minute)
	go rl.cleanup()

	return rl
}

// Allow consumes one token for identifier and reports whether the request may proceed.
func (rl *RateLimiter) Allow(identifier string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[identifier]
	if !ok {
		rl.buckets[identifier] = &bucket{tokens: rl.maxTokens - 1, lastRefill: now}
		return rl.maxTokens > 0
	}

	rl.refill(b, now)
	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Remaining returns how many requests identifier may still make right now.
func (rl *RateLimiter) Remaining(identifier string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[identifier]
	if !ok {
		return rl.maxTokens
	}
	rl.refill(b, rl.now())
	return b.tokens
}

// refill credits whole elapsed refill periods; partial periods carry over.
func (rl *RateLimiter) refill(b *bucket, now time.Time) {
	if rl.refillRate <= 0 {
		return
	}
	periods := int(now.Sub(b.lastRefill) / rl.refillRate)
	if periods <= 0 {
		return
	}
	b.tokens += periods
	if b.tokens >= rl.maxTokens {
		b.tokens = rl.maxTokens
		b.lastRefill = now
		return
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(periods) * rl.refillRate)
}

// Reset forgets identifier's bucket.
func (rl *RateLimiter) Reset(identifier string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, identifier)
}

func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.sweep()
		case <-rl.stopCleanup:
			return
		}
	}
}

// sweep drops buckets idle for longer than idleTTL.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for id, b := range rl.buckets {
		if now.Sub(b.lastRefill) > rl.idleTTL {
			delete(rl.buckets, id)
		}
	}
}

// Stop stops the sweeper goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanupTicker.Stop()
		close(rl.stopCleanup)
	})
}
