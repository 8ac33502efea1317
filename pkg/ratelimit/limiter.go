// Package ratelimit provides a token bucket limiter used to pace
// notification fan-out per destination chat.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter hands out tokens per key (one bucket per destination chat).
// A zero rate disables limiting entirely.
type Limiter struct {
	perMinute int
	buckets   sync.Map // map[string]*bucket
}

type bucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func NewLimiter(perMinute int) *Limiter {
	return &Limiter{perMinute: perMinute}
}

func newBucket(maxTokens, refillRate float64) *bucket {
	return &bucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (b *bucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now

	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
}

func (b *bucket) take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (l *Limiter) bucketFor(key string) *bucket {
	if v, ok := l.buckets.Load(key); ok {
		return v.(*bucket)
	}
	max := float64(l.perMinute)
	b := newBucket(max, max/60)
	actual, _ := l.buckets.LoadOrStore(key, b)
	return actual.(*bucket)
}

// Allow reports whether one more action is permitted for key right now.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.perMinute <= 0 {
		return true
	}
	return l.bucketFor(key).take()
}

// Wait blocks until a token is available for key or the context is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if l == nil || l.perMinute <= 0 {
		return nil
	}

	for {
		if l.bucketFor(key).take() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
