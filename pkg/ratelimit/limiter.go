// Package ratelimit paces outbound requests: a token bucket for the
// quota-limited API source and a fixed pacer for UI navigation.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements a token bucket rate limiter. One token is consumed
// per request; tokens refill at a fixed interval up to capacity.
type TokenBucket struct {
	capacity   int64
	tokens     int64
	refillRate time.Duration
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity int64, refillRate time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// TryAcquire takes a token if one is available.
func (tb *TokenBucket) TryAcquire() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or the context is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.TryAcquire() {
			return nil
		}
		select {
		case <-time.After(tb.refillRate):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	if elapsed < tb.refillRate {
		return
	}

	refilled := int64(elapsed / tb.refillRate)
	tb.tokens += refilled
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = tb.lastRefill.Add(time.Duration(refilled) * tb.refillRate)
}

// Pacer enforces a fixed minimum delay between consecutive steps. Used to
// keep UI navigation below the platform's automation sensitivity.
type Pacer struct {
	delay time.Duration
	last  time.Time
	mu    sync.Mutex
}

// NewPacer creates a pacer with the given minimum step delay.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

// Wait blocks until the delay since the previous step has elapsed.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	wait := p.delay - time.Since(p.last)
	p.last = time.Now().Add(wait)
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
