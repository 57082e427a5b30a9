package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces out successive operations.
type Pacer interface {
	// Wait blocks until the next operation may proceed or the context is
	// cancelled.
	Wait(ctx context.Context) error
}

// FixedInterval is a Pacer enforcing a minimum gap between operations. It is
// used for the polite delay between media downloads.
type FixedInterval struct {
	interval time.Duration
	last     time.Time
	mu       sync.Mutex
}

// NewFixedInterval creates a pacer with the given minimum gap.
func NewFixedInterval(interval time.Duration) *FixedInterval {
	return &FixedInterval{interval: interval}
}

// Wait sleeps until the interval since the previous operation has elapsed.
// The first call never blocks.
func (f *FixedInterval) Wait(ctx context.Context) error {
	f.mu.Lock()
	now := time.Now()
	var sleep time.Duration
	if !f.last.IsZero() {
		if elapsed := now.Sub(f.last); elapsed < f.interval {
			sleep = f.interval - elapsed
		}
	}
	f.last = now.Add(sleep)
	f.mu.Unlock()

	if sleep <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TokenBucket limits the number of operations per refill period. It is used
// to pace timeline page fetches.
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a token bucket allowing capacity operations per
// refill period.
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow reports whether an operation may proceed right now.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until an operation is allowed or the context is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		tb.mu.Lock()
		pause := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()
		if pause <= 0 {
			pause = 100 * time.Millisecond
		}

		timer := time.NewTimer(pause)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
