package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFixedIntervalFirstCallDoesNotBlock(t *testing.T) {
	p := NewFixedInterval(time.Second)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first Wait blocked for %v", elapsed)
	}
}

func TestFixedIntervalSpacesOperations(t *testing.T) {
	p := NewFixedInterval(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("three operations finished in %v, expected at least 100ms spacing", elapsed)
	}
}

func TestFixedIntervalCancelled(t *testing.T) {
	p := NewFixedInterval(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	if err := p.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(2, time.Hour)

	if !tb.Allow() {
		t.Error("first request should be allowed")
	}
	if !tb.Allow() {
		t.Error("second request should be allowed")
	}
	if tb.Allow() {
		t.Error("third request should be denied until refill")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(1, 20*time.Millisecond)

	if !tb.Allow() {
		t.Fatal("first request should be allowed")
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(30 * time.Millisecond)
	if !tb.Allow() {
		t.Error("request after refill period should be allowed")
	}
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	if !tb.Allow() {
		t.Fatal("first request should be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
