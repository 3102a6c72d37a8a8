package hyperliquid

import (
	"context"
	"testing"
	"time"
)

func TestNewTokenBucketStartsFull(t *testing.T) {
	t.Parallel()

	tb := NewTokenBucket(5, 1)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := tb.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
}

func TestTokenBucketWaitImmediate(t *testing.T) {
	t.Parallel()

	tb := NewTokenBucket(1, 1)
	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("expected immediate grant from a full bucket, took %v", elapsed)
	}
}

func TestTokenBucketWaitBlocks(t *testing.T) {
	t.Parallel()

	tb := NewTokenBucket(1, 5) // 1 token, refills at 5/s -> next token in ~200ms
	ctx := context.Background()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 50*time.Millisecond || elapsed > 400*time.Millisecond {
		t.Fatalf("expected a ~200ms block for refill, got %v", elapsed)
	}
}

func TestTokenBucketContextCancelled(t *testing.T) {
	t.Parallel()

	tb := NewTokenBucket(1, 0.1) // effectively never refills within the test window
	ctx := context.Background()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := tb.Wait(cancelCtx); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestDefaultRateLimiterPacesAt20PerSecond(t *testing.T) {
	t.Parallel()

	tb := NewDefaultRateLimiter()
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 40; i++ {
		if err := tb.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)
	// One token is granted immediately, the remaining 39 arrive at 20/s
	// (~1.95s), so the 40th call should complete no sooner than ~1.9s and
	// well under a generous upper bound.
	if elapsed < 1900*time.Millisecond {
		t.Fatalf("expected the 40th call to take ~1.9s under steady-rate pacing, took %v", elapsed)
	}
	if elapsed > 3*time.Second {
		t.Fatalf("expected the 40th call well under 3s, took %v", elapsed)
	}
}
