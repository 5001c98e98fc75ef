package resilience

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_AllowsBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d should be within burst", i+1)
		}
	}
	if rl.Allow() {
		t.Error("request beyond burst should be limited")
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 100, Burst: 1})

	if !rl.Allow() {
		t.Fatal("first request should pass")
	}
	if rl.Allow() {
		t.Fatal("second immediate request should be limited")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.Allow() {
		t.Error("expected token refill after sleep")
	}
}

func TestRateLimiter_WaitHonorsCancellation(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 0.1, Burst: 1})
	_ = rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected context error while waiting")
	}
}

func TestRateLimiter_OnLimitCallback(t *testing.T) {
	limited := 0
	rl := NewRateLimiter(RateLimiterConfig{
		Name:    "test",
		Rate:    1,
		Burst:   1,
		OnLimit: func(string) { limited++ },
	})

	_ = rl.Allow()
	_ = rl.Allow()

	if limited != 1 {
		t.Errorf("expected 1 OnLimit call, got %d", limited)
	}
}
