package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type statusErr struct {
	code int
}

func (e *statusErr) Error() string   { return fmt.Sprintf("HTTP %d", e.code) }
func (e *statusErr) HTTPStatus() int { return e.code }

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastRetryConfig(3), func() (string, error) {
		calls++
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected ok, got %s", result)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), fastRetryConfig(3), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Errorf("expected 42, got %d", result)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	lastErr := errors.New("persistent")
	_, err := Retry(context.Background(), fastRetryConfig(2), func() (int, error) {
		calls++
		return 0, lastErr
	})

	// maxRetries=2 means 3 invocations total.
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("expected last error surfaced, got %v", err)
	}
}

func TestRetry_ZeroRetriesStillRunsOnce(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetryConfig(0), func() (int, error) {
		calls++
		return 0, errors.New("fail")
	})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if err == nil {
		t.Error("expected error")
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	badRequest := &statusErr{code: 400}
	_, err := Retry(context.Background(), fastRetryConfig(5), func() (int, error) {
		calls++
		return 0, badRequest
	})

	if calls != 1 {
		t.Errorf("expected 1 call for a 400, got %d", calls)
	}
	if !errors.Is(err, badRequest) {
		t.Errorf("expected original error, got %v", err)
	}
}

func TestRetry_CustomClassifierSeesAttempt(t *testing.T) {
	cfg := fastRetryConfig(5)
	var attempts []int
	cfg.RetryIf = func(_ error, attempt int) bool {
		attempts = append(attempts, attempt)
		return attempt < 1
	}

	calls := 0
	_, _ = Retry(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, errors.New("fail")
	})

	// Attempt 0 retried, attempt 1 rejected by the classifier.
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	if len(attempts) != 2 || attempts[0] != 0 || attempts[1] != 1 {
		t.Errorf("unexpected attempt indices: %v", attempts)
	}
}

func TestRetry_CancelDuringSleepReturnsLastError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	lastErr := errors.New("transient")
	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, cfg, func() (int, error) {
			return 0, lastErr
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, lastErr) {
			t.Errorf("expected last error after cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not return after cancellation")
	}
}

func TestRetry_CancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Retry(ctx, fastRetryConfig(3), func() (int, error) {
		calls++
		return 0, nil
	})

	if calls != 0 {
		t.Errorf("expected 0 calls, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	cfg := fastRetryConfig(2)
	var notified []int
	cfg.OnRetry = func(attempt int, _ error, _ time.Duration) {
		notified = append(notified, attempt)
	}

	_ = RetryFunc(context.Background(), cfg, func() error {
		return errors.New("fail")
	})

	// No callback after the final attempt.
	if len(notified) != 2 || notified[0] != 0 || notified[1] != 1 {
		t.Errorf("unexpected OnRetry attempts: %v", notified)
	}
}

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain error", errors.New("boom"), true},
		{"server error", &statusErr{code: 503}, true},
		{"too many requests", &statusErr{code: 429}, true},
		{"bad request", &statusErr{code: 400}, false},
		{"not found", &statusErr{code: 404}, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err, 0); got != tt.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoff_ExponentialGrowth(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}

	if got := Backoff(0, cfg); got != 10*time.Millisecond {
		t.Errorf("attempt 0: expected 10ms, got %v", got)
	}
	if got := Backoff(1, cfg); got != 20*time.Millisecond {
		t.Errorf("attempt 1: expected 20ms, got %v", got)
	}
	if got := Backoff(2, cfg); got != 40*time.Millisecond {
		t.Errorf("attempt 2: expected 40ms, got %v", got)
	}
}

func TestBackoff_CappedAtMaxDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}

	if got := Backoff(10, cfg); got != 50*time.Millisecond {
		t.Errorf("expected cap at 50ms, got %v", got)
	}
}

func TestBackoff_JitterBound(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 10 * time.Millisecond, MaxDelay: 80 * time.Millisecond, Jitter: 0.5}

	for attempt := 0; attempt < 12; attempt++ {
		nominal := 10 * time.Millisecond << attempt
		if nominal > 80*time.Millisecond {
			nominal = 80 * time.Millisecond
		}
		for i := 0; i < 50; i++ {
			d := Backoff(attempt, cfg)
			if d < nominal {
				t.Fatalf("attempt %d: delay %v below nominal %v", attempt, d, nominal)
			}
			if max := nominal + nominal/2; d > max {
				t.Fatalf("attempt %d: delay %v above bound %v", attempt, d, max)
			}
		}
	}
}
