package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// The operation runs at most MaxRetries+1 times. 0 disables retrying.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the nominal (pre-jitter) backoff delay.
	MaxDelay time.Duration
	// Jitter adds uniform random delay in [0, nominal*Jitter]. Range 0.0 to 1.0.
	Jitter float64
	// RetryIf decides whether an error observed on the given attempt
	// (0-indexed) should be retried.
	RetryIf func(err error, attempt int) bool
	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     0.1,
		RetryIf:    DefaultRetryIf,
	}
}

// StatusCoder is implemented by errors that carry an HTTP status code.
// A zero status means the error occurred below the HTTP layer.
type StatusCoder interface {
	HTTPStatus() int
}

// DefaultRetryIf retries transport-level errors unconditionally. Errors
// carrying an HTTP status are retried only for 429 and 5xx. Context
// cancellation is never retried.
func DefaultRetryIf(err error, _ int) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		if code := sc.HTTPStatus(); code > 0 {
			return code >= 500 || code == http.StatusTooManyRequests
		}
	}
	return true
}

// Backoff returns the delay to sleep after the given attempt (0-indexed).
// The nominal delay doubles each attempt, capped at MaxDelay, with uniform
// jitter in [0, nominal*Jitter] added on top.
func Backoff(attempt int, cfg RetryConfig) time.Duration {
	nominal := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if nominal > float64(cfg.MaxDelay) {
		nominal = float64(cfg.MaxDelay)
	}
	delay := nominal
	if cfg.Jitter > 0 {
		delay += rand.Float64() * nominal * cfg.Jitter
	}
	return time.Duration(delay)
}

// Retry executes fn until it succeeds, honoring the retry policy.
// Returns the first success, or the last observed error once attempts are
// exhausted or the classifier rejects a retry. Cancellation during a backoff
// sleep returns the last error without further sleeping.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	applyRetryDefaults(&cfg)

	var lastErr error
	attempts := cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.RetryIf(err, attempt) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := Backoff(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func applyRetryDefaults(cfg *RetryConfig) {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = 30 * time.Second
		if cfg.MaxDelay < cfg.BaseDelay {
			cfg.MaxDelay = cfg.BaseDelay
		}
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.Jitter > 1 {
		cfg.Jitter = 1
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
}
