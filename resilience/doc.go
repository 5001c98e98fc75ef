// Package resilience provides failure-handling primitives for outbound
// service calls.
//
// This package includes:
//   - Retry: retries failed operations with exponential backoff and jitter
//   - CircuitBreaker: fails fast against an unhealthy target
//   - Bulkhead: caps concurrent calls to isolate failures
//   - RateLimiter: controls request rate with a token bucket
//
// The retry driver and circuit breaker are composed by the httpclient
// package; both can also be used standalone:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("orders"))
//	if !cb.CanAttempt() {
//	    return resilience.ErrCircuitOpen
//	}
//	err := call()
//	if err != nil {
//	    cb.RecordFailure()
//	} else {
//	    cb.RecordSuccess()
//	}
package resilience
