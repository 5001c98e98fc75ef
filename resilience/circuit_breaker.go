package resilience

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests until the reset timeout elapses.
	StateOpen
	// StateHalfOpen allows probing requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute when the breaker rejects an attempt.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit from closed.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a probe is
	// admitted.
	ResetTimeout time.Duration
	// HalfOpenSuccesses is the number of consecutive successes in half-open
	// that closes the circuit.
	HalfOpenSuccesses int
	// OnStateChange is called when state changes.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:              name,
		FailureThreshold:  5,
		ResetTimeout:      60 * time.Second,
		HalfOpenSuccesses: 2,
	}
}

// Snapshot is a point-in-time view of breaker state.
type Snapshot struct {
	State         State
	Failures      int
	Successes     int
	LastFailureAt time.Time
	NextAttemptAt time.Time
}

// CircuitBreaker guards a single target with a closed/open/half-open state
// machine. CanAttempt is the sole admission point; every terminal attempt
// outcome must be fed back through RecordSuccess or RecordFailure.
//
// Half-open admits any number of concurrent probes; the circuit closes once
// HalfOpenSuccesses consecutive probes succeed, and reopens on any failure.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	lastFailureAt time.Time
	nextAttemptAt time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if config.HalfOpenSuccesses <= 0 {
		config.HalfOpenSuccesses = 2
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// CanAttempt reports whether a request may proceed. When the circuit is open
// and the reset timeout has elapsed, the breaker transitions to half-open and
// the request is admitted as a probe.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Now().Before(cb.nextAttemptAt) {
			return false
		}
		cb.toState(StateHalfOpen)
		return true
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess feeds a successful terminal attempt into the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.HalfOpenSuccesses {
			cb.toState(StateClosed)
		}
	}
}

// RecordFailure feeds a failed terminal attempt into the breaker.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureAt = time.Now()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		cb.open()
	}
}

// Execute runs fn through the breaker: admission, call, outcome recording.
// Returns ErrCircuitOpen without calling fn if the circuit rejects.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.CanAttempt() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return err
}

// State returns the current state without advancing the state machine.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns a point-in-time view of the breaker.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{
		State:         cb.state,
		Failures:      cb.failures,
		Successes:     cb.successes,
		LastFailureAt: cb.lastFailureAt,
		NextAttemptAt: cb.nextAttemptAt,
	}
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset returns the breaker to closed with all counters zeroed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.failures = 0
	cb.successes = 0
}

// open transitions to open and schedules the next probe. Caller holds cb.mu.
func (cb *CircuitBreaker) open() {
	cb.nextAttemptAt = time.Now().Add(cb.config.ResetTimeout)
	cb.toState(StateOpen)
}

// toState transitions to a new state. Caller holds cb.mu.
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to

	switch to {
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
	case StateHalfOpen:
		cb.successes = 0
	case StateOpen:
		cb.successes = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
