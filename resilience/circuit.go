package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all requests.
	StateOpen
	// StateHalfOpen means the circuit is probing whether the resource recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
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

// OpenError is returned when a call is rejected because the circuit is open.
// It matches ErrCircuitOpen under errors.Is.
type OpenError struct {
	// Resource names the guarded resource.
	Resource string

	// RetryAfter is when the next half-open probe will be admitted.
	RetryAfter time.Time
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("resilience: circuit %q is open, retry after %s", e.Resource, e.RetryAfter.Format(time.RFC3339))
}

// Is reports whether target is ErrCircuitOpen.
func (e *OpenError) Is(target error) bool { return target == ErrCircuitOpen }

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Resource names the guarded resource, used in errors and events.
	Resource string

	// MaxFailures is the consecutive-failure count that opens the circuit.
	// Default: 5
	MaxFailures int

	// BreakDuration is how long the circuit stays open before probing.
	// Default: 30 seconds
	BreakDuration time.Duration

	// FailureRateThreshold opens the circuit when the failure rate over the
	// rolling window reaches it and the window holds at least
	// MinimumThroughput samples. 0 disables rate-based tripping.
	FailureRateThreshold float64

	// MinimumThroughput is the minimum window sample count before
	// FailureRateThreshold applies.
	// Default: 10
	MinimumThroughput int

	// WindowSize is the rolling outcome window length.
	// Default: 20
	WindowSize int

	// HalfOpenSuccesses is how many consecutive half-open successes close
	// the circuit.
	// Default: 1
	HalfOpenSuccesses int

	// HalfOpenMaxRequests caps in-flight probes while half-open.
	// Default: HalfOpenSuccesses
	HalfOpenMaxRequests int

	// IsFailure reports whether an error trips the breaker.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Ignore reports whether an error should count neither as failure nor
	// as success. Evaluated before IsFailure.
	Ignore func(err error) bool

	// OnStateChange is called exactly once per transition.
	OnStateChange func(resource string, from, to State)
}

// CircuitBreaker implements the circuit breaker pattern for one resource.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int // consecutive failures while closed
	halfOpenOK    int // consecutive successes while half-open
	halfOpenCount int // in-flight probes while half-open
	lastChange    time.Time
	totalOps      int64

	// rolling outcome window; true marks a failure sample
	window    []bool
	windowPos int
	windowLen int
	windowBad int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.BreakDuration <= 0 {
		config.BreakDuration = 30 * time.Second
	}
	if config.MinimumThroughput <= 0 {
		config.MinimumThroughput = 10
	}
	if config.WindowSize <= 0 {
		config.WindowSize = 20
	}
	if config.HalfOpenSuccesses <= 0 {
		config.HalfOpenSuccesses = 1
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = config.HalfOpenSuccesses
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		config:     config,
		state:      StateClosed,
		lastChange: time.Now(),
		window:     make([]bool, config.WindowSize),
	}
}

// Execute runs op through the circuit breaker. When the circuit is open the
// call fails fast with *OpenError and op is never invoked.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// ExecuteWithFallback runs op through the breaker; when the circuit rejects
// the call, fallback runs instead of propagating the open-circuit error.
// Errors from op itself still propagate.
func (cb *CircuitBreaker) ExecuteWithFallback(ctx context.Context, op, fallback func(context.Context) error) error {
	err := cb.Execute(ctx, op)
	var open *OpenError
	if errors.As(err, &open) {
		return fallback(ctx)
	}
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Stats contains a read-only snapshot of breaker state.
type Stats struct {
	Resource            string
	State               State
	ConsecutiveFailures int
	FailureRate         float64
	TotalOperations     int64
	LastStateChange     time.Time
	NextProbeAt         time.Time
}

// Stats returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Stats{
		Resource:            cb.config.Resource,
		State:               cb.currentStateLocked(),
		ConsecutiveFailures: cb.failures,
		TotalOperations:     cb.totalOps,
		LastStateChange:     cb.lastChange,
	}
	if cb.windowLen > 0 {
		s.FailureRate = float64(cb.windowBad) / float64(cb.windowLen)
	}
	if s.State == StateOpen {
		s.NextProbeAt = cb.lastChange.Add(cb.config.BreakDuration)
	}
	return s
}

// Reset forces the breaker closed and zeroes all counters. Operator escape
// hatch; the rolling window is cleared too.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenOK = 0
	cb.halfOpenCount = 0
	cb.windowLen = 0
	cb.windowPos = 0
	cb.windowBad = 0
	cb.lastChange = time.Now()

	if oldState != StateClosed {
		cb.notify(oldState, StateClosed)
	}
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return &OpenError{
			Resource:   cb.config.Resource,
			RetryAfter: cb.lastChange.Add(cb.config.BreakDuration),
		}
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			// The break window already elapsed; the caller is only
			// waiting for in-flight probes to settle.
			return &OpenError{
				Resource:   cb.config.Resource,
				RetryAfter: time.Now(),
			}
		}
		cb.halfOpenCount++
	}

	cb.totalOps++
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && cb.config.Ignore != nil && cb.config.Ignore(err) {
		// Neither failure nor success.
		if cb.state == StateHalfOpen && cb.halfOpenCount > 0 {
			cb.halfOpenCount--
		}
		return
	}

	isFailure := cb.config.IsFailure(err)
	oldState := cb.state

	switch cb.state {
	case StateClosed:
		cb.recordSampleLocked(isFailure)
		if isFailure {
			cb.failures++
			if cb.failures >= cb.config.MaxFailures || cb.rateTrippedLocked() {
				cb.transitionLocked(StateOpen)
			}
		} else {
			// Success clears the consecutive count; window samples age
			// out naturally.
			cb.failures = 0
		}

	case StateHalfOpen:
		if cb.halfOpenCount > 0 {
			cb.halfOpenCount--
		}
		if isFailure {
			// Failed probe: back to open with a fresh break timer.
			cb.transitionLocked(StateOpen)
		} else {
			cb.halfOpenOK++
			if cb.halfOpenOK >= cb.config.HalfOpenSuccesses {
				cb.transitionLocked(StateClosed)
				cb.failures = 0
				cb.windowLen = 0
				cb.windowPos = 0
				cb.windowBad = 0
			}
		}
	}

	if oldState != cb.state {
		cb.notify(oldState, cb.state)
	}
}

// recordSampleLocked pushes an outcome into the rolling window.
func (cb *CircuitBreaker) recordSampleLocked(failure bool) {
	if cb.windowLen == len(cb.window) {
		if cb.window[cb.windowPos] {
			cb.windowBad--
		}
	} else {
		cb.windowLen++
	}
	cb.window[cb.windowPos] = failure
	if failure {
		cb.windowBad++
	}
	cb.windowPos = (cb.windowPos + 1) % len(cb.window)
}

func (cb *CircuitBreaker) rateTrippedLocked() bool {
	if cb.config.FailureRateThreshold <= 0 {
		return false
	}
	if cb.windowLen < cb.config.MinimumThroughput {
		return false
	}
	return float64(cb.windowBad)/float64(cb.windowLen) >= cb.config.FailureRateThreshold
}

// currentStateLocked lazily moves Open to HalfOpen once the break elapses.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastChange) >= cb.config.BreakDuration {
		cb.state = StateHalfOpen
		cb.halfOpenOK = 0
		cb.halfOpenCount = 0
		cb.notify(StateOpen, StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitionLocked(state State) {
	cb.state = state
	cb.lastChange = time.Now()
	if state == StateHalfOpen {
		cb.halfOpenOK = 0
		cb.halfOpenCount = 0
	}
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Resource, from, to)
	}
}
