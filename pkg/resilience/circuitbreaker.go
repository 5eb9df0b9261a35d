package resilience

import (
	"errors"
	"sync"
	"time"

	"recipe-box/backend/pkg/logger"
)

// State represents the current state of a circuit breaker.
type State string

const (
	// StateClosed means requests pass through normally.
	StateClosed State = "closed"
	// StateOpen means requests are short-circuited.
	StateOpen State = "open"
	// StateHalfOpen means a limited number of probe requests are allowed.
	StateHalfOpen State = "half-open"
)

// ErrOpen is returned when the breaker rejects a call without running it.
var ErrOpen = errors.New("circuit open")

// CircuitBreaker guards a dependency (here, the key-value backend) so that
// a run of failures trips the circuit and callers fail fast instead of
// waiting out timeouts on every request.
type CircuitBreaker struct {
	name             string
	failureThreshold uint
	successThreshold uint
	retryTimeout     time.Duration
	log              *logger.Logger

	mu              sync.RWMutex
	state           State
	failureCount    uint
	successCount    uint
	nextAttemptTime time.Time

	totalRequests  uint64
	totalFailures  uint64
	totalSuccesses uint64
	timesOpened    uint64
}

// Config holds circuit breaker tuning parameters.
type Config struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	RetryTimeout     time.Duration
}

// DefaultConfig returns conservative defaults suitable for a cache or
// counter backend that the pipeline can live without.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     30 * time.Second,
	}
}

// New creates a circuit breaker in the closed state.
func New(cfg Config, log *logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:             cfg.Name,
		state:            StateClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		retryTimeout:     cfg.RetryTimeout,
		log:              log,
	}
}

// Execute runs fn through the breaker, recording the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return ErrOpen
	}

	cb.mu.Lock()
	cb.totalRequests++
	cb.mu.Unlock()

	if err := fn(); err != nil {
		cb.recordFailure(err)
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.RLock()
	state := cb.state
	nextAttempt := cb.nextAttemptTime
	cb.mu.RUnlock()

	switch state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Now().After(nextAttempt) {
			cb.mu.Lock()
			defer cb.mu.Unlock()
			// Re-check under the write lock; another goroutine may have
			// transitioned already.
			if cb.state == StateOpen && time.Now().After(cb.nextAttemptTime) {
				cb.toHalfOpen()
				return true
			}
		}
		return false

	case StateHalfOpen:
		cb.mu.RLock()
		defer cb.mu.RUnlock()
		return cb.successCount < cb.successThreshold
	}

	return false
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalSuccesses++
	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.toClosed()
		}
	}
}

func (cb *CircuitBreaker) recordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++
	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.toOpen()
		}
	case StateHalfOpen:
		cb.toOpen()
	}

	if cb.log != nil {
		cb.log.Debug("circuit breaker recorded failure",
			"name", cb.name,
			"state", string(cb.state),
			"error", err.Error(),
		)
	}
}

func (cb *CircuitBreaker) toOpen() {
	cb.state = StateOpen
	cb.timesOpened++
	cb.nextAttemptTime = time.Now().Add(cb.retryTimeout)
	if cb.log != nil {
		cb.log.Warn("circuit breaker opened",
			"name", cb.name,
			"failures", cb.failureCount,
			"retry_at", cb.nextAttemptTime.Format(time.RFC3339),
		)
	}
}

func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.successCount = 0
	if cb.log != nil {
		cb.log.Info("circuit breaker half-open", "name", cb.name)
	}
}

func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0
	if cb.log != nil {
		cb.log.Info("circuit breaker closed", "name", cb.name)
	}
}

// GetState returns the breaker's current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() map[string]interface{} {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return map[string]interface{}{
		"name":            cb.name,
		"state":           string(cb.state),
		"total_requests":  cb.totalRequests,
		"total_failures":  cb.totalFailures,
		"total_successes": cb.totalSuccesses,
		"times_opened":    cb.timesOpened,
	}
}
