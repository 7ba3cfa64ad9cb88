package sync

import (
	"sync"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
)

// circuitState is the breaker's three-way state, grounded on the
// teacher's closed/open/half-open state machine
// (internal/mediamtx/circuit_breaker.go), adapted here to guard a
// category queue's upload executor instead of a single MediaMTX
// operation.
type circuitState string

const (
	circuitClosed   circuitState = "closed"
	circuitOpen     circuitState = "open"
	circuitHalfOpen circuitState = "half-open"
)

// circuitBreaker trips after a run of retryable upload failures
// (transport errors, 5xx, 408, 429) within one category, failing fast
// instead of letting the category queue keep dispatching doomed
// attempts (SPEC_FULL.md "Circuit breaker": "wraps the synchronizer's
// per-category upload executor so a string of 5xx/timeout failures opens
// the breaker"). Fatal (4xx) outcomes reject the specific segment rather
// than indicate backend trouble, so they never count toward a trip.
//
// Unlike the teacher's Call(func() error) wrapper, attempts here span a
// request-slot call and a transfer, judged by the existing classify()
// outcome rather than a single error return, so the breaker exposes
// allow/recordSuccess/recordFailure instead of wrapping the operation
// itself.
type circuitBreaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration
	logger           *logging.Logger

	mu              sync.Mutex
	state           circuitState
	failureCount    int
	lastFailureTime time.Time
}

func newCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration, logger *logging.Logger) *circuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &circuitBreaker{
		name: name, failureThreshold: failureThreshold, recoveryTimeout: recoveryTimeout,
		logger: logger, state: circuitClosed,
	}
}

// allow reports whether an upload attempt may proceed, flipping an open
// breaker to half-open once the recovery timeout has elapsed.
func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != circuitOpen {
		return true
	}
	if time.Since(cb.lastFailureTime) <= cb.recoveryTimeout {
		return false
	}
	cb.state = circuitHalfOpen
	cb.logger.WithFields(logging.Fields{"circuit_breaker": cb.name}).Info("circuit breaker transitioning to half-open")
	return true
}

// recordFailure counts one retryable failure, opening the breaker once
// failureThreshold consecutive failures accrue since the last success.
func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = time.Now()
	if cb.failureCount >= cb.failureThreshold {
		if cb.state != circuitOpen {
			cb.logger.WithFields(logging.Fields{
				"circuit_breaker": cb.name, "failure_count": cb.failureCount,
			}).Warn("circuit breaker opened: failure threshold exceeded")
		}
		cb.state = circuitOpen
	}
}

// recordSuccess resets the failure streak and closes a half-open breaker.
func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	if cb.state == circuitHalfOpen {
		cb.logger.WithFields(logging.Fields{"circuit_breaker": cb.name}).Info("circuit breaker closed after successful upload")
	}
	cb.state = circuitClosed
}
