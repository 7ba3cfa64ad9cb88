package security

import (
	"context"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"golang.org/x/time/rate"
)

// CommandRateLimiter paces inbound control-channel commands. Unlike the
// teacher's EnhancedRateLimiter, which tracked a rate bucket per connected
// UI/CLI client, this agent has exactly one peer — the cloud — so a single
// token bucket is enough; there is no per-client map to maintain.
type CommandRateLimiter struct {
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewCommandRateLimiter builds a limiter allowing requestsPerSecond sustained
// commands with a burst of burstSize.
func NewCommandRateLimiter(requestsPerSecond float64, burstSize int, logger *logging.Logger) *CommandRateLimiter {
	if logger == nil {
		logger = logging.GetLogger("rate-limiter")
	}
	return &CommandRateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burstSize),
		logger:  logger,
	}
}

// Allow reports whether a command may be processed now, consuming a token
// if so.
func (l *CommandRateLimiter) Allow() bool {
	allowed := l.limiter.Allow()
	if !allowed {
		l.logger.Warn("inbound command rate limit exceeded")
	}
	return allowed
}

// Wait blocks until a token is available or ctx is cancelled.
func (l *CommandRateLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// SetLimit updates the sustained rate at runtime, e.g. after a cloud-pushed
// configure command changes behavioural knobs.
func (l *CommandRateLimiter) SetLimit(requestsPerSecond float64, burstSize int) {
	l.limiter.SetLimit(rate.Limit(requestsPerSecond))
	l.limiter.SetBurst(burstSize)
}

// DefaultCommandRateLimit is the conservative starting point before the
// cloud has pushed any behavioural configuration.
const DefaultCommandRateLimit = 50.0

// DefaultCommandBurst allows short bursts of configuration commands issued
// back-to-back during registration.
const DefaultCommandBurst = 100

// DefaultRateLimiterInterval is the bookkeeping tick used by callers that
// periodically log limiter state.
const DefaultRateLimiterInterval = time.Minute
