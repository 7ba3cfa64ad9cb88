package session

import (
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/constants"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/transport"
)

// ReconnectPolicy arms and disarms the single outstanding reconnect timer,
// grounded on the teacher's circuit breaker bookkeeping
// (internal/mediamtx/circuit_breaker.go's state+mutex shape) simplified
// from a failure-threshold breaker to a one-shot scheduled retry, since
// the peer itself dictates the backoff via bye.retry rather than the
// agent inferring it from a failure count.
type ReconnectPolicy struct {
	scheduler *transport.Scheduler
	logger    *logging.Logger
	handle    transport.Handle
	armed     bool
}

// NewReconnectPolicy builds a policy driven by sched.
func NewReconnectPolicy(sched *transport.Scheduler, logger *logging.Logger) *ReconnectPolicy {
	if logger == nil {
		logger = logging.GetLogger("reconnect-policy")
	}
	return &ReconnectPolicy{scheduler: sched, logger: logger}
}

// Arm schedules cb to run after delay (or DefaultReconnectBackoff if delay
// is non-positive), replacing any previously armed timer.
func (p *ReconnectPolicy) Arm(delay time.Duration, cb func()) {
	p.Disarm()

	if delay <= 0 {
		delay = constants.DefaultReconnectBackoff
	}
	p.logger.WithFields(logging.Fields{"delay": delay}).Info("reconnect timer armed")
	p.handle = p.scheduler.Schedule(cb, delay)
	p.armed = true
}

// Disarm cancels the outstanding reconnect timer, if any.
func (p *ReconnectPolicy) Disarm() {
	if p.armed {
		p.scheduler.Cancel(p.handle)
		p.armed = false
	}
}
