// Package eventstate implements the per-event runtime state machine (C4):
// stateless trigger notification and stateful active/ongoing/stopped
// lifecycles with synthetic continuation ticks (spec.md §4.4).
package eventstate

import (
	"sync"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/constants"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/camerarecorder/cloud-agent-go/internal/transport"
)

// Callbacks is the event-state-changed observer, grounded on
// original_source/src/agent/event-state.h's event_state_changed_cb
// virtual-method set, translated to a struct of optional function fields
// per spec.md §9 Design Note "deep inheritance with abstract callbacks".
type Callbacks struct {
	OnStarted   func(cfg protocol.EventConfig, t time.Time)
	OnOngoing   func(cfg protocol.EventConfig, t time.Time)
	OnStopped   func(cfg protocol.EventConfig, t time.Time)
	OnTriggered func(cfg protocol.EventConfig, t time.Time)
}

// State is one event's runtime lifecycle (spec.md §3 "Event state").
// Tick scheduling and cancellation are serialised under mu, satisfying the
// invariant that continuation ticks never race with stop (spec.md §4.4).
type State struct {
	mu         sync.Mutex
	cfg        protocol.EventConfig
	callbacks  Callbacks
	scheduler  *transport.Scheduler
	logger     *logging.Logger
	kickPeriod time.Duration

	active    bool
	start     time.Time
	stop      time.Time
	kickTime  time.Time
	kickHandle transport.Handle
	kickArmed bool
}

// New builds a state machine for cfg. The continuation period is taken
// from cfg.Caps.StateEmulationReportDelay, bounded to
// constants.MaxStateEmulationReportDelay (spec.md §4.4 "bounded ≤ 10s").
func New(cfg protocol.EventConfig, callbacks Callbacks, scheduler *transport.Scheduler, logger *logging.Logger) *State {
	if logger == nil {
		logger = logging.GetLogger("event-state")
	}
	period := time.Duration(cfg.Caps.StateEmulationReportDelay) * time.Second
	if period <= 0 || period > constants.MaxStateEmulationReportDelay {
		period = constants.MaxStateEmulationReportDelay
	}
	return &State{
		cfg:        cfg,
		callbacks:  callbacks,
		scheduler:  scheduler,
		logger:     logger,
		kickPeriod: period,
	}
}

// Start activates the event at t. For a stateful event whose stop is not
// yet known, this arms the continuation kicker; if knownStop is supplied
// (a non-realtime event reported after the fact) started/stopped fire
// back-to-back and no kicker is armed, mirroring event_state::start's two
// branches. For a stateless event it simply emits triggered(t).
func (s *State) Start(t time.Time, knownStop *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Caps.Stateful {
		s.start = t
		if knownStop != nil {
			s.stop = *knownStop
		}
		if s.callbacks.OnTriggered != nil {
			s.callbacks.OnTriggered(s.cfg, t)
		}
		return
	}

	s.active = true
	s.start = t
	s.stop = time.Time{}

	if s.callbacks.OnStarted != nil {
		s.callbacks.OnStarted(s.cfg, t)
	}

	if knownStop != nil {
		s.stop = *knownStop
		s.active = false
		if s.callbacks.OnStopped != nil {
			s.callbacks.OnStopped(s.cfg, *knownStop)
		}
		return
	}

	s.armKickerLocked(t)
}

// Stop deactivates a stateful event at t, cancelling the continuation
// kicker and emitting stopped(t) exactly once. A no-op for stateless
// events and for an event already stopped.
func (s *State) Stop(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(t)
}

func (s *State) stopLocked(t time.Time) {
	if !s.cfg.Caps.Stateful || !s.stop.IsZero() {
		return
	}
	s.disarmKickerLocked()
	s.stop = t
	s.active = false
	if s.callbacks.OnStopped != nil {
		s.callbacks.OnStopped(s.cfg, t)
	}
}

// Close forces closure of an still-active stateful event, mirroring
// event_state's destructor: "destructor with an active stateful event
// emits stopped(now) to guarantee closure" (spec.md §4.4). Callers (the
// owning event manager) must call this when tearing the event down.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Caps.Stateful && !s.start.IsZero() && s.stop.IsZero() {
		s.stopLocked(time.Now())
	}
}

func (s *State) armKickerLocked(from time.Time) {
	s.kickTime = from
	s.kickHandle = s.scheduler.Schedule(s.kick, s.kickPeriod)
	s.kickArmed = true
}

func (s *State) disarmKickerLocked() {
	if s.kickArmed {
		s.scheduler.Cancel(s.kickHandle)
		s.kickArmed = false
	}
}

// kick is the continuation timer callback. It reschedules itself and
// emits ongoing(tn) where tn = t0 + n*period, unless the event has since
// been stopped — checked under the same lock that Stop takes, so an
// ongoing tick can never race with (and fire after) stopped.
func (s *State) kick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}

	s.kickTime = s.kickTime.Add(s.kickPeriod)
	s.kickHandle = s.scheduler.Schedule(s.kick, s.kickPeriod)

	if s.callbacks.OnOngoing != nil {
		s.callbacks.OnOngoing(s.cfg, s.kickTime)
	}
}

// Active reports whether the event is currently active.
func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stateful reports whether the event's config marks it stateful.
func (s *State) Stateful() bool { return s.cfg.Caps.Stateful }

// NeedRecord reports whether this event's config requests a recording
// window (spec.md §4.5 "stream=true and caps.stream=true").
func (s *State) NeedRecord() bool { return s.cfg.Stream && s.cfg.Caps.Stream }

// Config returns the event's configuration.
func (s *State) Config() protocol.EventConfig { return s.cfg }

// StartTime returns the last activation time, zero if never started.
func (s *State) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}

// StopTime returns the last deactivation time, zero if currently active
// or never started.
func (s *State) StopTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop
}
