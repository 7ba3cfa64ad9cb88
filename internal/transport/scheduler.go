// Package transport provides the cooperative event-loop facade the core
// talks to: a persistent message channel, a one-shot HTTP client, and a
// timed-callback scheduler, all cooperating through one goroutine-safe
// handle table (spec.md §4.2).
package transport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
)

// Handle identifies a scheduled callback. Handles are stable: cancelling
// after firing, cancelling twice, and cancelling from inside the callback
// are all no-ops (spec.md §4.2).
type Handle uint64

// Scheduler is the timed-callback facility of the transport facade,
// grounded on the teacher's bounded worker pool
// (internal/camera/bounded_worker_pool.go) for its atomic-counter and
// mutex-guarded bookkeeping idiom, generalized from a fixed worker pool to
// an open set of one-shot timers.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[Handle]*time.Timer
	nextID  uint64
	logger  *logging.Logger
	wg      sync.WaitGroup
	closed  bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.GetLogger("scheduler")
	}
	return &Scheduler{
		timers: make(map[Handle]*time.Timer),
		logger: logger,
	}
}

// Schedule arms cb to run after delay elapses, returning a stable handle.
func (s *Scheduler) Schedule(cb func(), delay time.Duration) Handle {
	id := Handle(atomic.AddUint64(&s.nextID, 1))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return id
	}
	s.wg.Add(1)
	timer := time.AfterFunc(delay, func() {
		defer s.wg.Done()
		defer s.recoverPanic(id)

		s.mu.Lock()
		_, stillArmed := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()

		if stillArmed {
			cb()
		}
	})
	s.timers[id] = timer
	s.mu.Unlock()

	return id
}

func (s *Scheduler) recoverPanic(id Handle) {
	if r := recover(); r != nil {
		s.logger.WithFields(logging.Fields{
			"handle": uint64(id),
			"panic":  r,
		}).Error("recovered from panic in scheduled callback")
	}
}

// Cancel disarms handle if it has not yet fired. Safe to call multiple
// times and safe to call from within the firing callback itself.
func (s *Scheduler) Cancel(h Handle) {
	s.mu.Lock()
	timer, ok := s.timers[h]
	if ok {
		delete(s.timers, h)
	}
	s.mu.Unlock()

	if ok && timer.Stop() {
		s.wg.Done()
	}
}

// Close cancels every outstanding timer and waits for in-flight callbacks
// to finish, mirroring the worker pool's drain-on-shutdown discipline.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for id, timer := range s.timers {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}
