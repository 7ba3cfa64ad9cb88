package sync

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/camerarecorder/cloud-agent-go/internal/storage"
	"github.com/camerarecorder/cloud-agent-go/internal/transport"
)

// outcome classifies one upload attempt's result against spec.md §4.8's
// per-segment HTTP-status rules; circuitBreaker (circuit_breaker.go)
// separately tracks a run of outcomeRetry results per category to fail
// fast ahead of the per-segment retry loop below.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetry
	outcomeFatal
)

func classify(resp *transport.HTTPResponse, err error) outcome {
	if err != nil {
		return outcomeRetry // transport-level failure: DNS, dial, timeout, …
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return outcomeSuccess
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		return outcomeRetry
	case resp.StatusCode >= 500:
		return outcomeRetry
	case resp.StatusCode >= 400:
		return outcomeFatal
	default:
		return outcomeFatal
	}
}

// requestState tracks one outstanding Sync/SyncOnEvent* handle for
// cooperative cancellation (spec.md §4.8 "cancel(request_handle)").
type requestState struct {
	mu        sync.Mutex
	cancelled bool
}

func (r *requestState) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

func (r *requestState) cancel() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
}

// eventWindow is one open event-driven sync window (spec.md §4.8
// "sync_on_event_start/stop/continue").
type eventWindow struct {
	handle   Handle
	begin    time.Time
	finished bool
	statusCb StatusCallback
}

// Synchronizer is the timeline synchronizer (C8): it enumerates local
// timed storage, skips what the remote side already has, and uploads
// the rest through category-bounded worker pools.
type Synchronizer struct {
	local  *storage.Storage
	remote RemoteStore
	http   *transport.HTTPClient
	cfg    config.SyncConfig
	bhv    config.BehaviourConfig
	logger *logging.Logger

	video    *categoryQueue
	snapshot *categoryQueue

	videoBreaker    *circuitBreaker
	snapshotBreaker *circuitBreaker

	mu         sync.Mutex
	nextHandle uint64
	requests   map[Handle]*requestState
	windows    map[Handle]*eventWindow
}

// New builds a Synchronizer over local storage and a RemoteStore,
// issuing transfers through httpClient.
func New(local *storage.Storage, remote RemoteStore, httpClient *transport.HTTPClient, cfg config.SyncConfig, bhv config.BehaviourConfig, logger *logging.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.GetLogger("sync")
	}
	s := &Synchronizer{
		local: local, remote: remote, http: httpClient,
		cfg: cfg, bhv: bhv, logger: logger,
		requests: make(map[Handle]*requestState),
		windows:  make(map[Handle]*eventWindow),
	}
	s.video = newCategoryQueue(bhv.MaxConcurrentVideoUploads, bhv.MaxVideoUploadsQueueLateness, logger, s.runSegment)
	s.snapshot = newCategoryQueue(bhv.MaxConcurrentSnapshotUploads, 0, logger, s.runSegment)
	s.videoBreaker = newCircuitBreaker("video", cfg.CircuitBreakerFailureThreshold, cfg.CircuitBreakerRecoveryTimeout, logger)
	s.snapshotBreaker = newCircuitBreaker("snapshot", cfg.CircuitBreakerFailureThreshold, cfg.CircuitBreakerRecoveryTimeout, logger)
	return s
}

func (s *Synchronizer) breakerFor(category protocol.StorageCategory) *circuitBreaker {
	if category == protocol.StorageCategoryRecord {
		return s.videoBreaker
	}
	return s.snapshotBreaker
}

func (s *Synchronizer) allocHandle() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandle++
	return Handle(s.nextHandle)
}

func (s *Synchronizer) queueFor(category protocol.StorageCategory) *categoryQueue {
	if category == protocol.StorageCategoryRecord {
		return s.video
	}
	return s.snapshot
}

// Sync enumerates local items in [begin, end], normalizes them into
// Segments, and schedules each for upload, returning a handle usable
// with Cancel. statusCb is invoked at least once per segment.
func (s *Synchronizer) Sync(ctx context.Context, begin, end time.Time, statusCb StatusCallback) (Handle, error) {
	handle := s.allocHandle()
	state := &requestState{}
	s.mu.Lock()
	s.requests[handle] = state
	s.mu.Unlock()

	items, err := s.local.List(ctx, begin, end)
	if err != nil {
		return handle, fmt.Errorf("sync: enumerate local storage: %w", err)
	}

	for _, item := range items {
		seg := Segment{
			StreamID: item.StreamID, Category: item.Category, MediaType: item.MediaType,
			Begin: maxTime(item.Begin, begin), End: minTime(item.End, end),
		}
		if !seg.End.After(seg.Begin) {
			continue
		}
		t := &segmentTask{handle: handle, seg: seg, enqueuedAt: time.Now(), statusCb: statusCb}
		s.queueFor(seg.Category).submit(t)
	}
	return handle, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// Cancel cooperatively cancels handle: queued segments are dropped
// immediately (reported CANCELED); in-flight segments observe the
// cancellation at their next poll and finish with CANCELED themselves.
func (s *Synchronizer) Cancel(handle Handle) {
	s.mu.Lock()
	state, ok := s.requests[handle]
	s.mu.Unlock()
	if !ok {
		return
	}
	state.cancel()

	drop := func(t *segmentTask) {
		t.statusCb(t.handle, t.seg, protocol.SyncStatusCanceled, "cancelled before start")
	}
	s.video.removeHandle(handle, drop)
	s.snapshot.removeHandle(handle, drop)
}

// Finit drains both category queues (dropping queued work) and waits
// for in-flight uploads to finish.
func (s *Synchronizer) Finit() {
	dropped := func(t *segmentTask) {
		t.statusCb(t.handle, t.seg, protocol.SyncStatusError, "synchronizer shutting down")
	}
	s.video.finit(dropped)
	s.snapshot.finit(dropped)
}

// runSegment executes one segment's query-overlap/request-slot/transfer/
// confirm pipeline with retry on transient failure, reporting status at
// each boundary (spec.md §4.8).
func (s *Synchronizer) runSegment(t *segmentTask) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logging.Fields{"stream": t.seg.StreamID, "panic": r}).Error("segment task panicked")
			t.statusCb(t.handle, t.seg, protocol.SyncStatusError, "internal error")
		}
	}()

	ctx := context.Background()
	state := s.stateFor(t.handle)

	t.statusCb(t.handle, t.seg, protocol.SyncStatusPending, "")

	if state != nil && state.isCancelled() {
		t.statusCb(t.handle, t.seg, protocol.SyncStatusCanceled, "")
		return
	}

	if s.remote == nil {
		t.statusCb(t.handle, t.seg, protocol.SyncStatusError, "remote store unavailable")
		return
	}

	already, err := s.remote.Overlaps(ctx, t.seg)
	if err != nil {
		s.logger.WithFields(logging.Fields{"stream": t.seg.StreamID, "error": err}).Warn("overlap query failed, proceeding with upload")
	} else if already {
		t.statusCb(t.handle, t.seg, protocol.SyncStatusDone, "already present remotely")
		return
	}

	item := storage.Item{StreamID: t.seg.StreamID, Category: t.seg.Category, MediaType: t.seg.MediaType, Begin: t.seg.Begin, End: t.seg.End}
	if err := s.local.Load(ctx, &item); err != nil {
		t.statusCb(t.handle, t.seg, protocol.SyncStatusError, fmt.Sprintf("load failed: %v", err))
		return
	}

	maxAttempts := s.cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	breaker := s.breakerFor(t.seg.Category)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if state != nil && state.isCancelled() {
			t.statusCb(t.handle, t.seg, protocol.SyncStatusCanceled, "")
			return
		}

		if !breaker.allow() {
			t.statusCb(t.handle, t.seg, protocol.SyncStatusError, "circuit breaker open: too many recent upload failures")
			return
		}

		slot, err := s.remote.RequestSlot(ctx, t.seg)
		if err != nil {
			breaker.recordFailure()
			if attempt == maxAttempts-1 {
				t.statusCb(t.handle, t.seg, protocol.SyncStatusError, fmt.Sprintf("request slot failed: %v", err))
				return
			}
			s.backoff(attempt)
			continue
		}

		resp, httpErr := s.http.Put(ctx, slot.URL, slot.Headers, item.Data)
		switch classify(resp, httpErr) {
		case outcomeSuccess:
			breaker.recordSuccess()
			if err := s.remote.Confirm(ctx, t.seg); err != nil {
				s.logger.WithFields(logging.Fields{"stream": t.seg.StreamID, "error": err}).Warn("confirm failed after successful transfer")
			}
			t.statusCb(t.handle, t.seg, protocol.SyncStatusDone, "")
			return
		case outcomeFatal:
			status := protocol.SyncStatusError
			if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
				status = protocol.SyncStatusTooManyRequests
			}
			t.statusCb(t.handle, t.seg, status, fmt.Sprintf("upload rejected: %v", describeResponse(resp, httpErr)))
			return
		case outcomeRetry:
			breaker.recordFailure()
			status := protocol.SyncStatusError
			if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
				status = protocol.SyncStatusTooManyRequests
			}
			if attempt == maxAttempts-1 {
				t.statusCb(t.handle, t.seg, status, fmt.Sprintf("upload failed after %d attempts: %v", maxAttempts, describeResponse(resp, httpErr)))
				return
			}
			s.backoff(attempt)
		}
	}
}

func describeResponse(resp *transport.HTTPResponse, err error) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return "unknown error"
}

// backoff sleeps a capped exponential delay with jitter before the next
// retry attempt, per config.SyncConfig.RetryBaseDelay/RetryMaxDelay.
func (s *Synchronizer) backoff(attempt int) {
	base := s.cfg.RetryBaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	max := s.cfg.RetryMaxDelay
	if max <= 0 {
		max = 30 * time.Second
	}
	delay := base << uint(attempt)
	if delay <= 0 || delay > max {
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	time.Sleep(delay/2 + jitter)
}

func (s *Synchronizer) stateFor(handle Handle) *requestState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[handle]
}

// SyncOnEventStart opens an event-driven sync window beginning
// pre_record before t, returning a handle that SyncOnEventStop later
// closes (spec.md §4.8 "sync_on_event_start").
func (s *Synchronizer) SyncOnEventStart(t time.Time, statusCb StatusCallback) Handle {
	handle := s.allocHandle()
	s.mu.Lock()
	s.requests[handle] = &requestState{}
	s.windows[handle] = &eventWindow{handle: handle, begin: t.Add(-s.bhv.PreRecord), statusCb: statusCb}
	s.mu.Unlock()
	return handle
}

// SyncOnEventContinue keeps an open window alive; it is a no-op beyond
// validating the window hasn't already been closed.
func (s *Synchronizer) SyncOnEventContinue(handle Handle, t time.Time) error {
	s.mu.Lock()
	w, ok := s.windows[handle]
	s.mu.Unlock()
	if !ok || w.finished {
		return fmt.Errorf("sync: unknown or already-finished event window %d", handle)
	}
	return nil
}

// SyncOnEventStop extends the window to t+post_record and schedules the
// accumulated range for upload. A given handle is never re-armed once
// stopped (spec.md §4.8 "never re-arming a finished request").
func (s *Synchronizer) SyncOnEventStop(ctx context.Context, handle Handle, t time.Time) error {
	s.mu.Lock()
	w, ok := s.windows[handle]
	if ok {
		if w.finished {
			ok = false
		} else {
			w.finished = true
		}
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("sync: unknown or already-finished event window %d", handle)
	}

	end := t.Add(s.bhv.PostRecord)
	items, err := s.local.List(ctx, w.begin, end)
	if err != nil {
		return fmt.Errorf("sync: enumerate event window: %w", err)
	}
	for _, item := range items {
		seg := Segment{StreamID: item.StreamID, Category: item.Category, MediaType: item.MediaType, Begin: item.Begin, End: item.End}
		if !seg.End.After(seg.Begin) {
			continue
		}
		task := &segmentTask{handle: handle, seg: seg, enqueuedAt: time.Now(), statusCb: w.statusCb}
		s.queueFor(seg.Category).submit(task)
	}
	return nil
}
