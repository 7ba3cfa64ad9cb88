package sync

import (
	"sync"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
)

// segmentTask is one queued unit of work for a categoryQueue: upload one
// Segment belonging to a Handle.
type segmentTask struct {
	handle     Handle
	seg        Segment
	enqueuedAt time.Time
	statusCb   StatusCallback
}

// categoryQueue is a bounded-concurrency FIFO-by-earliest-segment-time
// queue for one media category (video or snapshot), grounded on the same
// atomic-counter/panic-recovery shape internal/storage.Storage already
// reuses from the teacher's bounded worker pool, adapted again here with
// time-ordering and a lateness-drop policy spec.md §4.8 requires and
// internal/storage.Storage does not.
type categoryQueue struct {
	maxConcurrent int
	lateness      time.Duration // 0 disables the lateness drop
	logger        *logging.Logger
	process       func(t *segmentTask)

	mu     sync.Mutex
	queue  []*segmentTask
	active int
	closed bool
	wg     sync.WaitGroup
}

func newCategoryQueue(maxConcurrent int, lateness time.Duration, logger *logging.Logger, process func(*segmentTask)) *categoryQueue {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &categoryQueue{maxConcurrent: maxConcurrent, lateness: lateness, logger: logger, process: process}
}

// submit inserts t in FIFO-by-Segment.Begin order and dispatches.
func (q *categoryQueue) submit(t *segmentTask) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		t.statusCb(t.handle, t.seg, protocol.SyncStatusError, "queue closed")
		return
	}
	i := 0
	for ; i < len(q.queue); i++ {
		if t.seg.Begin.Before(q.queue[i].seg.Begin) {
			break
		}
	}
	q.queue = append(q.queue, nil)
	copy(q.queue[i+1:], q.queue[i:])
	q.queue[i] = t
	q.mu.Unlock()

	q.dispatch()
}

// removeHandle drops every queued (not yet started) task belonging to
// handle, reporting each one cancelled. In-flight tasks are left to the
// caller's own is_cancelled poll.
func (q *categoryQueue) removeHandle(handle Handle, onDropped func(*segmentTask)) {
	q.mu.Lock()
	kept := q.queue[:0]
	var dropped []*segmentTask
	for _, t := range q.queue {
		if t.handle == handle {
			dropped = append(dropped, t)
			continue
		}
		kept = append(kept, t)
	}
	q.queue = kept
	q.mu.Unlock()

	for _, t := range dropped {
		onDropped(t)
	}
}

func (q *categoryQueue) dispatch() {
	for {
		q.mu.Lock()
		if q.closed || q.active >= q.maxConcurrent || len(q.queue) == 0 {
			q.mu.Unlock()
			return
		}
		t := q.queue[0]
		q.queue = q.queue[1:]

		if q.lateness > 0 && time.Since(t.enqueuedAt) > q.lateness {
			q.mu.Unlock()
			q.logger.WithFields(logging.Fields{
				"stream": t.seg.StreamID, "category": t.seg.Category,
			}).Warn("upload dropped: exceeded max queue lateness")
			t.statusCb(t.handle, t.seg, protocol.SyncStatusError, "dropped: exceeded max queue lateness")
			continue
		}

		q.active++
		q.mu.Unlock()

		q.wg.Add(1)
		go q.run(t)
	}
}

func (q *categoryQueue) run(t *segmentTask) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.WithFields(logging.Fields{"panic": r}).Error("sync segment task panicked")
		}
		q.mu.Lock()
		q.active--
		q.mu.Unlock()
		q.wg.Done()
		q.dispatch()
	}()
	q.process(t)
}

// finit drains queued tasks (reporting each dropped) and waits for
// in-flight work, mirroring internal/storage.Storage.Finit.
func (q *categoryQueue) finit(onDropped func(*segmentTask)) {
	q.mu.Lock()
	q.closed = true
	pending := q.queue
	q.queue = nil
	q.mu.Unlock()

	for _, t := range pending {
		onDropped(t)
	}
	q.wg.Wait()
}
