// Package storage implements the timed storage abstraction (C7): a
// list/load/store/erase surface over time-indexed media segments, with a
// bounded-concurrency FIFO queue for background stores (spec.md §4.7).
package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
)

// ErrBackendUnavailable is returned by every Storage operation when no
// Backend was supplied at construction, so callers see a normal error
// instead of a nil-interface panic (spec.md §4.9 "done{CM_ERROR}").
var ErrBackendUnavailable = errors.New("storage: no backend configured")

// Item is one timed storage segment (a recording slice or a snapshot).
type Item struct {
	StreamID  string
	Category  protocol.StorageCategory
	MediaType protocol.MediaType
	Begin     time.Time
	End       time.Time
	Data      []byte
}

// OnFinished reports the outcome of a background store exactly once.
type OnFinished func(ok bool)

// IsCancelled is polled by the queue before starting a task and passed
// through to the backend for mid-transfer checks at its own step
// boundaries (spec.md §4.7 "checks is_cancelled before starting and at
// step boundaries").
type IsCancelled func() bool

// Backend is the actual storage medium (local filesystem, in-memory test
// double, …) that Storage schedules work against.
type Backend interface {
	List(ctx context.Context, start, end time.Time) ([]Item, error)
	Load(ctx context.Context, item *Item) error
	Store(ctx context.Context, item *Item, isCancelled IsCancelled) error
	Erase(ctx context.Context, item Item) error
}

// Handle identifies one store_async task. Handles are never reused: a
// cancelled-then-requeued item gets a fresh one (spec.md §4.7 "no ABA on
// outstanding tasks").
type Handle uint64

type task struct {
	id          Handle
	item        Item
	onFinished  OnFinished
	isCancelled IsCancelled
}

// Storage is the bounded-concurrency façade over a Backend. At most
// maxConcurrent store_async tasks run at once; the rest wait in FIFO
// order, mirroring the teacher's bounded worker pool's semaphore +
// atomic-counter shape but replacing its block-on-submit semaphore with
// an explicit queue, since spec.md §4.7 requires excess tasks to queue
// rather than block the submitter.
type Storage struct {
	backend       Backend
	maxConcurrent int
	logger        *logging.Logger

	mu     sync.Mutex
	queue  []*task
	active int
	closed bool
	nextID uint64
	wg     sync.WaitGroup

	queuedTasks    int64
	completedTasks int64
	failedTasks    int64
	cancelledTasks int64
}

// New builds a Storage over backend with the given background-store
// concurrency cap (spec.md §4.7 "max_concurrent_processing_items,
// default 2").
func New(backend Backend, maxConcurrent int, logger *logging.Logger) *Storage {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	if logger == nil {
		logger = logging.GetLogger("storage")
	}
	return &Storage{backend: backend, maxConcurrent: maxConcurrent, logger: logger}
}

// List returns the placeholder items covering [start, end]; per spec.md
// §4.7 they may overlap the boundaries and never carry item.Data.
func (s *Storage) List(ctx context.Context, start, end time.Time) ([]Item, error) {
	if s.backend == nil {
		return nil, ErrBackendUnavailable
	}
	return s.backend.List(ctx, start, end)
}

// Load fills item.Data for item.Begin..item.End. Idempotent; fails if the
// interval is no longer available.
func (s *Storage) Load(ctx context.Context, item *Item) error {
	if s.backend == nil {
		return ErrBackendUnavailable
	}
	return s.backend.Load(ctx, item)
}

// Store performs a blocking store.
func (s *Storage) Store(ctx context.Context, item *Item) error {
	if s.backend == nil {
		return ErrBackendUnavailable
	}
	return s.backend.Store(ctx, item, nil)
}

// Erase best-effort removes item.
func (s *Storage) Erase(ctx context.Context, item Item) error {
	if s.backend == nil {
		return ErrBackendUnavailable
	}
	return s.backend.Erase(ctx, item)
}

// StoreAsync schedules a background store. onFinished is invoked exactly
// once, whether the task completes, fails, or is dropped for having
// never started (queue closed or found cancelled before being pulled).
func (s *Storage) StoreAsync(item Item, onFinished OnFinished, isCancelled IsCancelled) Handle {
	s.mu.Lock()
	id := Handle(s.nextID + 1)
	s.nextID++

	if s.closed {
		s.mu.Unlock()
		onFinished(false)
		return id
	}

	t := &task{id: id, item: item, onFinished: onFinished, isCancelled: isCancelled}
	s.queue = append(s.queue, t)
	atomic.AddInt64(&s.queuedTasks, 1)
	s.mu.Unlock()

	s.dispatch()
	return id
}

func (s *Storage) dispatch() {
	for {
		s.mu.Lock()
		if s.closed || s.active >= s.maxConcurrent || len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		t := s.queue[0]
		s.queue = s.queue[1:]
		s.active++
		s.mu.Unlock()

		atomic.AddInt64(&s.queuedTasks, -1)
		s.wg.Add(1)
		go s.run(t)
	}
}

func (s *Storage) run(t *task) {
	finished := false
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&s.failedTasks, 1)
			s.logger.WithFields(logging.Fields{"panic": r}).Error("store task panicked")
			if !finished {
				finished = true
				t.onFinished(false)
			}
		}
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
		s.wg.Done()
		s.dispatch()
	}()

	if t.isCancelled != nil && t.isCancelled() {
		atomic.AddInt64(&s.cancelledTasks, 1)
		finished = true
		t.onFinished(false)
		return
	}

	err := s.backend.Store(context.Background(), &t.item, t.isCancelled)
	ok := err == nil
	if ok && t.isCancelled != nil && t.isCancelled() {
		ok = false
	}

	if ok {
		atomic.AddInt64(&s.completedTasks, 1)
	} else {
		atomic.AddInt64(&s.failedTasks, 1)
	}
	finished = true
	t.onFinished(ok)
}

// Finit drains the queue — every queued-but-not-started task receives
// on_finished(false) immediately — then waits for in-flight tasks to
// finish cleanly, and refuses any further StoreAsync calls.
func (s *Storage) Finit() {
	s.mu.Lock()
	s.closed = true
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, t := range pending {
		atomic.AddInt64(&s.queuedTasks, -1)
		atomic.AddInt64(&s.cancelledTasks, 1)
		t.onFinished(false)
	}

	s.wg.Wait()
}

// Stats is a snapshot of the queue's counters, for diagnostics and tests.
type Stats struct {
	QueuedTasks    int64
	ActiveTasks    int
	CompletedTasks int64
	FailedTasks    int64
	CancelledTasks int64
}

func (s *Storage) Stats() Stats {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	return Stats{
		QueuedTasks:    atomic.LoadInt64(&s.queuedTasks),
		ActiveTasks:    active,
		CompletedTasks: atomic.LoadInt64(&s.completedTasks),
		FailedTasks:    atomic.LoadInt64(&s.failedTasks),
		CancelledTasks: atomic.LoadInt64(&s.cancelledTasks),
	}
}
