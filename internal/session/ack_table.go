package session

import (
	"sync"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/camerarecorder/cloud-agent-go/internal/transport"
)

// AckCallback is invoked exactly once per outstanding command, either with
// the correlated reply or with timedOut=true and a nil reply (spec.md §4.3
// "Outbound with ack").
type AckCallback func(timedOut bool, reply *protocol.Envelope)

type ackEntry struct {
	cb     AckCallback
	handle transport.Handle
}

// AckTable is the mutex-guarded `msgid → (ack_callback, timeout_handle)`
// map (spec.md §3 "Command ack table"), grounded on the teacher's
// mutex-guarded connection-map idiom (internal/websocket/server.go's
// clientsMutex-protected clients map) generalized from connections to
// in-flight outbound commands.
type AckTable struct {
	mu        sync.Mutex
	entries   map[int64]ackEntry
	scheduler *transport.Scheduler
	logger    *logging.Logger
}

// NewAckTable builds an empty table driven by sched for timeouts.
func NewAckTable(sched *transport.Scheduler, logger *logging.Logger) *AckTable {
	if logger == nil {
		logger = logging.GetLogger("ack-table")
	}
	return &AckTable{
		entries:   make(map[int64]ackEntry),
		scheduler: sched,
		logger:    logger,
	}
}

// Register records cb against msgid and arms a timeout that fires cb(true,
// nil) if no reply arrives within timeout.
func (t *AckTable) Register(msgid int64, timeout time.Duration, cb AckCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()

	handle := t.scheduler.Schedule(func() { t.expire(msgid) }, timeout)
	t.entries[msgid] = ackEntry{cb: cb, handle: handle}
}

// Resolve matches an inbound reply's refid against the table; if found,
// the registered callback is invoked with the reply and the entry is
// removed. Returns false if refid was not outstanding (already resolved,
// expired, or never registered).
func (t *AckTable) Resolve(refid int64, reply *protocol.Envelope) bool {
	t.mu.Lock()
	entry, ok := t.entries[refid]
	if ok {
		delete(t.entries, refid)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	t.scheduler.Cancel(entry.handle)
	entry.cb(false, reply)
	return true
}

func (t *AckTable) expire(msgid int64) {
	t.mu.Lock()
	entry, ok := t.entries[msgid]
	if ok {
		delete(t.entries, msgid)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	t.logger.WithFields(logging.Fields{"msgid": msgid}).Debug("ack timed out")
	entry.cb(true, nil)
}

// FlushAll resolves every outstanding entry with a timeout, used on session
// close so no ack entry outlives the session (spec.md §3 "Command ack
// table" invariant).
func (t *AckTable) FlushAll() {
	t.mu.Lock()
	pending := t.entries
	t.entries = make(map[int64]ackEntry)
	t.mu.Unlock()

	for msgid, entry := range pending {
		t.scheduler.Cancel(entry.handle)
		_ = msgid
		entry.cb(true, nil)
	}
}

// Len reports the number of outstanding entries, for tests.
func (t *AckTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
