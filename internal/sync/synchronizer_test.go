package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/camerarecorder/cloud-agent-go/internal/storage"
	"github.com/camerarecorder/cloud-agent-go/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu          sync.Mutex
	overlapping map[string]bool
	slotURL     string
	confirmed   []Segment
	requestErr  error
}

func (f *fakeRemote) Overlaps(ctx context.Context, seg Segment) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlapping[seg.StreamID], nil
}

func (f *fakeRemote) RequestSlot(ctx context.Context, seg Segment) (Slot, error) {
	if f.requestErr != nil {
		return Slot{}, f.requestErr
	}
	return Slot{URL: f.slotURL, Headers: map[string]string{"X-Stream": seg.StreamID}}, nil
}

func (f *fakeRemote) Confirm(ctx context.Context, seg Segment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, seg)
	return nil
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{RetryBaseDelay: time.Millisecond, RetryMaxDelay: 5 * time.Millisecond, RetryMaxAttempts: 3}
}

func testBehaviourConfig() config.BehaviourConfig {
	return config.BehaviourConfig{
		MaxConcurrentVideoUploads:    2,
		MaxConcurrentSnapshotUploads: 2,
		PreRecord:                    2 * time.Second,
		PostRecord:                   2 * time.Second,
	}
}

func newTestSynchronizer(t *testing.T, remote RemoteStore, uploadHandler http.HandlerFunc) (*Synchronizer, *storage.Storage) {
	t.Helper()
	dir := t.TempDir()
	backend, err := storage.NewFileBackend(dir, nil)
	require.NoError(t, err)
	st := storage.New(backend, 2, nil)

	srv := httptest.NewServer(uploadHandler)
	t.Cleanup(srv.Close)

	httpClient := transport.NewHTTPClient(&config.TransportConfig{HTTPTimeout: time.Second, HTTPRequestsPerSecond: 1000, HTTPBurst: 1000}, nil)

	fr, ok := remote.(*fakeRemote)
	if ok {
		fr.slotURL = srv.URL
	}

	s := New(st, remote, httpClient, testSyncConfig(), testBehaviourConfig(), nil)
	return s, st
}

func recordingStatusCb() (StatusCallback, func() []protocol.SyncStatus) {
	var mu sync.Mutex
	var statuses []protocol.SyncStatus
	cb := func(handle Handle, seg Segment, status protocol.SyncStatus, detail string) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, status)
	}
	get := func() []protocol.SyncStatus {
		mu.Lock()
		defer mu.Unlock()
		out := make([]protocol.SyncStatus, len(statuses))
		copy(out, statuses)
		return out
	}
	return cb, get
}

func storeItem(t *testing.T, st *storage.Storage, streamID string, begin, end time.Time) {
	t.Helper()
	item := storage.Item{StreamID: streamID, Category: protocol.StorageCategoryRecord, MediaType: protocol.MediaTypeMP4, Begin: begin, End: end, Data: []byte("payload")}
	require.NoError(t, st.Store(context.Background(), &item))
}

func TestSynchronizer_UploadsNewSegmentAndConfirms(t *testing.T) {
	remote := &fakeRemote{overlapping: map[string]bool{}}
	handler := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	s, st := newTestSynchronizer(t, remote, handler)

	begin := time.Unix(1000, 0)
	end := time.Unix(1010, 0)
	storeItem(t, st, "cam1", begin, end)

	cb, get := recordingStatusCb()
	_, err := s.Sync(context.Background(), begin.Add(-time.Second), end.Add(time.Second), cb)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		statuses := get()
		return len(statuses) > 0 && statuses[len(statuses)-1] == protocol.SyncStatusDone
	}, time.Second, 5*time.Millisecond)

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Len(t, remote.confirmed, 1)
}

func TestSynchronizer_SkipsSegmentAlreadyRemote(t *testing.T) {
	remote := &fakeRemote{overlapping: map[string]bool{"cam1": true}}
	called := false
	handler := func(w http.ResponseWriter, r *http.Request) { called = true; w.WriteHeader(http.StatusOK) }
	s, st := newTestSynchronizer(t, remote, handler)

	begin := time.Unix(2000, 0)
	end := time.Unix(2010, 0)
	storeItem(t, st, "cam1", begin, end)

	cb, get := recordingStatusCb()
	_, err := s.Sync(context.Background(), begin.Add(-time.Second), end.Add(time.Second), cb)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		statuses := get()
		return len(statuses) > 0 && statuses[len(statuses)-1] == protocol.SyncStatusDone
	}, time.Second, 5*time.Millisecond)
	assert.False(t, called, "already-remote segment must not be uploaded")
}

func TestSynchronizer_FatalStatusIsNotRetried(t *testing.T) {
	remote := &fakeRemote{overlapping: map[string]bool{}}
	var attempts int
	var mu sync.Mutex
	handler := func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusForbidden)
	}
	s, st := newTestSynchronizer(t, remote, handler)

	begin := time.Unix(3000, 0)
	end := time.Unix(3010, 0)
	storeItem(t, st, "cam1", begin, end)

	cb, get := recordingStatusCb()
	_, err := s.Sync(context.Background(), begin.Add(-time.Second), end.Add(time.Second), cb)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		statuses := get()
		return len(statuses) > 0 && statuses[len(statuses)-1] == protocol.SyncStatusError
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, attempts, "a fatal 4xx must not be retried")
}

func TestSynchronizer_RetryableStatusEventuallySucceeds(t *testing.T) {
	remote := &fakeRemote{overlapping: map[string]bool{}}
	var attempts int
	var mu sync.Mutex
	handler := func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
	s, st := newTestSynchronizer(t, remote, handler)

	begin := time.Unix(4000, 0)
	end := time.Unix(4010, 0)
	storeItem(t, st, "cam1", begin, end)

	cb, get := recordingStatusCb()
	_, err := s.Sync(context.Background(), begin.Add(-time.Second), end.Add(time.Second), cb)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		statuses := get()
		return len(statuses) > 0 && statuses[len(statuses)-1] == protocol.SyncStatusDone
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestSynchronizer_CircuitBreakerOpensAfterRepeatedRetryableFailures(t *testing.T) {
	remote := &fakeRemote{overlapping: map[string]bool{}}
	var attempts int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	dir := t.TempDir()
	backend, err := storage.NewFileBackend(dir, nil)
	require.NoError(t, err)
	st := storage.New(backend, 3, nil)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	remote.slotURL = srv.URL

	httpClient := transport.NewHTTPClient(&config.TransportConfig{HTTPTimeout: time.Second, HTTPRequestsPerSecond: 1000, HTTPBurst: 1000}, nil)

	cfg := testSyncConfig()
	cfg.RetryMaxAttempts = 1
	cfg.CircuitBreakerFailureThreshold = 2
	cfg.CircuitBreakerRecoveryTimeout = time.Hour

	behaviour := testBehaviourConfig()
	behaviour.MaxConcurrentVideoUploads = 1 // serialize so failures accrue in order

	s := New(st, remote, httpClient, cfg, behaviour, nil)

	base := time.Unix(7000, 0)
	for i := 0; i < 3; i++ {
		begin := base.Add(time.Duration(i) * 20 * time.Second)
		storeItem(t, st, fmt.Sprintf("cam-cb-%d", i), begin, begin.Add(5*time.Second))
	}

	cb, get := recordingStatusCb()
	_, err = s.Sync(context.Background(), base.Add(-time.Second), base.Add(time.Hour), cb)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		statuses := get()
		errCount := 0
		for _, st := range statuses {
			if st == protocol.SyncStatusError {
				errCount++
			}
		}
		return errCount >= 3
	}, time.Second, 5*time.Millisecond)

	// threshold 2: the first two segments each fail once and trip the
	// breaker, so the third segment must fail fast without another
	// request reaching the server.
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts), "breaker should short-circuit the third segment's upload attempt")
}

func TestSynchronizer_CancelDropsQueuedSegments(t *testing.T) {
	remote := &fakeRemote{overlapping: map[string]bool{}}
	release := make(chan struct{})
	var starts int
	var mu sync.Mutex
	handler := func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		starts++
		mu.Unlock()
		<-release
		w.WriteHeader(http.StatusOK)
	}
	s, st := newTestSynchronizer(t, remote, handler)

	base := time.Unix(5000, 0)
	for i := 0; i < 3; i++ {
		begin := base.Add(time.Duration(i) * 20 * time.Second)
		storeItem(t, st, "cam1", begin, begin.Add(5*time.Second))
	}

	cb, get := recordingStatusCb()
	handle, err := s.Sync(context.Background(), base.Add(-time.Second), base.Add(time.Hour), cb)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return starts == 2 // video pool cap from testBehaviourConfig
	}, time.Second, 5*time.Millisecond)

	s.Cancel(handle)

	require.Eventually(t, func() bool {
		statuses := get()
		canceled := 0
		for _, st := range statuses {
			if st == protocol.SyncStatusCanceled {
				canceled++
			}
		}
		return canceled >= 1
	}, time.Second, 5*time.Millisecond)

	close(release)
}

func TestSynchronizer_EventDrivenWindowExtendsWithPostRecord(t *testing.T) {
	remote := &fakeRemote{overlapping: map[string]bool{}}
	handler := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	s, st := newTestSynchronizer(t, remote, handler)

	eventStart := time.Unix(6000, 0)
	storeItem(t, st, "cam1", eventStart.Add(-time.Second), eventStart.Add(3*time.Second))

	cb, get := recordingStatusCb()
	handle := s.SyncOnEventStart(eventStart, cb)

	eventStop := eventStart.Add(3 * time.Second)
	require.NoError(t, s.SyncOnEventStop(context.Background(), handle, eventStop))

	require.Eventually(t, func() bool {
		statuses := get()
		return len(statuses) > 0 && statuses[len(statuses)-1] == protocol.SyncStatusDone
	}, time.Second, 5*time.Millisecond)

	err := s.SyncOnEventStop(context.Background(), handle, eventStop.Add(time.Second))
	assert.Error(t, err, "a finished event window must never be re-armed")
}
