package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingBackend lets tests control exactly when Store returns, to
// observe queueing behaviour under the concurrency cap.
type blockingBackend struct {
	mu      sync.Mutex
	release chan struct{}
	starts  int
}

func newBlockingBackend() *blockingBackend {
	return &blockingBackend{release: make(chan struct{})}
}

func (b *blockingBackend) List(ctx context.Context, start, end time.Time) ([]Item, error) {
	return nil, nil
}
func (b *blockingBackend) Load(ctx context.Context, item *Item) error { return nil }
func (b *blockingBackend) Erase(ctx context.Context, item Item) error { return nil }

func (b *blockingBackend) Store(ctx context.Context, item *Item, isCancelled IsCancelled) error {
	b.mu.Lock()
	b.starts++
	b.mu.Unlock()
	<-b.release
	return nil
}

func TestStorage_StoreAsyncRespectsConcurrencyCap(t *testing.T) {
	backend := newBlockingBackend()
	s := New(backend, 2, nil)

	done := make(chan int, 5)
	for i := 0; i < 5; i++ {
		i := i
		s.StoreAsync(Item{StreamID: "cam1"}, func(ok bool) { done <- i }, nil)
	}

	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.starts == 2
	}, time.Second, 5*time.Millisecond, "only maxConcurrent tasks should start")

	stats := s.Stats()
	assert.Equal(t, 3, int(stats.QueuedTasks))

	close(backend.release)

	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("not all tasks completed")
		}
	}
	assert.Equal(t, int64(5), s.Stats().CompletedTasks)
}

func TestStorage_StoreAsyncCancelledBeforeStartSkipsBackend(t *testing.T) {
	backend := newBlockingBackend()
	close(backend.release)
	s := New(backend, 2, nil)

	var result bool
	done := make(chan struct{})
	s.StoreAsync(Item{StreamID: "cam1"}, func(ok bool) {
		result = ok
		close(done)
	}, func() bool { return true })

	<-done
	assert.False(t, result)
	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 0, backend.starts)
}

func TestStorage_FinitDrainsQueuedTasksAndWaitsForInFlight(t *testing.T) {
	backend := newBlockingBackend()
	s := New(backend, 1, nil)

	var results []bool
	var mu sync.Mutex
	record := func(ok bool) {
		mu.Lock()
		results = append(results, ok)
		mu.Unlock()
	}

	s.StoreAsync(Item{StreamID: "cam1"}, record, nil) // will start immediately
	s.StoreAsync(Item{StreamID: "cam2"}, record, nil) // stays queued

	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.starts == 1
	}, time.Second, 5*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(backend.release)
	}()

	s.Finit()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 2)
	assert.False(t, results[0], "queued-but-not-started task must finish with false")
}

func TestFileBackend_StoreListLoadErase(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, nil)
	require.NoError(t, err)

	begin := time.Unix(1000, 0)
	end := time.Unix(1010, 0)
	item := Item{
		StreamID:  "cam1",
		Category:  protocol.StorageCategoryRecord,
		MediaType: protocol.MediaTypeMP4,
		Begin:     begin,
		End:       end,
		Data:      []byte("hello"),
	}

	ctx := context.Background()
	require.NoError(t, backend.Store(ctx, &item, nil))

	items, err := backend.List(ctx, begin.Add(-time.Second), end.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "cam1", items[0].StreamID)
	assert.Empty(t, items[0].Data)

	loaded := items[0]
	require.NoError(t, backend.Load(ctx, &loaded))
	assert.Equal(t, []byte("hello"), loaded.Data)

	require.NoError(t, backend.Erase(ctx, item))
	items, err = backend.List(ctx, begin.Add(-time.Second), end.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFileBackend_ListExcludesNonOverlappingRanges(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, nil)
	require.NoError(t, err)

	ctx := context.Background()
	item := Item{
		StreamID:  "cam1",
		Category:  protocol.StorageCategoryRecord,
		MediaType: protocol.MediaTypeMP4,
		Begin:     time.Unix(100, 0),
		End:       time.Unix(110, 0),
		Data:      []byte("x"),
	}
	require.NoError(t, backend.Store(ctx, &item, nil))

	items, err := backend.List(ctx, time.Unix(200, 0), time.Unix(300, 0))
	require.NoError(t, err)
	assert.Empty(t, items)
}
