package streams

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mu      sync.Mutex
	starts  int
	stops   int
	failNext bool
}

func (m *mockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("source start failed")
	}
	m.starts++
	return nil
}

func (m *mockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return nil
}

type mockLiveSink struct {
	mu      sync.Mutex
	starts  int
	stops   int
	failNext bool
}

func (m *mockLiveSink) Start(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("live sink start failed")
	}
	m.starts++
	return nil
}

func (m *mockLiveSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return nil
}

type mockRecordSink struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (m *mockRecordSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	return nil
}

func (m *mockRecordSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	return nil
}

func newTestManager(recordNeedsSource bool) (*Manager, *mockSource, *mockLiveSink, *mockRecordSink) {
	src := &mockSource{}
	live := &mockLiveSink{}
	rec := &mockRecordSink{}
	m := NewManager(nil)
	m.Register(Descriptor{ID: "cam1", Source: src, Live: live, Record: rec, RecordNeedsSource: recordNeedsSource})
	return m, src, live, rec
}

func TestManager_LiveReferenceCounting(t *testing.T) {
	m, src, live, _ := newTestManager(true)
	ctx := context.Background()

	require.NoError(t, m.StartLive(ctx, "cam1", "rtsp://u1"))
	require.NoError(t, m.StartLive(ctx, "cam1", "rtsp://u2"))
	assert.Equal(t, 1, src.starts)
	assert.Equal(t, 1, live.starts)

	require.NoError(t, m.StopLive("cam1"))
	assert.Equal(t, 0, live.stops, "sink stays up while one live consumer remains")

	require.NoError(t, m.StopLive("cam1"))
	assert.Equal(t, 1, live.stops)

	require.NoError(t, m.CheckStopMediaSource("cam1"))
	assert.Equal(t, 1, src.stops)
}

func TestManager_RecordingAndLiveShareSource(t *testing.T) {
	m, src, _, rec := newTestManager(true)
	ctx := context.Background()

	require.NoError(t, m.StartLive(ctx, "cam1", "rtsp://u1"))
	require.NoError(t, m.StartRecording(ctx, "cam1", RecordLocal))
	assert.Equal(t, 1, src.starts, "source started exactly once across both consumers")
	assert.Equal(t, 1, rec.starts)

	require.NoError(t, m.StopLive("cam1"))
	require.NoError(t, m.CheckStopMediaSource("cam1"))
	assert.Equal(t, 0, src.stops, "source stays up while recording is active")

	require.NoError(t, m.StopRecording("cam1", RecordLocal, false))
	assert.Equal(t, 1, rec.stops)
	require.NoError(t, m.CheckStopMediaSource("cam1"))
	assert.Equal(t, 1, src.stops)
}

func TestManager_StartLiveErrorLeavesCountsUnchanged(t *testing.T) {
	m, src, live, _ := newTestManager(true)
	ctx := context.Background()

	live.failNext = true
	err := m.StartLive(ctx, "cam1", "rtsp://u1")
	require.Error(t, err)
	assert.Equal(t, 1, src.starts, "source was started before the sink failed")
	assert.Equal(t, 1, src.stops, "source rolled back since no consumer is using it")

	require.NoError(t, m.StartLive(ctx, "cam1", "rtsp://u1"))
	assert.Equal(t, 2, src.starts)
	assert.Equal(t, 1, live.starts)
}

func TestManager_ForceStopRecordingClearsAllModes(t *testing.T) {
	m, _, _, rec := newTestManager(false)
	ctx := context.Background()

	require.NoError(t, m.StartRecording(ctx, "cam1", RecordLocal))
	require.NoError(t, m.StartRecording(ctx, "cam1", RecordLocalByEvent))
	assert.Equal(t, 1, rec.starts, "second mode set is a no-op on the sink")

	require.NoError(t, m.StopRecording("cam1", 0, true))
	assert.Equal(t, 1, rec.stops)
}

func TestManager_RecordNotNeedingSourceDoesNotStartIt(t *testing.T) {
	m, src, _, rec := newTestManager(false)
	ctx := context.Background()

	require.NoError(t, m.StartRecording(ctx, "cam1", RecordLocal))
	assert.Equal(t, 0, src.starts)
	assert.Equal(t, 1, rec.starts)
}

func TestManager_UnknownStreamReturnsError(t *testing.T) {
	m := NewManager(nil)
	assert.Error(t, m.StartLive(context.Background(), "missing", "rtsp://u"))
}
