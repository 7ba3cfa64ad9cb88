// Package streams implements the reference-counted stream manager (C6):
// live viewing, continuous local recording, and event-triggered local
// recording share one media source per stream with lazy start/stop
// (spec.md §4.6).
package streams

import (
	"context"
	"fmt"
	"sync"

	"github.com/camerarecorder/cloud-agent-go/internal/logging"
)

// RecordMode is a bitmask of the reasons a stream is currently recording.
type RecordMode uint8

const (
	RecordLocal        RecordMode = 1 << iota // continuous local recording
	RecordLocalByEvent                        // recording triggered by an active event
)

// Source starts and stops the underlying media capture for a stream
// (embedder-supplied, spec.md §4.9 "media stream descriptors").
type Source interface {
	Start(ctx context.Context) error
	Stop() error
}

// LiveSink fans the stream out to a live viewer at url, started on the
// 0→1 transition of the live reference count and stopped on 1→0.
type LiveSink interface {
	Start(ctx context.Context, url string) error
	Stop() error
}

// RecordSink writes the stream to local storage, started when the first
// recording mode is set and stopped when the last is cleared.
type RecordSink interface {
	Start(ctx context.Context) error
	Stop() error
}

// Descriptor is one embedder-supplied stream: a capture source plus the
// sinks that can consume it.
type Descriptor struct {
	ID                string
	Source            Source
	Live              LiveSink
	Record            RecordSink
	RecordNeedsSource bool
}

type stream struct {
	mu            sync.Mutex
	desc          Descriptor
	sourceStarted bool
	liveSinks     int
	recordModes   RecordMode
}

// Manager owns the registered streams and enforces their reference-count
// discipline.
type Manager struct {
	mu      sync.Mutex
	streams map[string]*stream
	logger  *logging.Logger
}

// NewManager builds an empty stream manager.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetLogger("streams")
	}
	return &Manager{streams: make(map[string]*stream), logger: logger}
}

// Register adds or replaces a stream descriptor.
func (m *Manager) Register(desc Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[desc.ID] = &stream{desc: desc}
}

func (m *Manager) get(id string) (*stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.streams[id]
	if !ok {
		return nil, fmt.Errorf("streams: unknown stream %q", id)
	}
	return st, nil
}

// StartLive increments the live reference count, starting the source
// (if not already running) and the live sink on the 0→1 transition. An
// error from either leaves the reference count unchanged (spec.md §4.6
// "errors from source start propagate without mutating consumer counts").
func (m *Manager) StartLive(ctx context.Context, id, url string) error {
	st, err := m.get(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.liveSinks == 0 {
		startedSourceHere := false
		if !st.sourceStarted {
			if err := st.desc.Source.Start(ctx); err != nil {
				return fmt.Errorf("streams: start source for %q: %w", id, err)
			}
			st.sourceStarted = true
			startedSourceHere = true
		}
		if err := st.desc.Live.Start(ctx, url); err != nil {
			if startedSourceHere && st.recordModes == 0 {
				_ = st.desc.Source.Stop()
				st.sourceStarted = false
			}
			return fmt.Errorf("streams: start live sink for %q: %w", id, err)
		}
	}
	st.liveSinks++
	m.logger.WithFields(logging.Fields{"stream": id, "live_sinks": st.liveSinks}).Debug("live reference acquired")
	return nil
}

// StopLive decrements the live reference count, stopping the live sink
// on the 1→0 transition.
func (m *Manager) StopLive(id string) error {
	st, err := m.get(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.liveSinks == 0 {
		return nil
	}
	st.liveSinks--
	if st.liveSinks == 0 {
		if err := st.desc.Live.Stop(); err != nil {
			return fmt.Errorf("streams: stop live sink for %q: %w", id, err)
		}
	}
	m.logger.WithFields(logging.Fields{"stream": id, "live_sinks": st.liveSinks}).Debug("live reference released")
	return nil
}

// StartRecording sets mode, starting the source (if required and not
// already running) and the record sink on the empty→non-empty transition
// of the recording mode set.
func (m *Manager) StartRecording(ctx context.Context, id string, mode RecordMode) error {
	st, err := m.get(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	hadModes := st.recordModes != 0
	startedSourceHere := false
	if !hadModes {
		if st.desc.RecordNeedsSource && !st.sourceStarted {
			if err := st.desc.Source.Start(ctx); err != nil {
				return fmt.Errorf("streams: start source for %q: %w", id, err)
			}
			st.sourceStarted = true
			startedSourceHere = true
		}
		if err := st.desc.Record.Start(ctx); err != nil {
			if startedSourceHere && st.liveSinks == 0 {
				_ = st.desc.Source.Stop()
				st.sourceStarted = false
			}
			return fmt.Errorf("streams: start record sink for %q: %w", id, err)
		}
	}
	st.recordModes |= mode
	m.logger.WithFields(logging.Fields{"stream": id, "record_modes": st.recordModes}).Debug("recording mode set")
	return nil
}

// StopRecording clears mode (or every mode, if force), stopping the
// record sink once no mode remains set.
func (m *Manager) StopRecording(id string, mode RecordMode, force bool) error {
	st, err := m.get(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if force {
		st.recordModes = 0
	} else {
		st.recordModes &^= mode
	}
	if st.recordModes == 0 {
		if err := st.desc.Record.Stop(); err != nil {
			return fmt.Errorf("streams: stop record sink for %q: %w", id, err)
		}
	}
	m.logger.WithFields(logging.Fields{"stream": id, "record_modes": st.recordModes}).Debug("recording mode cleared")
	return nil
}

// CheckStopMediaSource stops the source iff there is no live viewer and
// no recording mode set, matching spec.md §4.6's lazy-stop policy. The
// manager never auto-restarts a stopped source; callers re-invoke
// StartLive/StartRecording when they next need it.
func (m *Manager) CheckStopMediaSource(id string) error {
	st, err := m.get(id)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.liveSinks == 0 && st.recordModes == 0 && st.sourceStarted {
		if err := st.desc.Source.Stop(); err != nil {
			return fmt.Errorf("streams: stop source for %q: %w", id, err)
		}
		st.sourceStarted = false
		m.logger.WithFields(logging.Fields{"stream": id}).Debug("media source stopped")
	}
	return nil
}

// SourceStarted reports whether the stream's source is currently
// running, for tests and diagnostics.
func (m *Manager) SourceStarted(id string) bool {
	st, err := m.get(id)
	if err != nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sourceStarted
}

// StreamIDs lists every registered stream, for commands that enumerate
// the device's media streams (get_supported_streams, get_cam_status).
func (m *Manager) StreamIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.streams))
	for id := range m.streams {
		ids = append(ids, id)
	}
	return ids
}
