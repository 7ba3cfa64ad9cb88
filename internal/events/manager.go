// Package events aggregates configured event sources, merges cloud-pushed
// event configuration, and fans occurrences out to per-event state machines
// (spec.md §4.4/§4.5, C5).
package events

import (
	"context"
	"sync"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/eventstate"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/camerarecorder/cloud-agent-go/internal/transport"
)

// Occurrence is one raw observation handed to the manager by a Source: an
// event firing (stateless) or transitioning active/inactive (stateful). A
// nil Stop means "active, stop unknown yet" for a stateful event.
type Occurrence struct {
	Event      protocol.EventType
	CustomName string
	Start      time.Time
	Stop       *time.Time
}

// Source produces Occurrences, following the same start/events/close shape
// as the teacher's device event sources: a buffered channel drained by a
// goroutine the manager owns, with the producer responsible for closing
// its channel on exit.
//
// OwnedEvents/SetEvents establish the config-negotiation contract
// spec.md §4.5 requires: each source declares the (event_type,
// custom_name) keys it owns (mirroring the original device event
// stream's get_events() letting each stream append its own configs,
// original_source/src/agent/event-stream.h), and later receives only the
// cloud-pushed configs that fall within that ownership. A source may
// reject a pushed config by returning false, in which case it keeps
// running with its prior behaviour — but the manager still reports the
// cloud's pushed view on the next cam_events_conf reply regardless.
type Source interface {
	Start(ctx context.Context) error
	Events() <-chan Occurrence

	// OwnedEvents declares the configs this source is authoritative for,
	// called once when the source is registered.
	OwnedEvents() []protocol.EventConfig
	// SetEvents delivers the subset of a cloud set_cam_events push owned
	// by this source and reports whether the source accepted it. The
	// return value does not change what the manager records; a pushed
	// config whose Caps differ restarts that event's state.
	SetEvents(cfgs []protocol.EventConfig) bool

	Close() error
}

// Callbacks is how the manager reports event transitions to its owner
// (the agent façade, C9), which is responsible for translating them to a
// cam_event wire message and for notifying the stream manager of
// record-by-event starts/stops. Kept at arm's length from both concerns so
// this package only knows about configuration and fan-out.
type Callbacks struct {
	OnEvent func(cfg protocol.EventConfig, kind string, t time.Time)
}

type entry struct {
	cfg   protocol.EventConfig
	state *eventstate.State
}

// Manager owns the configured event set and the sources that feed it.
type Manager struct {
	mu        sync.Mutex
	scheduler *transport.Scheduler
	callbacks Callbacks
	logger    *logging.Logger
	entries   map[string]*entry

	sourcesMu sync.Mutex
	sources   map[string]Source
	owners    map[string]string // event key -> owning source name
	wg        sync.WaitGroup
}

func key(evt protocol.EventType, customName string) string {
	if customName == "" {
		return string(evt)
	}
	return string(evt) + "/" + customName
}

// NewManager builds an event manager. scheduler drives each event's
// continuation ticks (shared with the rest of the protocol engine).
func NewManager(scheduler *transport.Scheduler, callbacks Callbacks, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetLogger("events")
	}
	return &Manager{
		scheduler: scheduler,
		callbacks: callbacks,
		logger:    logger,
		entries:   make(map[string]*entry),
		sources:   make(map[string]Source),
		owners:    make(map[string]string),
	}
}

// Configure replaces the configured event set with configs, the contents
// of a set_cam_events push (spec.md §4.5). Events no longer present are
// closed (forcing stopped() if still active); events present in both the
// old and new set are reconfigured in place, preserving in-flight state
// only if the caps are unchanged, otherwise restarted clean.
//
// The push is also split by (event_type, custom_name) ownership and
// handed to each owning source's SetEvents; m.entries always ends up
// holding the cloud-pushed configs regardless of what a source accepts,
// so Configs() keeps reporting the cloud-acknowledged view (spec.md §4.5
// "the manager retains the cloud-acknowledged view regardless").
func (m *Manager) Configure(configs []protocol.EventConfig) {
	m.mu.Lock()
	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		name, _ := cfg.CustomName.Get()
		k := key(cfg.Event, name)
		seen[k] = true

		if existing, ok := m.entries[k]; ok && existing.cfg.Caps == cfg.Caps {
			existing.cfg = cfg
			continue
		}
		if existing, ok := m.entries[k]; ok {
			existing.state.Close()
		}
		m.entries[k] = &entry{cfg: cfg, state: m.newState(cfg)}
	}

	for k, existing := range m.entries {
		if !seen[k] {
			existing.state.Close()
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()

	m.dispatchToSources(configs)
}

// dispatchToSources splits configs by owning source and calls each
// owner's SetEvents with only the subset it owns. A source returning
// false is logged but otherwise has no effect on the cloud-facing view:
// that's entirely decided by Configure's entries update above.
func (m *Manager) dispatchToSources(configs []protocol.EventConfig) {
	m.sourcesMu.Lock()
	bySource := make(map[string][]protocol.EventConfig)
	for _, cfg := range configs {
		name, _ := cfg.CustomName.Get()
		owner, ok := m.owners[key(cfg.Event, name)]
		if !ok {
			continue
		}
		bySource[owner] = append(bySource[owner], cfg)
	}
	sources := make(map[string]Source, len(bySource))
	for name := range bySource {
		if src, ok := m.sources[name]; ok {
			sources[name] = src
		}
	}
	m.sourcesMu.Unlock()

	for name, cfgs := range bySource {
		src, ok := sources[name]
		if !ok {
			continue
		}
		if !src.SetEvents(cfgs) {
			m.logger.WithFields(logging.Fields{"source": name}).Debug("event source kept its prior configuration")
		}
	}
}

// Configs returns the currently configured event set, the contents of a
// cam_events_conf reply.
func (m *Manager) Configs() []protocol.EventConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]protocol.EventConfig, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.cfg)
	}
	return out
}

func (m *Manager) newState(cfg protocol.EventConfig) *eventstate.State {
	return eventstate.New(cfg, eventstate.Callbacks{
		OnStarted:   func(c protocol.EventConfig, t time.Time) { m.notify(c, "started", t) },
		OnOngoing:   func(c protocol.EventConfig, t time.Time) { m.notify(c, "ongoing", t) },
		OnStopped:   func(c protocol.EventConfig, t time.Time) { m.notify(c, "stopped", t) },
		OnTriggered: func(c protocol.EventConfig, t time.Time) { m.notify(c, "triggered", t) },
	}, m.scheduler, m.logger)
}

func (m *Manager) notify(cfg protocol.EventConfig, kind string, t time.Time) {
	if m.callbacks.OnEvent != nil {
		m.callbacks.OnEvent(cfg, kind, t)
	}
}

// Trigger feeds one occurrence into the matching configured event. An
// occurrence for an unconfigured or inactive event is dropped (spec.md
// §4.4 "occurrences for an event not currently active are ignored").
func (m *Manager) Trigger(o Occurrence) {
	m.mu.Lock()
	e, ok := m.entries[key(o.Event, o.CustomName)]
	m.mu.Unlock()

	if !ok {
		m.logger.WithFields(logging.Fields{"event": o.Event}).Debug("dropping occurrence for unconfigured event")
		return
	}
	if !e.cfg.Active {
		m.logger.WithFields(logging.Fields{"event": o.Event}).Debug("dropping occurrence for inactive event")
		return
	}

	if o.Stop != nil && e.state.Active() {
		e.state.Stop(*o.Stop)
		return
	}
	e.state.Start(o.Start, o.Stop)
}

// AddSource registers a named occurrence producer and starts draining it
// in its own goroutine. Adding a source under a name already registered
// replaces the prior one after closing it. src.OwnedEvents() is recorded
// as this source's ownership of future set_cam_events pushes.
func (m *Manager) AddSource(ctx context.Context, name string, src Source) error {
	m.sourcesMu.Lock()
	if old, ok := m.sources[name]; ok {
		_ = old.Close()
	}
	m.sources[name] = src
	for _, cfg := range src.OwnedEvents() {
		n, _ := cfg.CustomName.Get()
		m.owners[key(cfg.Event, n)] = name
	}
	m.sourcesMu.Unlock()

	if err := src.Start(ctx); err != nil {
		return err
	}

	m.wg.Add(1)
	go m.drain(name, src)
	return nil
}

func (m *Manager) drain(name string, src Source) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.logger.WithFields(logging.Fields{"source": name, "panic": r}).Error("recovered from panic draining event source")
		}
	}()

	for o := range src.Events() {
		m.Trigger(o)
	}
}

// Close stops every registered source and force-closes every still-active
// stateful event, guaranteeing a stopped() for each per spec.md §4.4.
func (m *Manager) Close() {
	m.sourcesMu.Lock()
	for _, src := range m.sources {
		_ = src.Close()
	}
	m.sourcesMu.Unlock()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		e.state.Close()
	}
}
