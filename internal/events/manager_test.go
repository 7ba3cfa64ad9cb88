package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/camerarecorder/cloud-agent-go/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	mu   sync.Mutex
	evts []string
}

func (o *observed) add(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.evts = append(o.evts, kind)
}

func (o *observed) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.evts))
	copy(out, o.evts)
	return out
}

func motionConfig(active bool) protocol.EventConfig {
	return protocol.EventConfig{
		Event:  protocol.EventTypeMotion,
		Active: active,
		Caps:   protocol.EventCaps{Stateful: true, StateEmulationReportDelay: 5},
	}
}

func TestManager_ConfigureThenTriggerEmitsStartedAndStopped(t *testing.T) {
	sched := transport.NewScheduler(nil)
	defer sched.Close()

	obs := &observed{}
	m := NewManager(sched, Callbacks{
		OnEvent: func(cfg protocol.EventConfig, kind string, tm time.Time) { obs.add(kind) },
	}, nil)
	defer m.Close()

	m.Configure([]protocol.EventConfig{motionConfig(true)})

	now := time.Now()
	m.Trigger(Occurrence{Event: protocol.EventTypeMotion, Start: now})
	require.Eventually(t, func() bool { return len(obs.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"started"}, obs.snapshot())

	stop := now.Add(time.Second)
	m.Trigger(Occurrence{Event: protocol.EventTypeMotion, Stop: &stop})
	require.Eventually(t, func() bool { return len(obs.snapshot()) >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"started", "stopped"}, obs.snapshot())
}

func TestManager_DropsOccurrenceForUnconfiguredEvent(t *testing.T) {
	sched := transport.NewScheduler(nil)
	defer sched.Close()

	obs := &observed{}
	m := NewManager(sched, Callbacks{
		OnEvent: func(cfg protocol.EventConfig, kind string, tm time.Time) { obs.add(kind) },
	}, nil)
	defer m.Close()

	m.Trigger(Occurrence{Event: protocol.EventTypeTamper, Start: time.Now()})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, obs.snapshot())
}

func TestManager_DropsOccurrenceForInactiveEvent(t *testing.T) {
	sched := transport.NewScheduler(nil)
	defer sched.Close()

	obs := &observed{}
	m := NewManager(sched, Callbacks{
		OnEvent: func(cfg protocol.EventConfig, kind string, tm time.Time) { obs.add(kind) },
	}, nil)
	defer m.Close()

	m.Configure([]protocol.EventConfig{motionConfig(false)})
	m.Trigger(Occurrence{Event: protocol.EventTypeMotion, Start: time.Now()})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, obs.snapshot())
}

func TestManager_ReconfigureRemovesDroppedEventAndForcesStop(t *testing.T) {
	sched := transport.NewScheduler(nil)
	defer sched.Close()

	obs := &observed{}
	m := NewManager(sched, Callbacks{
		OnEvent: func(cfg protocol.EventConfig, kind string, tm time.Time) { obs.add(kind) },
	}, nil)
	defer m.Close()

	m.Configure([]protocol.EventConfig{motionConfig(true)})
	m.Trigger(Occurrence{Event: protocol.EventTypeMotion, Start: time.Now()})
	require.Eventually(t, func() bool { return len(obs.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)

	// Reconfigure with motion dropped entirely: the still-active event must
	// be force-stopped.
	m.Configure(nil)
	require.Eventually(t, func() bool { return len(obs.snapshot()) >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"started", "stopped"}, obs.snapshot())
	assert.Empty(t, m.Configs())
}

// fakeSource is a minimal Source for exercising AddSource/drain/Close.
type fakeSource struct {
	ch     chan Occurrence
	closed chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan Occurrence, 4), closed: make(chan struct{})}
}

func (f *fakeSource) Start(ctx context.Context) error         { return nil }
func (f *fakeSource) Events() <-chan Occurrence               { return f.ch }
func (f *fakeSource) OwnedEvents() []protocol.EventConfig     { return nil }
func (f *fakeSource) SetEvents(cfgs []protocol.EventConfig) bool { return true }
func (f *fakeSource) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
		close(f.ch)
	}
	return nil
}

func TestManager_AddSourceDrainsOccurrencesIntoTrigger(t *testing.T) {
	sched := transport.NewScheduler(nil)
	defer sched.Close()

	obs := &observed{}
	m := NewManager(sched, Callbacks{
		OnEvent: func(cfg protocol.EventConfig, kind string, tm time.Time) { obs.add(kind) },
	}, nil)
	defer m.Close()

	m.Configure([]protocol.EventConfig{motionConfig(true)})

	src := newFakeSource()
	require.NoError(t, m.AddSource(context.Background(), "test", src))
	src.ch <- Occurrence{Event: protocol.EventTypeMotion, Start: time.Now()}

	require.Eventually(t, func() bool { return len(obs.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"started"}, obs.snapshot())
}

// negotiatingSource owns motion and reports whatever SetEvents pushed it
// last, rejecting everything when configured to.
type negotiatingSource struct {
	fakeSource
	owned  []protocol.EventConfig
	accept bool
	got    []protocol.EventConfig
}

func (n *negotiatingSource) OwnedEvents() []protocol.EventConfig { return n.owned }
func (n *negotiatingSource) SetEvents(cfgs []protocol.EventConfig) bool {
	n.got = cfgs
	return n.accept
}

func TestManager_ConfigureSplitsPushByOwnershipAndKeepsCloudView(t *testing.T) {
	sched := transport.NewScheduler(nil)
	defer sched.Close()

	m := NewManager(sched, Callbacks{}, nil)
	defer m.Close()

	src := &negotiatingSource{
		fakeSource: *newFakeSource(),
		owned:      []protocol.EventConfig{{Event: protocol.EventTypeMotion}},
		accept:     false,
	}
	require.NoError(t, m.AddSource(context.Background(), "motion-src", src))

	pushed := []protocol.EventConfig{
		motionConfig(true),
		{Event: protocol.EventTypeTamper, Active: true},
	}
	m.Configure(pushed)

	require.Len(t, src.got, 1)
	assert.Equal(t, protocol.EventTypeMotion, src.got[0].Event)

	// Even though the source rejected the push, the cloud-acknowledged
	// view in Configs() must still reflect it.
	cfgs := m.Configs()
	found := false
	for _, c := range cfgs {
		if c.Event == protocol.EventTypeMotion {
			found = true
			assert.True(t, c.Active)
		}
	}
	assert.True(t, found)
}
