// Package agent implements the agent façade (C9): the only component an
// embedder talks to directly. It owns construction and wiring of every
// other component (C2-C8) and is the sole place a wire command becomes
// either an embedder callback invocation or a done{NOT_SUPPORTED}/
// done{RETRY} reply (spec.md §4.9).
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/camerarecorder/cloud-agent-go/internal/events"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/persistence"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/camerarecorder/cloud-agent-go/internal/security"
	"github.com/camerarecorder/cloud-agent-go/internal/session"
	"github.com/camerarecorder/cloud-agent-go/internal/storage"
	"github.com/camerarecorder/cloud-agent-go/internal/streams"
	timelinesync "github.com/camerarecorder/cloud-agent-go/internal/sync"
	"github.com/camerarecorder/cloud-agent-go/internal/transport"
)

// errCallbackTimeout marks a callback that did not return within the
// bounded window a command handler allows it (spec.md §4.9 "bounded time
// or done{RETRY}").
var errCallbackTimeout = errors.New("agent: callback exceeded bounded time")

const defaultCallbackTimeout = 5 * time.Second

// Agent ties the protocol engine, stream manager, event manager, timed
// storage, and timeline synchronizer together behind the embedder's
// Callbacks surface.
type Agent struct {
	cfg    *config.Config
	logger *logging.Logger

	engine     atomic.Pointer[session.Engine]
	streamsMgr *streams.Manager
	eventsMgr  *events.Manager
	storage    *storage.Storage
	sync       *timelinesync.Synchronizer
	scheduler  *transport.Scheduler
	sidStore   *persistence.SidStore

	rotateMu sync.Mutex // serializes RotateToken against concurrent rotations

	cb              Callbacks
	callbackTimeout time.Duration
	rateLimiter     *security.CommandRateLimiter

	eventSources []events.Source

	mu               sync.Mutex
	streamByEvent    map[string]string               // event key -> cloud_name
	eventByStream    map[string]string               // cloud_name -> event key
	syncHandles      map[string]timelinesync.Handle  // cloud_name -> in-flight memorycard sync
	eventSyncHandles map[string]timelinesync.Handle  // event key -> in-flight event-driven sync window
}

// Create builds an Agent ready for Start. mediaStreams describes every
// stream the embedder exposes; eventSources are started when Start runs.
// remote and backend back the synchronizer and timed storage
// respectively; either may be nil to disable that subsystem. With a nil
// backend, timeline and synchronize commands answer done{CM_ERROR}; with a
// nil remote, synchronize answers done{OK} and reports each segment's
// status as ERROR.
func Create(
	cfg *config.Config,
	cb Callbacks,
	accessToken string,
	mediaStreams []streams.Descriptor,
	eventSources []events.Source,
	remote timelinesync.RemoteStore,
	backend storage.Backend,
	logger *logging.Logger,
) (*Agent, error) {
	if logger == nil {
		logger = logging.GetLogger("agent")
	}

	parser := security.NewTokenParser("", logger)
	token, err := parser.Parse(accessToken)
	if err != nil {
		return nil, fmt.Errorf("agent: parse access token: %w", err)
	}

	sidStore := persistence.NewSidStore(cfg.Persistence.FilePath, logger)
	prevSid := sidStore.Load()
	if err := sidStore.SaveAccessToken(accessToken); err != nil {
		logger.WithFields(logging.Fields{"error": err}).Warn("failed to persist access token material")
	}

	a := &Agent{
		cfg:             cfg,
		logger:          logger,
		sidStore:        sidStore,
		cb:              cb,
		callbackTimeout: defaultCallbackTimeout,
		rateLimiter: security.NewCommandRateLimiter(
			security.DefaultCommandRateLimit, security.DefaultCommandBurst, logger,
		),
		eventSources: eventSources,
		streamByEvent:    make(map[string]string),
		eventByStream:    make(map[string]string),
		syncHandles:      make(map[string]timelinesync.Handle),
		eventSyncHandles: make(map[string]timelinesync.Handle),
	}

	a.engine.Store(session.New(cfg, token, prevSid, a.sessionCallbacks(), logger))

	a.scheduler = transport.NewScheduler(logger)
	a.streamsMgr = streams.NewManager(logger)
	for _, d := range mediaStreams {
		a.streamsMgr.Register(d)
	}

	a.storage = storage.New(backend, cfg.Behaviour.MaxConcurrentStorageItems, logger)
	httpClient := transport.NewHTTPClient(&cfg.Transport, logger)
	a.sync = timelinesync.New(a.storage, remote, httpClient, cfg.Sync, cfg.Behaviour, logger)

	a.eventsMgr = events.NewManager(a.scheduler, events.Callbacks{OnEvent: a.onEvent}, logger)

	a.registerHandlers()
	return a, nil
}

// Start connects the control channel and starts every event source.
func (a *Agent) Start(ctx context.Context) error {
	if err := a.currentEngine().Connect(ctx); err != nil {
		return fmt.Errorf("agent: connect: %w", err)
	}
	for i, src := range a.eventSources {
		name := fmt.Sprintf("source-%d", i)
		if err := a.eventsMgr.AddSource(ctx, name, src); err != nil {
			return fmt.Errorf("agent: start event source %s: %w", name, err)
		}
	}
	return nil
}

// Stop tears the agent down (event manager, synchronizer, storage,
// protocol engine, then scheduler), letting in-flight uploads and
// background stores finish cleanly.
func (a *Agent) Stop() {
	a.eventsMgr.Close()
	a.sync.Finit()
	a.storage.Finit()
	a.currentEngine().Stop()
	a.scheduler.Close()
}

// currentEngine returns the protocol engine presently in force. It is
// swapped out from under running handlers only by RotateToken, hence the
// atomic load rather than a plain field read.
func (a *Agent) currentEngine() *session.Engine {
	return a.engine.Load()
}

// sessionCallbacks builds the session.Callbacks wired to this agent's
// persisted-state store, shared by Create and RotateToken so a rotated
// engine persists prev_sid exactly the way the original one did. It also
// forwards OnRegistered/OnBye to the embedder's own Callbacks (spec.md
// §4.9), which session.Engine already invokes independently of
// PersistPrevSid/ClearPrevSid.
func (a *Agent) sessionCallbacks() session.Callbacks {
	return session.Callbacks{
		OnRegistered: func(sid string) {
			if a.cb.OnRegistered != nil {
				a.cb.OnRegistered(sid)
			}
		},
		OnBye: func(reason protocol.ByeReason, retryHint int) {
			if a.cb.OnBye != nil {
				a.cb.OnBye(reason, retryHint)
			}
		},
		PersistPrevSid: func(sid string) {
			if err := a.sidStore.Save(sid); err != nil {
				a.logger.WithFields(logging.Fields{"error": err}).Warn("failed to persist session id")
			}
		},
		ClearPrevSid: func() {
			if err := a.sidStore.Clear(); err != nil {
				a.logger.WithFields(logging.Fields{"error": err}).Warn("failed to clear persisted session id")
			}
		},
	}
}

// RotateToken tears down the current session and reconnects with a
// freshly read access token, in response to the embedder's token/config
// file watcher reporting a change on disk (SPEC_FULL.md "the agent
// watches its local token/config file for rotation and triggers a clean
// reconnect cycle when the access token file changes", in place of the
// teacher's whole-config hot-reload). The previous session's prev_sid is
// carried into the new engine so the cloud sees a clean reconnect rather
// than a fresh registration.
func (a *Agent) RotateToken(ctx context.Context, rawToken string) error {
	a.rotateMu.Lock()
	defer a.rotateMu.Unlock()

	parser := security.NewTokenParser("", a.logger)
	token, err := parser.Parse(rawToken)
	if err != nil {
		return fmt.Errorf("agent: parse rotated access token: %w", err)
	}

	old := a.currentEngine()
	prevSid := a.sidStore.Load()
	next := session.New(a.cfg, token, prevSid, a.sessionCallbacks(), a.logger)
	a.engine.Store(next)
	a.registerHandlers()

	if old != nil {
		old.Stop()
	}
	if err := a.sidStore.SaveAccessToken(rawToken); err != nil {
		a.logger.WithFields(logging.Fields{"error": err}).Warn("failed to persist rotated access token material")
	}
	if err := next.Connect(ctx); err != nil {
		return fmt.Errorf("agent: reconnect after token rotation: %w", err)
	}
	return nil
}

// callBounded runs fn with a bounded deadline; a slow callback surfaces
// errCallbackTimeout instead of blocking the protocol engine indefinitely.
func (a *Agent) callBounded(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.callbackTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("agent: callback panicked: %v", r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errCallbackTimeout
	}
}

// reply builds a non-done reply envelope answering orig.
func (a *Agent) reply(orig *protocol.Envelope, cmd string, payload interface{}) *protocol.Envelope {
	return &protocol.Envelope{
		Cmd:     cmd,
		MsgID:   a.currentEngine().NextMsgID(),
		RefID:   protocol.Some(orig.MsgID),
		OrigCmd: protocol.Some(orig.Cmd),
		Payload: payload,
	}
}

func (a *Agent) done(orig *protocol.Envelope, status protocol.DoneStatus) *protocol.Envelope {
	return protocol.NewDone(orig, a.currentEngine().NextMsgID(), status)
}

// rateLimited wraps a handler with the inbound command admission check
// (spec.md §3 rate limiting; SPEC_FULL.md "applied to inbound cloud
// commands"), replying done{TOO_MANY} instead of invoking h when the
// cloud exceeds the configured burst.
func (a *Agent) rateLimited(h session.CommandHandler) session.CommandHandler {
	return func(env *protocol.Envelope) (*protocol.Envelope, error) {
		if !a.rateLimiter.Allow() {
			return a.done(env, protocol.DoneTooMany), nil
		}
		return h(env)
	}
}

// doneFor maps a callback's outcome (err, or callback unset) onto the
// done{...} taxonomy spec.md §7 prescribes: missing callback ->
// NOT_SUPPORTED, timeout -> RETRY, any other error -> CM_ERROR.
func (a *Agent) doneFor(orig *protocol.Envelope, unset bool, err error) *protocol.Envelope {
	switch {
	case unset:
		return a.done(orig, protocol.DoneNotSupported)
	case errors.Is(err, errCallbackTimeout):
		return a.done(orig, protocol.DoneRetry)
	case err != nil:
		return a.done(orig, protocol.DoneCMError)
	default:
		return nil
	}
}

// onEvent is events.Manager's transition hook: it reports the transition
// to the cloud, drives the event-driven timeline sync window (spec.md
// §4.5 "ask C8 to start synchronisation"/"finalise the synchronisation"),
// invokes the embedder's payload/snapshot hook, and — for events bound to
// a stream via set_stream_by_event — starts or stops that stream's
// event-triggered recording (spec.md §4.5, §4.6 "need_record").
func (a *Agent) onEvent(cfg protocol.EventConfig, kind string, t time.Time) {
	payload := &protocol.CamEventPayload{
		Event: cfg.Event, CustomName: cfg.CustomName, State: kind, Timestamp: protocol.NewWireTime(t),
	}
	if err := a.currentEngine().SendCommand(protocol.CmdCamEvent, payload); err != nil {
		a.logger.WithFields(logging.Fields{"event": cfg.Event, "error": err}).Warn("failed to report event transition")
	}

	evtKey := eventKey(cfg.Event, cfg.CustomName)

	if cfg.Stream && cfg.Caps.Stream {
		switch kind {
		case "started":
			handle := a.sync.SyncOnEventStart(t, a.eventSyncStatus(evtKey))
			a.setEventSyncHandle(evtKey, handle)
		case "stopped":
			if handle, ok := a.takeEventSyncHandle(evtKey); ok {
				if err := a.sync.SyncOnEventStop(context.Background(), handle, t); err != nil {
					a.logger.WithFields(logging.Fields{"event": evtKey, "error": err}).Warn("event-triggered sync finalize failed")
				}
			}
		}
	}

	switch kind {
	case "triggered":
		a.invokeEventPayload(cfg, t)
	case "ongoing":
		if a.cfg.Behaviour.ReportContinuationSnapshot {
			a.invokeEventPayload(cfg, t)
		}
	}

	cloudName, bound := a.streamForEvent(evtKey)
	if !bound || !cfg.Stream {
		return
	}

	ctx := context.Background()
	switch kind {
	case "started", "triggered":
		if err := a.streamsMgr.StartRecording(ctx, cloudName, streams.RecordLocalByEvent); err != nil {
			a.logger.WithFields(logging.Fields{"stream": cloudName, "error": err}).Warn("event-triggered recording start failed")
		}
	case "stopped":
		if err := a.streamsMgr.StopRecording(cloudName, streams.RecordLocalByEvent, false); err != nil {
			a.logger.WithFields(logging.Fields{"stream": cloudName, "error": err}).Warn("event-triggered recording stop failed")
		}
		_ = a.streamsMgr.CheckStopMediaSource(cloudName)
	}
}

// eventSyncStatus builds the status callback passed to an event-driven
// sync window; unlike cam_memorycard_synchronize there is no requesting
// command to reply to, so failures are only logged.
func (a *Agent) eventSyncStatus(evtKey string) timelinesync.StatusCallback {
	return func(_ timelinesync.Handle, seg timelinesync.Segment, status protocol.SyncStatus, detail string) {
		if status == protocol.SyncStatusError || status == protocol.SyncStatusTooManyRequests {
			a.logger.WithFields(logging.Fields{
				"event": evtKey, "stream": seg.StreamID, "status": status, "detail": detail,
			}).Warn("event-triggered sync segment failed")
		}
	}
}

// invokeEventPayload calls the embedder's HandleEventPayload hook, if
// set, computing need_snapshot per spec.md §4.5 ("cfg.caps.snapshot ∧
// cfg.snapshot").
func (a *Agent) invokeEventPayload(cfg protocol.EventConfig, t time.Time) {
	if a.cb.HandleEventPayload == nil {
		return
	}
	needSnapshot := cfg.Caps.Snapshot && cfg.Snapshot
	if err := a.callBounded(func(ctx context.Context) error {
		return a.cb.HandleEventPayload(ctx, cfg, needSnapshot)
	}); err != nil {
		a.logger.WithFields(logging.Fields{"event": cfg.Event, "error": err}).Warn("event payload handler failed")
	}
}

func eventKey(evt protocol.EventType, customName protocol.Opt[string]) string {
	if name, ok := customName.Get(); ok && name != "" {
		return string(evt) + "/" + name
	}
	return string(evt)
}

func (a *Agent) streamForEvent(key string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	name, ok := a.streamByEvent[key]
	return name, ok
}

func (a *Agent) bindStreamToEvent(cloudName, key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prev, ok := a.eventByStream[cloudName]; ok {
		delete(a.streamByEvent, prev)
	}
	if key == "" {
		delete(a.eventByStream, cloudName)
		return
	}
	a.streamByEvent[key] = cloudName
	a.eventByStream[cloudName] = key
}

func (a *Agent) eventForStream(cloudName string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key, ok := a.eventByStream[cloudName]
	return key, ok
}

// setSyncHandle records the in-flight memorycard synchronize request for
// cloudName so a later cam_memorycard_synchronize_cancel can find it.
func (a *Agent) setSyncHandle(cloudName string, handle timelinesync.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncHandles[cloudName] = handle
}

func (a *Agent) takeSyncHandle(cloudName string) (timelinesync.Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	handle, ok := a.syncHandles[cloudName]
	if ok {
		delete(a.syncHandles, cloudName)
	}
	return handle, ok
}

// setEventSyncHandle/takeEventSyncHandle track the in-flight event-driven
// sync window for evtKey, the per-event analogue of setSyncHandle/
// takeSyncHandle (keyed by event rather than cloud_name).
func (a *Agent) setEventSyncHandle(evtKey string, handle timelinesync.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.eventSyncHandles[evtKey] = handle
}

func (a *Agent) takeEventSyncHandle(evtKey string) (timelinesync.Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	handle, ok := a.eventSyncHandles[evtKey]
	if ok {
		delete(a.eventSyncHandles, evtKey)
	}
	return handle, ok
}
