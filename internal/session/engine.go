package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/config"
	"github.com/camerarecorder/cloud-agent-go/internal/constants"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	"github.com/camerarecorder/cloud-agent-go/internal/security"
	"github.com/camerarecorder/cloud-agent-go/internal/transport"
)

// Callbacks groups the engine's external notifications (spec.md §4.3,
// §4.9's on_bye/on_registered), kept separate from the agent façade's
// wider callback set so this package does not need to know about C5-C9.
type Callbacks struct {
	OnRegistered   func(sid string)
	OnBye          func(reason protocol.ByeReason, retryHint int)
	PersistPrevSid func(sid string)
	ClearPrevSid   func()
}

// CommandHandler handles one inbound command in the OPERATIONAL state and
// returns the reply envelope to send back (spec.md §4.3 "Exactly one
// reply is produced per inbound command").
type CommandHandler func(env *protocol.Envelope) (*protocol.Envelope, error)

// Engine is the protocol engine (C3): the session state machine, ack
// table, and reconnect policy, grounded on the teacher's
// handleClientConnection orchestration (internal/websocket/server.go) and
// circuit_breaker.go's mutex-guarded state field, generalized from a
// server accepting many clients to a client maintaining one session.
type Engine struct {
	cfg    *config.Config
	token  *security.AccessToken
	logger *logging.Logger

	channel    *transport.ControlChannel
	scheduler  *transport.Scheduler
	ackTable   *AckTable
	reconnect  *ReconnectPolicy
	callbacks  Callbacks

	mu       sync.Mutex
	state    State
	prevSid  string
	connID   string

	nextMsgID int64

	handlersMu sync.Mutex
	handlers   map[string]CommandHandler
}

// New builds an engine ready to Connect. prevSid is the last persisted
// session id, read by the embedder at start-up (spec.md §6 "Persisted
// state").
func New(cfg *config.Config, token *security.AccessToken, prevSid string, callbacks Callbacks, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.GetLogger("session")
	}
	sched := transport.NewScheduler(logger)
	return &Engine{
		cfg:       cfg,
		token:     token,
		logger:    logger,
		channel:   transport.NewControlChannel(&cfg.Transport, logger),
		scheduler: sched,
		ackTable:  NewAckTable(sched, logger),
		reconnect: NewReconnectPolicy(sched, logger),
		callbacks: callbacks,
		state:     Disconnected,
		prevSid:   prevSid,
	}
}

// RegisterHandler wires a command name to its handler; called by the
// agent façade (C9) during wiring, before Connect.
func (e *Engine) RegisterHandler(cmd string, h CommandHandler) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[string]CommandHandler)
	}
	e.handlers[cmd] = h
}

// State returns the current session state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) nextID() int64 {
	return atomic.AddInt64(&e.nextMsgID, 1)
}

// NextMsgID hands out a fresh outbound msgid, for command handlers (C9)
// building a non-done reply envelope of their own.
func (e *Engine) NextMsgID() int64 {
	return e.nextID()
}

// Connect dials the control channel, sends register, and drives the state
// machine from DISCONNECTED to AWAIT_HELLO (spec.md §4.3 state diagram).
// It returns once the transport handshake and register send succeed; the
// hello handler later sends cam_register and moves the session on to
// OPERATIONAL.
func (e *Engine) Connect(ctx context.Context) error {
	e.setState(Connecting)
	e.channel.OnMessage = e.handleMessage
	e.channel.OnDisconnect = e.handleDisconnect

	target := e.token.InsecureURL()
	if e.cfg.Behaviour.SecureChannel {
		target = e.token.SecureURL()
	}

	if err := e.channel.Dial(ctx, target); err != nil {
		e.setState(Disconnected)
		return fmt.Errorf("session: connect: %w", err)
	}

	e.setState(Registering)
	if err := e.sendRegister(); err != nil {
		e.setState(Disconnected)
		return fmt.Errorf("session: sending register: %w", err)
	}
	e.setState(AwaitHello)
	return nil
}

func (e *Engine) sendRegister() error {
	payload := &protocol.RegisterPayload{
		Version:        constants.ProtocolVersion,
		Timezone:       e.cfg.Registration.Timezone,
		Vendor:         e.cfg.Device.Vendor,
		MediaProtocols: e.cfg.Registration.MediaProtocols,
	}
	if e.cfg.Registration.Password != "" {
		payload.Pwd = protocol.Some(e.cfg.Registration.Password)
	}
	if e.prevSid != "" {
		payload.PrevSid = protocol.Some(e.prevSid)
	}
	if e.cfg.Registration.RegToken != "" {
		payload.RegToken = protocol.Some(e.cfg.Registration.RegToken)
	}

	env := &protocol.Envelope{Cmd: protocol.CmdRegister, MsgID: e.nextID(), Payload: payload}
	return e.send(env)
}

func (e *Engine) sendCamRegister() error {
	payload := &protocol.CamRegisterPayload{
		Vendor:       e.cfg.Device.Vendor,
		Model:        e.cfg.Device.Model,
		Serial:       e.cfg.Device.Serial,
		Firmware:     e.cfg.Device.Firmware,
		Type:         e.cfg.Device.Type,
		RawMessaging: e.cfg.Behaviour.RawMessaging,
	}
	env := &protocol.Envelope{Cmd: protocol.CmdCamRegister, MsgID: e.nextID(), Payload: payload}
	return e.send(env)
}

func (e *Engine) send(env *protocol.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", env.Cmd, err)
	}
	return e.channel.Send(data)
}

// SendCommand sends an outbound command with no ack expected.
func (e *Engine) SendCommand(cmd string, payload interface{}) error {
	env := &protocol.Envelope{Cmd: cmd, MsgID: e.nextID(), Payload: payload}
	return e.send(env)
}

// SendCommandWaitAck sends an outbound command and registers cb against
// its msgid (spec.md §4.3 "Outbound with ack").
func (e *Engine) SendCommandWaitAck(cmd string, payload interface{}, timeout time.Duration, cb AckCallback) error {
	if timeout <= 0 {
		timeout = constants.DefaultAckTimeout
	}
	msgid := e.nextID()
	env := &protocol.Envelope{Cmd: cmd, MsgID: msgid, Payload: payload}

	if err := e.send(env); err != nil {
		return err
	}
	e.ackTable.Register(msgid, timeout, cb)
	return nil
}

// Stop closes the session with bye{SHUTDOWN}, drains acks, disarms the
// reconnect timer, and tears down the transport (spec.md §5 "On stop()").
// Idempotent.
func (e *Engine) Stop() {
	e.reconnect.Disarm()
	if e.State() == Disconnected {
		return
	}

	env := &protocol.Envelope{
		Cmd:   protocol.CmdBye,
		MsgID: e.nextID(),
		Payload: &protocol.ByePayload{Reason: protocol.ByeReasonShutdown},
	}
	_ = e.send(env)

	e.setState(Closing)
	e.ackTable.FlushAll()
	_ = e.channel.Close()
	e.scheduler.Close()
	e.setState(Disconnected)
}

func (e *Engine) handleDisconnect(err error) {
	if e.State() == Closing || e.State() == Disconnected {
		return
	}
	e.logger.WithFields(logging.Fields{"error": err}).Warn("control channel disconnected")
	e.setState(Closing)
	e.ackTable.FlushAll()
	e.reconnect.Arm(constants.DefaultReconnectBackoff, func() {
		_ = e.Connect(context.Background())
	})
	e.setState(Disconnected)
}
