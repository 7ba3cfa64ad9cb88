package session

import (
	"context"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/constants"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
)

// handleMessage is the control channel's OnMessage callback: it decodes
// one frame and routes it by current state and content (spec.md §4.3).
// The protocol engine processes inbound messages in arrival order because
// gorilla/websocket delivers one frame at a time to a single reader
// goroutine (internal/transport.ControlChannel.readLoop).
func (e *Engine) handleMessage(data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		e.logger.WithFields(logging.Fields{"error": err}).Warn("dropping malformed inbound frame")
		return
	}

	if refid, ok := env.RefID.Get(); ok {
		if e.ackTable.Resolve(refid, env) {
			return
		}
	}

	switch env.Cmd {
	case protocol.CmdHello:
		e.handleHello(env)
	case protocol.CmdCamHello:
		// Acknowledgement of cam_register; the state diagram moves to
		// OPERATIONAL on send, so this is observational only.
	case protocol.CmdBye:
		e.handleBye(env)
	default:
		e.dispatchCommand(env)
	}
}

func (e *Engine) handleHello(env *protocol.Envelope) {
	if e.State() != AwaitHello {
		e.logger.WithFields(logging.Fields{"state": e.State()}).Warn("hello received outside AWAIT_HELLO")
	}

	payload, ok := env.Payload.(*protocol.HelloPayload)
	if !ok {
		e.logger.Error("hello payload has unexpected type")
		return
	}

	if sid, set := payload.Sid.Get(); set {
		e.mu.Lock()
		e.prevSid = sid
		e.mu.Unlock()

		if e.callbacks.PersistPrevSid != nil {
			e.callbacks.PersistPrevSid(sid)
		}
		if e.callbacks.OnRegistered != nil {
			e.callbacks.OnRegistered(sid)
		}
	}

	e.setState(Registered)

	if err := e.sendCamRegister(); err != nil {
		e.logger.WithFields(logging.Fields{"error": err}).Error("failed to send cam_register")
		return
	}
	e.setState(Operational)
}

func (e *Engine) handleBye(env *protocol.Envelope) {
	payload, ok := env.Payload.(*protocol.ByePayload)
	if !ok {
		e.logger.Error("bye payload has unexpected type")
		return
	}

	e.setState(Closing)
	e.ackTable.FlushAll()

	class := payload.Reason.RecoveryClass()
	retry, _ := payload.Retry.Get()

	if e.callbacks.OnBye != nil {
		e.callbacks.OnBye(payload.Reason, retry)
	}

	_ = e.channel.Close()

	switch class {
	case constants.RecoveryRecoverable:
		e.setState(Disconnected)
		e.reconnect.Arm(time.Duration(retry)*time.Second, func() {
			_ = e.Connect(context.Background())
		})
	default:
		if class == constants.RecoveryFatalForget && e.callbacks.ClearPrevSid != nil {
			e.callbacks.ClearPrevSid()
		}
		e.setState(Disconnected)
	}
}

// dispatchCommand routes an inbound command in OPERATIONAL state to its
// registered handler, replying with done{NOT_SUPPORTED} when no handler is
// registered (spec.md §4.9 "missing ones translate to done{NOT_SUPPORTED}
// on the wire").
func (e *Engine) dispatchCommand(env *protocol.Envelope) {
	e.handlersMu.Lock()
	handler, ok := e.handlers[env.Cmd]
	e.handlersMu.Unlock()

	var reply *protocol.Envelope
	if !ok {
		reply = protocol.NewDone(env, e.nextID(), protocol.DoneNotSupported)
	} else {
		var err error
		reply, err = handler(env)
		if err != nil {
			e.logger.WithFields(logging.Fields{"cmd": env.Cmd, "error": err}).Error("command handler failed")
			reply = protocol.NewDone(env, e.nextID(), protocol.DoneSystemError)
		}
		if reply == nil {
			reply = protocol.NewDone(env, e.nextID(), protocol.DoneOK)
		}
	}

	if err := e.send(reply); err != nil {
		e.logger.WithFields(logging.Fields{"cmd": env.Cmd, "error": err}).Error("failed to send reply")
	}
}
