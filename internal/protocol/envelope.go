package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the command envelope shared by every message on the control
// channel (spec.md §3 "Command envelope"): {cmd, msgid, cam_id, refid,
// orig_cmd} merged at the top level with the command-specific payload.
type Envelope struct {
	Cmd     string
	MsgID   int64
	CamID   Opt[int64]
	RefID   Opt[int64]
	OrigCmd Opt[string]
	Payload interface{}
}

// NewDone builds the generic done{status} reply envelope that answers
// orig, per spec.md §3: "a done reply carries refid = original.msgid and
// orig_cmd = original.cmd".
func NewDone(orig *Envelope, msgID int64, status DoneStatus) *Envelope {
	return &Envelope{
		Cmd:     CmdDone,
		MsgID:   msgID,
		RefID:   Some(orig.MsgID),
		OrigCmd: Some(orig.Cmd),
		Payload: &DonePayload{Status: status},
	}
}

// Encode serializes the envelope, omitting any field whose value is unset
// (spec.md §4.1: "encode(msg) -> bytes: always idempotent; never emits
// unset fields").
func (e *Envelope) Encode() ([]byte, error) {
	out := make(map[string]json.RawMessage, 8)

	cmdBytes, err := json.Marshal(e.Cmd)
	if err != nil {
		return nil, fmt.Errorf("encode cmd: %w", err)
	}
	out["cmd"] = cmdBytes

	msgIDBytes, err := json.Marshal(e.MsgID)
	if err != nil {
		return nil, fmt.Errorf("encode msgid: %w", err)
	}
	out["msgid"] = msgIDBytes

	if err := encodeOptField(out, "cam_id", e.CamID); err != nil {
		return nil, err
	}
	if err := encodeOptField(out, "refid", e.RefID); err != nil {
		return nil, err
	}
	if err := encodeOptField(out, "orig_cmd", e.OrigCmd); err != nil {
		return nil, err
	}

	if e.Payload != nil {
		payloadBytes, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		var payloadFields map[string]json.RawMessage
		if err := json.Unmarshal(payloadBytes, &payloadFields); err != nil {
			return nil, fmt.Errorf("flatten payload: %w", err)
		}
		for k, v := range payloadFields {
			if isJSONNull(v) {
				continue // sentinel elision: unset payload fields are never emitted.
			}
			out[k] = v
		}
	}

	return json.Marshal(out)
}

func encodeOptField[T any](out map[string]json.RawMessage, key string, opt Opt[T]) error {
	v, ok := opt.Get()
	if !ok {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	out[key] = b
	return nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 4 && string(raw) == "null"
}

// Decode parses an envelope off the wire, looking up the registered payload
// shape for cmd. Every cmd value without a registered shape fails with
// ErrUnknownCommand; raw_message is decoded through its own registered
// shape, and no shape accepts an unregistered cmd.
func Decode(data []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &ErrInvalidEnvelope{Reason: err.Error()}
	}

	cmdRaw, ok := fields["cmd"]
	if !ok {
		return nil, &ErrInvalidEnvelope{Reason: "missing cmd field"}
	}
	var cmd string
	if err := json.Unmarshal(cmdRaw, &cmd); err != nil {
		return nil, &ErrInvalidEnvelope{Reason: "cmd is not a string"}
	}
	delete(fields, "cmd")

	env := &Envelope{Cmd: cmd}

	if raw, ok := fields["msgid"]; ok {
		if err := json.Unmarshal(raw, &env.MsgID); err != nil {
			return nil, &ErrInvalidEnvelope{Reason: "msgid is not an integer"}
		}
		delete(fields, "msgid")
	}
	if raw, ok := fields["cam_id"]; ok {
		if err := json.Unmarshal(raw, &env.CamID); err != nil {
			return nil, &ErrInvalidEnvelope{Reason: "cam_id is malformed"}
		}
		delete(fields, "cam_id")
	}
	if raw, ok := fields["refid"]; ok {
		if err := json.Unmarshal(raw, &env.RefID); err != nil {
			return nil, &ErrInvalidEnvelope{Reason: "refid is malformed"}
		}
		delete(fields, "refid")
	}
	if raw, ok := fields["orig_cmd"]; ok {
		if err := json.Unmarshal(raw, &env.OrigCmd); err != nil {
			return nil, &ErrInvalidEnvelope{Reason: "orig_cmd is malformed"}
		}
		delete(fields, "orig_cmd")
	}

	factory, known := registry[cmd]
	if !known {
		return nil, &ErrUnknownCommand{Cmd: cmd}
	}

	remaining, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("re-marshal payload fields: %w", err)
	}

	payload := factory()
	if err := json.Unmarshal(remaining, payload); err != nil {
		return nil, fmt.Errorf("decode payload for %q: %w", cmd, err)
	}
	env.Payload = payload

	return env, nil
}
