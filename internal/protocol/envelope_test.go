package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEnvelope_EncodeOmitsUnsetFields verifies sentinel elision: no unset
// Opt field, at either envelope or payload level, appears on the wire.
func TestEnvelope_EncodeOmitsUnsetFields(t *testing.T) {
	env := &Envelope{
		Cmd:   CmdRegister,
		MsgID: 1,
		Payload: &RegisterPayload{
			Version:  "1.0",
			Timezone: "UTC",
			Vendor:   "acme",
		},
	}

	data, err := env.Encode()
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.NotContains(t, fields, "cam_id")
	assert.NotContains(t, fields, "refid")
	assert.NotContains(t, fields, "orig_cmd")
	assert.NotContains(t, fields, "pwd")
	assert.NotContains(t, fields, "prev_sid")
	assert.NotContains(t, fields, "reg_token")
	assert.Equal(t, "acme", fields["vendor"])
}

// TestEnvelope_RoundTrip verifies decode(encode(c)) = c up to unset-field
// elision (spec.md §8 "Envelope round-trip").
func TestEnvelope_RoundTrip(t *testing.T) {
	orig := &Envelope{
		Cmd:     CmdBye,
		MsgID:   42,
		CamID:   Some(int64(7)),
		RefID:   Some(int64(41)),
		OrigCmd: Some(CmdRegister),
		Payload: &ByePayload{Reason: ByeReasonReconnect, Retry: Some(5)},
	}

	data, err := orig.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, orig.Cmd, decoded.Cmd)
	assert.Equal(t, orig.MsgID, decoded.MsgID)
	assert.Equal(t, orig.CamID, decoded.CamID)
	assert.Equal(t, orig.RefID, decoded.RefID)
	assert.Equal(t, orig.OrigCmd, decoded.OrigCmd)

	payload, ok := decoded.Payload.(*ByePayload)
	require.True(t, ok)
	assert.Equal(t, ByeReasonReconnect, payload.Reason)
	retry, set := payload.Retry.Get()
	require.True(t, set)
	assert.Equal(t, 5, retry)
}

func TestDecode_MissingCmdIsInvalidEnvelope(t *testing.T) {
	_, err := Decode([]byte(`{"msgid": 1}`))
	require.Error(t, err)
	var invalidErr *ErrInvalidEnvelope
	assert.ErrorAs(t, err, &invalidErr)
}

func TestDecode_UnknownCommandIsRejected(t *testing.T) {
	_, err := Decode([]byte(`{"cmd": "not_a_real_command", "msgid": 1}`))
	require.Error(t, err)
	var unknownErr *ErrUnknownCommand
	assert.ErrorAs(t, err, &unknownErr)
}

func TestDecode_UnrecognizedEnumMapsToInvalidNotDecodeError(t *testing.T) {
	data := []byte(`{"cmd": "bye", "msgid": 1, "reason": "not_a_real_reason"}`)
	env, err := Decode(data)
	require.NoError(t, err)

	payload, ok := env.Payload.(*ByePayload)
	require.True(t, ok)
	assert.Equal(t, ByeReasonInvalidValue, payload.Reason)
}

func TestNewDone_CorrelatesWithOriginal(t *testing.T) {
	orig := &Envelope{Cmd: CmdGetCamStatus, MsgID: 9, Payload: &GetCamStatusPayload{}}
	done := NewDone(orig, 10, DoneOK)

	assert.Equal(t, CmdDone, done.Cmd)
	refid, ok := done.RefID.Get()
	require.True(t, ok)
	assert.EqualValues(t, orig.MsgID, refid)

	origCmd, ok := done.OrigCmd.Get()
	require.True(t, ok)
	assert.Equal(t, orig.Cmd, origCmd)
}

func TestWireTime_AcceptsBothLayouts(t *testing.T) {
	iso, err := ParseWireTime("2024-01-02T03:04:05.000Z")
	require.NoError(t, err)

	packed, err := ParseWireTime("20240102T030405.000")
	require.NoError(t, err)

	assert.Equal(t, iso.Time, packed.Time)
}
