package protocol

import (
	"fmt"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/constants"
)

// WireTime round-trips the two wire time layouts spec.md §6 requires a
// comparator to accept on parse: the "packed" layout (YYYYMMDDThhmmss[.mmm])
// and the ISO layout (YYYY-MM-DDThh:mm:ss[.mmm]Z). It always marshals back
// out in the ISO layout.
type WireTime struct {
	time.Time
}

// NewWireTime wraps t.
func NewWireTime(t time.Time) WireTime {
	return WireTime{Time: t.UTC()}
}

// ParseWireTime accepts either layout.
func ParseWireTime(s string) (WireTime, error) {
	if t, err := time.Parse(constants.TimeLayoutISO, s); err == nil {
		return WireTime{Time: t}, nil
	}
	if t, err := time.Parse(constants.TimeLayoutPacked, s); err == nil {
		return WireTime{Time: t}, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05Z", s); err == nil {
		return WireTime{Time: t}, nil
	}
	if t, err := time.Parse("20060102T150405", s); err == nil {
		return WireTime{Time: t}, nil
	}
	return WireTime{}, fmt.Errorf("unrecognized wire time format: %q", s)
}

// MarshalJSON implements json.Marshaler, always emitting the ISO layout.
func (t WireTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Time.UTC().Format(constants.TimeLayoutISO) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler, accepting either layout.
func (t *WireTime) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("invalid wire time literal: %s", data)
	}
	parsed, err := ParseWireTime(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
