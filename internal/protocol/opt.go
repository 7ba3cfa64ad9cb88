// Package protocol implements the wire codec and command registry: the
// tagged-JSON envelope shared by every command, the closed command-name
// enumeration, and helpers to round-trip the two wire time layouts.
package protocol

import (
	"bytes"
	"encoding/json"
)

var jsonNull = []byte("null")

// Opt is an explicit optional value, used in place of the teacher's
// zero-value sentinels (empty string, -1, zero time) for any envelope or
// payload field the wire format may omit. An unset Opt marshals to JSON
// null and, at the envelope level, is elided from the wire entirely rather
// than sent as null (see Envelope.Encode).
type Opt[T any] struct {
	value T
	set   bool
}

// Some wraps a present value.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// None represents an absent value.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// IsSet reports whether the value is present.
func (o Opt[T]) IsSet() bool {
	return o.set
}

// Get returns the value and whether it was set.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// GetOr returns the value, or def if unset.
func (o Opt[T]) GetOr(def T) T {
	if o.set {
		return o.value
	}
	return def
}

// MarshalJSON implements json.Marshaler.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return jsonNull, nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Opt[T]{value: v, set: true}
	return nil
}
