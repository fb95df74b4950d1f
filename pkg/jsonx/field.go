// Package jsonx holds JSON helpers for HTTP request bodies: presence-aware
// fields for merge-patch payloads and a strict single-value decoder.
package jsonx

import (
	"bytes"
	"encoding/json"
)

// Field tracks whether a key appeared and holds its value:
//   - IsSet() == true  => key existed (even if it was null)
//   - Value() == nil   => value was JSON null
type Field[T any] struct {
	set bool
	val *T
}

// Set returns a present, non-null Field holding v.
func Set[T any](v T) Field[T] { return Field[T]{set: true, val: &v} }

func (o Field[T]) IsSet() bool  { return o.set }
func (o Field[T]) IsNull() bool { return o.set && o.val == nil }
func (o Field[T]) Value() *T    { return o.val }

// Apply stores the value into dst when the key was present and non-null.
// It reports whether the key was present.
func (o Field[T]) Apply(dst *T) bool {
	if o.val != nil {
		*dst = *o.val
	}
	return o.set
}

func (o *Field[T]) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		o.set, o.val = true, nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.set, o.val = true, &v
	return nil
}

func (o Field[T]) MarshalJSON() ([]byte, error) {
	if o.val == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.val)
}
