package jsonx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var (
	ErrEmptyBody    = errors.New("empty body")
	ErrTrailingJSON = errors.New("trailing data")
)

// MaxBodyBytes caps how much of a request body is read.
const MaxBodyBytes = 1 << 20

// ParseStrictJSONBody reads and strictly decodes a JSON HTTP request body
// into dst. Any failure maps to 400 Bad Request:
//
//   - malformed JSON or an empty body (ErrEmptyBody)
//   - more than one JSON value (ErrTrailingJSON)
//   - unknown fields or field-type mismatches
//
// It checks shape only; required fields and business rules are validated by
// the caller.
func ParseStrictJSONBody[T any](r *http.Request, dst *T) error {
	if r == nil || r.Body == nil {
		return ErrEmptyBody
	}
	return DecodeStrict(io.LimitReader(r.Body, MaxBodyBytes), dst)
}

// DecodeStrict is ParseStrictJSONBody for any reader.
func DecodeStrict[T any](src io.Reader, dst *T) error {
	body, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrTrailingJSON
	}
	return nil
}
