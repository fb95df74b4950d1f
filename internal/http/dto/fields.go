// Package dto maps HTTP request bodies onto sessions. Bodies are decoded with
// jsonx.ParseStrictJSONBody; every field is presence-aware.
package dto

import (
	"fmt"

	"github.com/edirooss/gst-architect/pkg/jsonx"
)

// assign copies a present, non-null field into dst. An explicit null is an
// error: no session field is nullable.
func assign[T any](name string, f jsonx.Field[T], dst *T) error {
	if f.IsNull() {
		return fmt.Errorf("%s cannot be null", name)
	}
	f.Apply(dst)
	return nil
}
