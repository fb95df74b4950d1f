package dto

import (
	"github.com/google/uuid"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/pkg/jsonx"
)

// DestinationCreate is the body of POST /api/sessions/{id}/destinations and
// an element of a session's "destinations" array.
//   - All fields are optional. Defaults applied.
type DestinationCreate struct {
	ID        jsonx.Field[string] `json:"id"`         // optional; string (default: new uuid)
	Name      jsonx.Field[string] `json:"name"`       // optional; string (default: "New Destination")
	URL       jsonx.Field[string] `json:"url"`        // optional; string (default: "rtmp://")
	StreamKey jsonx.Field[string] `json:"stream_key"` // optional; string (default: "")
	IsActive  jsonx.Field[bool]   `json:"is_active"`  // optional; bool   (default: true)
}

// ToDestination maps DestinationCreate → session.Destination.
func (req *DestinationCreate) ToDestination() (session.Destination, error) {
	d := session.Destination{
		ID:       uuid.NewString(),
		Name:     "New Destination",
		URL:      "rtmp://",
		IsActive: true,
	}
	if err := assign("id", req.ID, &d.ID); err != nil {
		return d, err
	}
	if err := assign("name", req.Name, &d.Name); err != nil {
		return d, err
	}
	if err := assign("url", req.URL, &d.URL); err != nil {
		return d, err
	}
	if err := assign("stream_key", req.StreamKey, &d.StreamKey); err != nil {
		return d, err
	}
	if err := assign("is_active", req.IsActive, &d.IsActive); err != nil {
		return d, err
	}
	return d, nil
}
