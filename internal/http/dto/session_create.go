package dto

import (
	"fmt"
	"time"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/pkg/jsonx"
)

// SessionCreate is the body of POST /api/sessions and PUT /api/sessions/{id}.
//   - All fields are optional; unset fields take the session.New defaults.
//   - For PUT this means a full replace: omitted fields are reset.
type SessionCreate struct {
	Name          jsonx.Field[string]              `json:"name"`           // optional; string              (default: "New Session")
	VideoSource   jsonx.Field[session.SourceKind]  `json:"video_source"`   // optional; test|device|network (default: test)
	VideoPlaylist jsonx.Field[[]string]            `json:"video_playlist"` // optional; []string            (default: [])
	AudioSource   jsonx.Field[session.SourceKind]  `json:"audio_source"`   // optional; test|device|network (default: test)
	AudioPlaylist jsonx.Field[[]string]            `json:"audio_playlist"` // optional; []string            (default: [])
	Loop          jsonx.Field[bool]                `json:"loop"`           // optional; bool                (default: true)
	Resolution    jsonx.Field[string]              `json:"resolution"`     // optional; "WxH"               (default: "1920x1080")
	FPS           jsonx.Field[int]                 `json:"fps"`            // optional; int                 (default: 30)
	VideoBitrate  jsonx.Field[int]                 `json:"video_bitrate"`  // optional; kbps                (default: 4500)
	AudioBitrate  jsonx.Field[int]                 `json:"audio_bitrate"`  // optional; kbps                (default: 128)
	Encoder       jsonx.Field[session.Encoder]     `json:"encoder"`        // optional; encoder element     (default: x264enc)
	Destinations  jsonx.Field[[]DestinationCreate] `json:"destinations"`   // optional; array[object]       (default: one placeholder)
	Status        jsonx.Field[session.Status]      `json:"status"`         // optional; status              (default: idle on create, kept on replace)
}

// DefaultSessionName names sessions created without a name.
const DefaultSessionName = "New Session"

// ToSession maps SessionCreate → session.Session. Identity fields are left
// for the service to assign.
func (req *SessionCreate) ToSession() (*session.Session, error) {
	s := session.New(DefaultSessionName)
	s.ID = ""
	s.Status = ""

	fields := []error{
		assign("name", req.Name, &s.Name),
		assign("video_source", req.VideoSource, &s.VideoSource),
		assign("video_playlist", req.VideoPlaylist, &s.VideoPlaylist),
		assign("audio_source", req.AudioSource, &s.AudioSource),
		assign("audio_playlist", req.AudioPlaylist, &s.AudioPlaylist),
		assign("loop", req.Loop, &s.Loop),
		assign("resolution", req.Resolution, &s.Resolution),
		assign("fps", req.FPS, &s.FPS),
		assign("video_bitrate", req.VideoBitrate, &s.VideoBitrate),
		assign("audio_bitrate", req.AudioBitrate, &s.AudioBitrate),
		assign("encoder", req.Encoder, &s.Encoder),
		assign("status", req.Status, &s.Status),
	}
	for _, err := range fields {
		if err != nil {
			return nil, err
		}
	}

	if req.Destinations.IsSet() {
		dests, err := toDestinations(req.Destinations)
		if err != nil {
			return nil, err
		}
		s.Destinations = dests
	}
	if s.VideoPlaylist == nil {
		s.VideoPlaylist = []string{}
	}
	if s.AudioPlaylist == nil {
		s.AudioPlaylist = []string{}
	}
	s.CreatedAt = time.Time{}
	return s, nil
}

func toDestinations(f jsonx.Field[[]DestinationCreate]) ([]session.Destination, error) {
	if f.IsNull() {
		return nil, fmt.Errorf("destinations cannot be null")
	}
	in := *f.Value()
	out := make([]session.Destination, 0, len(in))
	for i := range in {
		d, err := in[i].ToDestination()
		if err != nil {
			return nil, fmt.Errorf("destinations[%d]: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
