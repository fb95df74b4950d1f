package dto

import (
	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/pkg/jsonx"
)

// SessionModify is the body of PATCH /api/sessions/{id}. Merge-patch
// semantics (RFC 7386):
//   - All fields are optional; unset fields remain unchanged.
//   - "destinations" replaces the whole list when present.
type SessionModify struct {
	Name          jsonx.Field[string]              `json:"name"`
	VideoSource   jsonx.Field[session.SourceKind]  `json:"video_source"`
	VideoPlaylist jsonx.Field[[]string]            `json:"video_playlist"`
	AudioSource   jsonx.Field[session.SourceKind]  `json:"audio_source"`
	AudioPlaylist jsonx.Field[[]string]            `json:"audio_playlist"`
	Loop          jsonx.Field[bool]                `json:"loop"`
	Resolution    jsonx.Field[string]              `json:"resolution"`
	FPS           jsonx.Field[int]                 `json:"fps"`
	VideoBitrate  jsonx.Field[int]                 `json:"video_bitrate"`
	AudioBitrate  jsonx.Field[int]                 `json:"audio_bitrate"`
	Encoder       jsonx.Field[session.Encoder]     `json:"encoder"`
	Destinations  jsonx.Field[[]DestinationCreate] `json:"destinations"`
	Status        jsonx.Field[session.Status]      `json:"status"`
}

// MergePatch applies the request to prev in memory. Explicit nulls are
// rejected.
func (req *SessionModify) MergePatch(prev *session.Session) error {
	fields := []error{
		assign("name", req.Name, &prev.Name),
		assign("video_source", req.VideoSource, &prev.VideoSource),
		assign("video_playlist", req.VideoPlaylist, &prev.VideoPlaylist),
		assign("audio_source", req.AudioSource, &prev.AudioSource),
		assign("audio_playlist", req.AudioPlaylist, &prev.AudioPlaylist),
		assign("loop", req.Loop, &prev.Loop),
		assign("resolution", req.Resolution, &prev.Resolution),
		assign("fps", req.FPS, &prev.FPS),
		assign("video_bitrate", req.VideoBitrate, &prev.VideoBitrate),
		assign("audio_bitrate", req.AudioBitrate, &prev.AudioBitrate),
		assign("encoder", req.Encoder, &prev.Encoder),
		assign("status", req.Status, &prev.Status),
	}
	for _, err := range fields {
		if err != nil {
			return err
		}
	}

	if req.Destinations.IsSet() {
		dests, err := toDestinations(req.Destinations)
		if err != nil {
			return err
		}
		prev.Destinations = dests
	}
	return nil
}
