package session

import (
	"time"
)

// SourceKind is the origin of a session's video or audio stream.
type SourceKind string

const (
	SourceTest    SourceKind = "test"    // synthetic live test pattern / tone
	SourceDevice  SourceKind = "device"  // local capture device
	SourceNetwork SourceKind = "network" // playlist-driven URI source
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceTest, SourceDevice, SourceNetwork:
		return true
	}
	return false
}

// Encoder selects the H.264 encode backend. Values are the element names.
type Encoder string

const (
	EncoderX264  Encoder = "x264enc"       // software
	EncoderNVENC Encoder = "nvv4l2h264enc" // NVIDIA (Jetson V4L2)
	EncoderVAAPI Encoder = "vaapih264enc"  // Intel VA-API
)

// Valid reports whether e is one of the known encoders.
func (e Encoder) Valid() bool {
	switch e {
	case EncoderX264, EncoderNVENC, EncoderVAAPI:
		return true
	}
	return false
}

// Status is the UI-facing run state. Generators never read it.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusError   Status = "error"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusStopped, StatusError:
		return true
	}
	return false
}

// Session is one independent streaming job.
type Session struct {
	ID            string        `json:"id" yaml:"id"`
	Name          string        `json:"name" yaml:"name"`
	VideoSource   SourceKind    `json:"video_source" yaml:"video_source"`
	VideoPlaylist []string      `json:"video_playlist" yaml:"video_playlist"`
	AudioSource   SourceKind    `json:"audio_source" yaml:"audio_source"`
	AudioPlaylist []string      `json:"audio_playlist" yaml:"audio_playlist"`
	Loop          bool          `json:"loop" yaml:"loop"`
	Resolution    string        `json:"resolution" yaml:"resolution"` // "WxH"; fixed caps unless geometry is honored
	FPS           int           `json:"fps" yaml:"fps"`
	VideoBitrate  int           `json:"video_bitrate" yaml:"video_bitrate"` // kbps
	AudioBitrate  int           `json:"audio_bitrate" yaml:"audio_bitrate"` // kbps
	Encoder       Encoder       `json:"encoder" yaml:"encoder"`
	Destinations  []Destination `json:"destinations" yaml:"destinations"`
	Status        Status        `json:"status" yaml:"status"`
	Revision      int64         `json:"revision" yaml:"-"`
	CreatedAt     time.Time     `json:"created_at" yaml:"-"`
}

// Destination is one delivery endpoint.
type Destination struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	URL       string `json:"url" yaml:"url"`
	StreamKey string `json:"stream_key" yaml:"stream_key"`
	IsActive  bool   `json:"is_active" yaml:"is_active"`
}

// SinkAddress is the full sink location: url + "/" + streamKey, untouched.
func (d Destination) SinkAddress() string {
	return d.URL + "/" + d.StreamKey
}

// ActiveDestinations returns the active destinations in their original order.
// The position in the returned slice is the multiplexer index.
func (s *Session) ActiveDestinations() []Destination {
	out := make([]Destination, 0, len(s.Destinations))
	for _, d := range s.Destinations {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out
}

// Destination returns the destination with the given ID.
func (s *Session) Destination(id string) (*Destination, bool) {
	for i := range s.Destinations {
		if s.Destinations[i].ID == id {
			return &s.Destinations[i], true
		}
	}
	return nil, false
}
