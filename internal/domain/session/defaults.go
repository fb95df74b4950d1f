package session

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultResolution   = "1920x1080"
	DefaultFPS          = 30
	DefaultVideoBitrate = 4500 // kbps
	DefaultAudioBitrate = 128  // kbps
)

// New returns a fresh session with the editor defaults and a single active
// placeholder destination.
func New(name string) *Session {
	return &Session{
		ID:            uuid.NewString(),
		Name:          name,
		VideoSource:   SourceTest,
		VideoPlaylist: []string{},
		AudioSource:   SourceTest,
		AudioPlaylist: []string{},
		Loop:          true,
		Resolution:    DefaultResolution,
		FPS:           DefaultFPS,
		VideoBitrate:  DefaultVideoBitrate,
		AudioBitrate:  DefaultAudioBitrate,
		Encoder:       EncoderX264,
		Destinations: []Destination{
			NewDestination("Primary RTMP", "rtmp://your-url.com/app", ""),
		},
		Status:    StatusIdle,
		CreatedAt: time.Now().UTC(),
	}
}

// Default returns the first session a new workspace starts with.
func Default() *Session {
	s := New("Main Broadcast")
	s.Destinations = []Destination{
		NewDestination("YouTube Live", "rtmp://a.rtmp.youtube.com/live2", "****"),
		NewDestination("Twitch", "rtmp://lax.contribute.live-video.net/app/", "****"),
	}
	return s
}

// NewDestination returns an active destination with a fresh ID.
func NewDestination(name, url, streamKey string) Destination {
	return Destination{
		ID:        uuid.NewString(),
		Name:      name,
		URL:       url,
		StreamKey: streamKey,
		IsActive:  true,
	}
}
