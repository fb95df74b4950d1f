package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/edirooss/gst-architect/pkg/avurl"
)

const (
	maxNameLen = 100
	maxURILen  = 2048
)

// Validate enforces the editing-surface invariants. Generators never call it:
// they accept any value and always produce text.
//
// Besides ranges and enums it rejects characters that would break the quoting
// of the generated artifacts: the session name lands in a double-quoted Python
// literal, URIs and sink addresses land in double-quoted pipeline properties.
func (s *Session) Validate() error {
	// name: minLength 1, maxLength 100, literal-safe
	if len(s.Name) < 1 {
		return errors.New("name must be at least 1 character")
	}
	if len(s.Name) > maxNameLen {
		return fmt.Errorf("name must be at most %d characters", maxNameLen)
	}
	if err := literalSafe(s.Name, `"\`); err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}

	if !s.VideoSource.Valid() {
		return fmt.Errorf("invalid video_source %q", s.VideoSource)
	}
	if !s.AudioSource.Valid() {
		return fmt.Errorf("invalid audio_source %q", s.AudioSource)
	}
	if !s.Encoder.Valid() {
		return fmt.Errorf("invalid encoder %q", s.Encoder)
	}
	if s.Status != "" && !s.Status.Valid() {
		return fmt.Errorf("invalid status %q", s.Status)
	}

	if s.VideoBitrate <= 0 {
		return errors.New("video_bitrate must be positive")
	}
	if s.AudioBitrate <= 0 {
		return errors.New("audio_bitrate must be positive")
	}
	if s.FPS < 0 {
		return errors.New("fps must not be negative")
	}
	if s.Resolution != "" {
		if _, _, ok := ParseResolution(s.Resolution); !ok {
			return fmt.Errorf("invalid resolution %q (want WIDTHxHEIGHT)", s.Resolution)
		}
	}

	for i, uri := range s.VideoPlaylist {
		if err := validateURI(uri); err != nil {
			return fmt.Errorf("invalid video_playlist[%d]: %w", i, err)
		}
	}
	for i, uri := range s.AudioPlaylist {
		if err := validateURI(uri); err != nil {
			return fmt.Errorf("invalid audio_playlist[%d]: %w", i, err)
		}
	}

	seen := make(map[string]struct{}, len(s.Destinations))
	for i, d := range s.Destinations {
		if d.ID == "" {
			return fmt.Errorf("destinations[%d]: id is required", i)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("destinations[%d]: duplicate id %q", i, d.ID)
		}
		seen[d.ID] = struct{}{}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("destinations[%d]: %w", i, err)
		}
	}

	return nil
}

// Validate checks a single destination.
func (d *Destination) Validate() error {
	if len(d.Name) > maxNameLen {
		return fmt.Errorf("name must be at most %d characters", maxNameLen)
	}
	if err := literalSafe(d.Name, `"\`); err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}
	if err := validateURI(d.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if err := validateURI(d.StreamKey); err != nil {
		return fmt.Errorf("invalid stream_key: %w", err)
	}
	return nil
}

// Lint returns non-fatal warnings about values that generate fine but will
// most likely fail once the engine runs the pipeline.
func (s *Session) Lint() []string {
	var warns []string

	if s.VideoSource == SourceNetwork && len(s.VideoPlaylist) == 0 {
		warns = append(warns, "video_source is network but video_playlist is empty; a placeholder uri is used")
	}
	if s.AudioSource == SourceNetwork && len(s.AudioPlaylist) == 0 {
		warns = append(warns, "audio_source is network but audio_playlist is empty; a placeholder uri is used")
	}
	if s.VideoSource == SourceDevice {
		warns = append(warns, "video_source device is generated as a uridecodebin source")
	}
	if s.VideoSource == SourceNetwork {
		for i, uri := range s.VideoPlaylist {
			for _, w := range avurl.CheckSource(uri) {
				warns = append(warns, fmt.Sprintf("video_playlist[%d]: %s", i, w))
			}
		}
	}
	if s.AudioSource == SourceNetwork {
		for i, uri := range s.AudioPlaylist {
			for _, w := range avurl.CheckSource(uri) {
				warns = append(warns, fmt.Sprintf("audio_playlist[%d]: %s", i, w))
			}
		}
	}

	active := 0
	for i, d := range s.Destinations {
		if !d.IsActive {
			continue
		}
		active++
		for _, w := range avurl.CheckSink(d.URL) {
			warns = append(warns, fmt.Sprintf("destinations[%d]: %s", i, w))
		}
		if strings.TrimSpace(d.StreamKey) == "" {
			warns = append(warns, fmt.Sprintf("destinations[%d]: stream_key is empty", i))
		}
	}
	if active == 0 {
		warns = append(warns, "no active destinations; the pipeline has no sinks")
	}

	return warns
}

// ParseResolution parses "WIDTHxHEIGHT" with positive dimensions.
func ParseResolution(res string) (w, h int, ok bool) {
	ws, hs, found := strings.Cut(strings.ToLower(strings.TrimSpace(res)), "x")
	if !found {
		return 0, 0, false
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

func validateURI(v string) error {
	if len(v) > maxURILen {
		return fmt.Errorf("must be at most %d characters", maxURILen)
	}
	return literalSafe(v, `"`)
}

// literalSafe rejects control characters and any rune listed in forbidden.
func literalSafe(v, forbidden string) error {
	for _, r := range v {
		if unicode.IsControl(r) {
			return fmt.Errorf("control character %U not allowed", r)
		}
		if strings.ContainsRune(forbidden, r) {
			return fmt.Errorf("character %q not allowed", r)
		}
	}
	return nil
}
