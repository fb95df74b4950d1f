package gstpipeline

import (
	"strconv"

	"github.com/edirooss/gst-architect/internal/domain/session"
)

// Element names the control script and the tee branches refer to.
const (
	VideoSourceName = "vsrc"
	AudioSourceName = "asrc"
	VideoTeeName    = "vtee"
	AudioTeeName    = "atee"

	// PlaceholderURI stands in for an empty playlist.
	PlaceholderURI = "http://placeholder"
)

// Fixed output geometry used unless Options.HonorGeometry is set.
const (
	FixedWidth  = 1920
	FixedHeight = 1080
	FixedFPS    = 30
)

// Options tune generation. The zero value reproduces the canonical output.
type Options struct {
	// Units overrides the bitrate unit per encoder. Missing entries fall back
	// to DefaultUnits.
	Units map[session.Encoder]BitrateUnit `yaml:"units" json:"units"`

	// HonorGeometry makes the caps follow the session's resolution and fps.
	// Unparsable values fall back to the fixed geometry.
	HonorGeometry bool `yaml:"honor_geometry" json:"honor_geometry"`
}

func (o Options) unit(enc session.Encoder) BitrateUnit {
	if u, ok := o.Units[enc]; ok {
		return u
	}
	return DefaultUnits[enc]
}

func (o Options) geometry(s *session.Session) (w, h, fps int) {
	w, h, fps = FixedWidth, FixedHeight, FixedFPS
	if !o.HonorGeometry {
		return
	}
	if pw, ph, ok := session.ParseResolution(s.Resolution); ok {
		w, h = pw, ph
	}
	if s.FPS > 0 {
		fps = s.FPS
	}
	return
}

// MuxName returns the multiplexer name of the i-th active destination.
func MuxName(i int) string {
	return "mux" + strconv.Itoa(i)
}

// Generate returns the pipeline description for s. It never fails.
func Generate(s *session.Session, opts Options) string {
	return FromSession(s, opts).Build()
}

// FromSession materializes a Builder from a session.
//
// Layout:
//
//	{vsrc} ! videoconvert ! videoscale ! {caps} ! {venc} ! h264parse ! tee name=vtee
//	{asrc} ! audioconvert ! audioresample ! {aenc} ! tee name=atee
//	vtee. ! queue ! flvmux name=mux{i} ! rtmp2sink location="{url}/{key}"   (per active destination)
//	atee. ! queue ! mux{i}.
//
// The mux index is positional among active destinations only.
func FromSession(s *session.Session, opts Options) *Builder {
	if s == nil {
		s = &session.Session{}
	}
	w, h, fps := opts.geometry(s)

	b := NewBuilder()

	// --- Video chain ---
	b.Chain(sourceClause(s.VideoSource, "videotestsrc", VideoSourceName, s.VideoPlaylist)).
		Link(
			"videoconvert",
			"videoscale",
			Caps("video/x-raw",
				P("width", w),
				P("height", h),
				P("framerate", strconv.Itoa(fps)+"/1"),
			),
		).
		Link(videoEncode(s.Encoder, s.VideoBitrate, opts.unit(s.Encoder))...).
		Link(Element("tee", P("name", VideoTeeName)))

	// --- Audio chain ---
	b.Chain(sourceClause(s.AudioSource, "audiotestsrc", AudioSourceName, s.AudioPlaylist)).
		Link(
			"audioconvert",
			"audioresample",
			audioEncode(s.AudioBitrate),
			Element("tee", P("name", AudioTeeName)),
		)

	// --- Sink branches ---
	for i, d := range s.ActiveDestinations() {
		mux := MuxName(i)
		b.Chain(
			Ref(VideoTeeName),
			"queue",
			Element("flvmux", P("name", mux)),
			Element("rtmp2sink", Q("location", d.SinkAddress())),
		)
		b.Chain(Ref(AudioTeeName), "queue", Ref(mux))
	}

	return b
}

// BuildLaunchString is a convenience over FromSession(s, opts).BuildLaunchString().
func BuildLaunchString(s *session.Session, opts Options) string {
	return FromSession(s, opts).BuildLaunchString()
}

// sourceClause returns the live test source for test sessions and a named
// uridecodebin on the first playlist entry otherwise.
func sourceClause(kind session.SourceKind, testFactory, name string, playlist []string) string {
	if kind == session.SourceTest {
		return Element(testFactory, P("is-live", true))
	}
	return Element("uridecodebin", P("name", name), Q("uri", FirstURI(playlist)))
}

// FirstURI returns playlist[0], or PlaceholderURI when there is none.
func FirstURI(playlist []string) string {
	if len(playlist) > 0 && playlist[0] != "" {
		return playlist[0]
	}
	return PlaceholderURI
}
