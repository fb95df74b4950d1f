package gstpipeline

import (
	"fmt"
	"strings"

	"github.com/edirooss/gst-architect/internal/domain/session"
)

// BitrateUnit is the unit an encoder element expects on its bitrate property.
// Session bitrates are always kbit/s; the unit decides the scale factor.
type BitrateUnit int

const (
	Kbps BitrateUnit = iota // emit the kbit/s value as is
	Bps                     // emit kbit/s × 1000
)

// Scale converts a kbit/s value to u.
func (u BitrateUnit) Scale(kbps int) int {
	if u == Bps {
		return kbps * 1000
	}
	return kbps
}

func (u BitrateUnit) String() string {
	if u == Bps {
		return "bps"
	}
	return "kbps"
}

// ParseBitrateUnit accepts "kbps" or "bps" (case-insensitive).
func ParseBitrateUnit(s string) (BitrateUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kbps":
		return Kbps, nil
	case "bps":
		return Bps, nil
	}
	return Kbps, fmt.Errorf("unknown bitrate unit %q (want kbps or bps)", s)
}

// MarshalText implements encoding.TextMarshaler (YAML / JSON config).
func (u BitrateUnit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *BitrateUnit) UnmarshalText(b []byte) error {
	v, err := ParseBitrateUnit(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// DefaultUnits matches what each element documents for its bitrate property:
// x264enc and vaapih264enc take kbit/s, nvv4l2h264enc takes bit/s.
var DefaultUnits = map[session.Encoder]BitrateUnit{
	session.EncoderX264:  Kbps,
	session.EncoderNVENC: Bps,
	session.EncoderVAAPI: Kbps,
}

// AudioUnit is the unit of voaacenc's bitrate property.
const AudioUnit = Bps

// videoEncode returns the encode clauses for enc. Unknown encoders fall into
// the VA-API branch so generation stays total.
func videoEncode(enc session.Encoder, kbps int, unit BitrateUnit) []string {
	b := unit.Scale(kbps)
	switch enc {
	case session.EncoderX264:
		return []string{
			Element("x264enc", P("bitrate", b), P("tune", "zerolatency"), P("speed-preset", "veryfast")),
			"h264parse",
		}
	case session.EncoderNVENC:
		return []string{
			Element("nvv4l2h264enc", P("bitrate", b), P("preset-level", 1)),
			"h264parse",
		}
	default:
		return []string{
			Element("vaapih264enc", P("bitrate", b)),
			"h264parse",
		}
	}
}

func audioEncode(kbps int) string {
	return Element("voaacenc", P("bitrate", AudioUnit.Scale(kbps)))
}
