// Package ctlscript renders the standalone Python (PyGObject) control script
// that runs a session's pipeline: playlist cursors, a restart-on-EOS/ERROR
// run loop with a bounded backoff, and the injected session literals.
//
// Generation is pure and total. Every injected value is escaped for Python;
// the pipeline description is embedded byte for byte whenever it holds no
// backslash or triple quote.
package ctlscript

import (
	_ "embed"
	"strconv"
	"strings"
	"text/template"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/pkg/gstpipeline"
)

//go:embed script.py.tmpl
var scriptTemplate string

var tmpl = template.Must(template.New("script").Parse(scriptTemplate))

// Options tune script generation. The zero value gives the default script.
type Options struct {
	Pipeline gstpipeline.Options `yaml:"pipeline" json:"pipeline"`
	Restart  RestartPolicy       `yaml:"restart" json:"restart"`
	Advance  AdvanceMode         `yaml:"advance" json:"advance"`
}

type scriptData struct {
	SessionName   string
	Pipeline      string
	VideoPlaylist string
	AudioPlaylist string
	Loop          string
	AdvanceMode   string

	RestartDelay       string
	RestartMaxDelay    string
	RestartMultiplier  string
	RestartMaxAttempts string
	RestartStableAfter string
}

// Generate returns the control script for s.
func Generate(s *session.Session, opts Options) string {
	return GenerateWithPipeline(s, gstpipeline.Generate(s, opts.Pipeline), opts)
}

// GenerateWithPipeline renders the script around an already generated
// pipeline description.
func GenerateWithPipeline(s *session.Session, pipeline string, opts Options) string {
	if s == nil {
		s = &session.Session{}
	}
	policy := opts.Restart.Normalize()
	advance := opts.Advance
	if advance != AdvanceReload {
		advance = AdvanceRestart
	}

	data := scriptData{
		SessionName:   pyString(s.Name),
		Pipeline:      pyTripleString(pipeline),
		VideoPlaylist: pyList(s.VideoPlaylist),
		AudioPlaylist: pyList(s.AudioPlaylist),
		Loop:          pyBool(s.Loop),
		AdvanceMode:   pyString(string(advance)),

		RestartDelay:       pySeconds(policy.Delay),
		RestartMaxDelay:    pySeconds(policy.MaxDelay),
		RestartMultiplier:  pyFloat(policy.Multiplier),
		RestartMaxAttempts: strconv.Itoa(policy.MaxAttempts),
		RestartStableAfter: pySeconds(policy.StableAfter),
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		panic("ctlscript: " + err.Error())
	}
	return sb.String()
}

// FileName returns the conventional script file name for s.
func FileName(s *session.Session) string {
	return s.Slug() + ".py"
}
