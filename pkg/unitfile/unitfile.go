// Package unitfile renders systemd service units that keep a generated
// control script running (Restart=always). It only produces text; installing
// or starting units is left to the operator.
package unitfile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
)

//go:embed unit.service.tmpl
var unitTemplate string

var tmpl = template.Must(template.New("unit").Parse(unitTemplate))

const (
	DefaultDescription = "GStreamer Session Service"
	DefaultPython      = "/usr/bin/python3"
	DefaultScriptDir   = "/home/user"
	DefaultUser        = "user"
	DefaultRestartSec  = 5 * time.Second
)

// Config represents the configuration for a systemd service.
type Config struct {
	ServiceName      string // without ".service"
	Description      string
	Python           string
	ScriptPath       string
	User             string
	WorkingDirectory string
	RestartSec       time.Duration
	Environment      map[string]string
}

type unitData struct {
	Description      string
	ExecStart        string
	RestartSec       string
	User             string
	WorkingDirectory string
	Environment      []string
}

// ForSession returns a Config for the session's script placed in scriptDir
// (DefaultScriptDir when empty).
func ForSession(s *session.Session, scriptDir, user string) Config {
	if scriptDir == "" {
		scriptDir = DefaultScriptDir
	}
	if user == "" {
		user = DefaultUser
	}
	return Config{
		ServiceName: "gst-" + s.Slug(),
		Description: DefaultDescription + " (" + s.Name + ")",
		Python:      DefaultPython,
		ScriptPath:  strings.TrimSuffix(scriptDir, "/") + "/" + ctlscript.FileName(s),
		User:        user,
		RestartSec:  DefaultRestartSec,
		Environment: map[string]string{"PYTHONUNBUFFERED": "1"},
	}
}

// FileName is the unit file name, e.g. "gst-main-broadcast.service".
func (c Config) FileName() string {
	return c.ServiceName + ".service"
}

// Render returns the unit file text.
func Render(cfg Config) (string, error) {
	if cfg.ScriptPath == "" {
		return "", errors.New("script path is required")
	}
	python := cfg.Python
	if python == "" {
		python = DefaultPython
	}
	for _, v := range []string{cfg.Description, cfg.User, cfg.WorkingDirectory, cfg.ScriptPath, python} {
		if hasControl(v) {
			return "", fmt.Errorf("unit value %q must be single-line", v)
		}
	}
	description := cfg.Description
	if description == "" {
		description = DefaultDescription
	}
	restart := cfg.RestartSec
	if restart <= 0 {
		restart = DefaultRestartSec
	}

	env, err := environment(cfg.Environment)
	if err != nil {
		return "", err
	}

	data := unitData{
		Description:      escapeSpecifiers(description),
		ExecStart:        escapeSpecifiers(quote(python) + " " + quote(cfg.ScriptPath)),
		RestartSec:       strconv.FormatFloat(restart.Seconds(), 'f', -1, 64),
		User:             escapeSpecifiers(cfg.User),
		WorkingDirectory: escapeSpecifiers(cfg.WorkingDirectory),
		Environment:      env,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// environment renders sorted Environment= assignments.
func environment(vars map[string]string) ([]string, error) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if k == "" || strings.ContainsAny(k, "= \t\r\n\"'\\") {
			return nil, fmt.Errorf("invalid environment variable name %q", k)
		}
		if hasControl(vars[k]) {
			return nil, fmt.Errorf("environment variable %s must be single-line", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(vars[k])
		out = append(out, escapeSpecifiers(`"`+k+"="+v+`"`))
	}
	return out, nil
}

// hasControl reports control characters other than tab; any of them could
// end a directive line early.
func hasControl(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return r != '\t' && unicode.IsControl(r)
	})
}

// quote returns a token systemd's ExecStart parser reads back verbatim.
// Plain tokens stay bare; others are C-style double quoted.
func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t'\"\\;$") {
		return s
	}
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// escapeSpecifiers escapes % for systemd.
func escapeSpecifiers(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
