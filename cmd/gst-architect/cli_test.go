package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
)

const twoSessions = `
sessions:
  - name: Main Broadcast
    resolution: 1280x720
    destinations:
      - name: YouTube
        url: rtmp://a.rtmp.youtube.com/live2
        stream_key: abcd
  - name: Backup Feed
    encoder: vaapih264enc
    destinations:
      - url: rtmp://backup/app
        stream_key: k
        is_active: false
`

func writeInput(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sessions.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, _ := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseSessions_List(t *testing.T) {
	sessions, err := parseSessions([]byte(twoSessions))
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	first := sessions[0]
	assert.Equal(t, "Main Broadcast", first.Name)
	assert.Equal(t, "1280x720", first.Resolution)
	assert.Equal(t, session.EncoderX264, first.Encoder)
	assert.Equal(t, session.DefaultVideoBitrate, first.VideoBitrate)
	require.Len(t, first.Destinations, 1)
	assert.True(t, first.Destinations[0].IsActive)
	assert.NotEmpty(t, first.Destinations[0].ID)
	assert.Equal(t, "YouTube", first.Destinations[0].Name)

	backup := sessions[1]
	assert.Equal(t, session.EncoderVAAPI, backup.Encoder)
	require.Len(t, backup.Destinations, 1)
	assert.False(t, backup.Destinations[0].IsActive)
	assert.Equal(t, "New Destination", backup.Destinations[0].Name)
}

func TestParseSessions_SingleJSON(t *testing.T) {
	sessions, err := parseSessions([]byte(`{"name": "Solo", "loop": false, "destinations": null}`))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Solo", sessions[0].Name)
	assert.False(t, sessions[0].Loop)
	assert.Empty(t, sessions[0].Destinations)
}

func TestParseSessions_DefaultsKeepPlaceholderDestination(t *testing.T) {
	sessions, err := parseSessions([]byte("name: Bare\n"))
	require.NoError(t, err)
	require.Len(t, sessions[0].Destinations, 1)
	assert.Equal(t, "Primary RTMP", sessions[0].Destinations[0].Name)
}

func TestParseSessions_Errors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":          "",
		"scalar":         "hello",
		"sessions map":   "sessions: {a: 1}",
		"no sessions":    "sessions: []",
		"bad dest":       "name: x\ndestinations: 3\n",
		"bad field type": "name: x\nfps: fast\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseSessions([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestPipelineCmd(t *testing.T) {
	p := writeInput(t, twoSessions)

	out, err := run(t, "pipeline", p)
	require.NoError(t, err)
	assert.Contains(t, out, "# Main Broadcast\n")
	assert.Contains(t, out, "# Backup Feed\n")
	assert.Contains(t, out, `location="rtmp://a.rtmp.youtube.com/live2/abcd"`)
	assert.Contains(t, out, "width=1920,height=1080")

	out, err = run(t, "pipeline", "--honor-geometry", p)
	require.NoError(t, err)
	assert.Contains(t, out, "width=1280,height=720")

	out, err = run(t, "pipeline", "--launch", p)
	require.NoError(t, err)
	assert.Contains(t, out, "gst-launch-1.0")
}

func TestPipelineCmd_InvalidInput(t *testing.T) {
	p := writeInput(t, "name: x\nencoder: h265\n")
	_, err := run(t, "pipeline", p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid encoder")
}

func TestScriptCmd_Flags(t *testing.T) {
	p := writeInput(t, "name: Solo\n")

	out, err := run(t, "script", "--advance", "reload", "--restart-max-attempts", "5", p)
	require.NoError(t, err)
	assert.Contains(t, out, `ADVANCE_MODE = "reload"`)
	assert.Contains(t, out, "RESTART_MAX_ATTEMPTS = 5\n")
	assert.NotContains(t, out, "# Solo\n")

	_, err = run(t, "script", "--advance", "skip", p)
	assert.Error(t, err)
}

func TestOptions_ConfigThenFlags(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
generator:
  advance: reload
  restart:
    max_attempts: 9
`), 0o600))
	p := writeInput(t, "name: Solo\n")

	out, err := run(t, "script", "--config", cfgPath, p)
	require.NoError(t, err)
	assert.Contains(t, out, `ADVANCE_MODE = "reload"`)
	assert.Contains(t, out, "RESTART_MAX_ATTEMPTS = 9\n")

	out, err = run(t, "script", "--config", cfgPath, "--advance", "restart", p)
	require.NoError(t, err)
	assert.Contains(t, out, `ADVANCE_MODE = "restart"`)
	assert.Contains(t, out, "RESTART_MAX_ATTEMPTS = 9\n")
}

func TestUnitCmd(t *testing.T) {
	p := writeInput(t, "name: Main Broadcast\n")

	out, err := run(t, "unit", "--script-path", "/opt/streams", "--user", "media", p)
	require.NoError(t, err)
	assert.Contains(t, out, "ExecStart=/usr/bin/python3 /opt/streams/main-broadcast.py\n")
	assert.Contains(t, out, "User=media\n")

	out, err = run(t, "unit", "--script-path", "/srv/run.py", p)
	require.NoError(t, err)
	assert.Contains(t, out, "ExecStart=/usr/bin/python3 /srv/run.py\n")

	_, err = run(t, "unit", "--script-path", "/srv/run.py", writeInput(t, twoSessions))
	assert.Error(t, err)
}

func TestLintCmd(t *testing.T) {
	p := writeInput(t, `
sessions:
  - name: Good
    destinations:
      - url: rtmp://live/app
        stream_key: k
  - name: Quiet
    destinations: []
  - name: Broken
    fps: -1
`)
	out, err := run(t, "lint", p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 sessions invalid")
	assert.Contains(t, out, "Good: ok\n")
	assert.Contains(t, out, "Quiet: warning: no active destinations")
	assert.Contains(t, out, "Broken: error: fps must not be negative\n")
}

func TestExport(t *testing.T) {
	sessions, err := parseSessions([]byte(twoSessions))
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := export(context.Background(), sessions, ctlscript.Options{}, exportTarget{Dir: dir, User: "media"})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "main-broadcast.py"),
		filepath.Join(dir, "gst-main-broadcast.service"),
		filepath.Join(dir, "backup-feed.py"),
		filepath.Join(dir, "gst-backup-feed.service"),
	}, paths)

	script, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, ctlscript.Generate(sessions[0], ctlscript.Options{}), string(script))

	unit, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(unit), "ExecStart=/usr/bin/python3 "+filepath.Join(dir, "main-broadcast.py")+"\n")
	assert.Contains(t, string(unit), "User=media\n")
}

func TestExport_DuplicateSlug(t *testing.T) {
	sessions, err := parseSessions([]byte("sessions:\n  - name: Main Feed\n  - name: main-feed\n"))
	require.NoError(t, err)
	_, err = export(context.Background(), sessions, ctlscript.Options{}, exportTarget{Dir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main-feed.py")
}

func TestExportCmd(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "export", "--out", dir, writeInput(t, "name: Solo\n"))
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "solo.py"))
	assert.FileExists(t, filepath.Join(dir, "gst-solo.service"))
}

func TestSimulate_StopsAfterItems(t *testing.T) {
	s := session.New("sim")
	s.VideoSource = session.SourceNetwork
	s.VideoPlaylist = []string{"file:///a.mp4", "file:///b.mp4"}

	var out bytes.Buffer
	f := &simulateFlags{items: 1, itemDuration: time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	st, err := simulate(ctx, &out, zap.NewNop(), s, ctlscript.Options{Advance: ctlscript.AdvanceReload}, f)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Starts)
	assert.Equal(t, 1, st.EOS)
	assert.Contains(t, out.String(), "eos")
	assert.Contains(t, out.String(), "file:///a.mp4")
}

func TestSimulate_Validation(t *testing.T) {
	_, err := simulate(context.Background(), &bytes.Buffer{}, zap.NewNop(), session.New("x"), ctlscript.Options{}, &simulateFlags{})
	assert.Error(t, err)
}

func TestPickSession(t *testing.T) {
	sessions, err := parseSessions([]byte(twoSessions))
	require.NoError(t, err)

	s, err := pickSession(sessions, "")
	require.NoError(t, err)
	assert.Equal(t, "Main Broadcast", s.Name)

	s, err = pickSession(sessions, "Backup Feed")
	require.NoError(t, err)
	assert.Equal(t, "Backup Feed", s.Name)

	_, err = pickSession(sessions, "nope")
	assert.Error(t, err)
}

func TestWatchFile(t *testing.T) {
	p := writeInput(t, "name: Solo\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() { done <- watchFile(ctx, zap.NewNop(), p, 10*time.Millisecond, func() { calls.Add(1) }) }()

	// fsnotify needs the watch registered before the write is seen.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(p, []byte("name: Solo Two\n"), 0o600)
		return calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watchFile did not return after cancel")
	}
}
