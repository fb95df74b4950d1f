package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/internal/infrastructure/eventlog"
	"github.com/edirooss/gst-architect/internal/repo"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
	"github.com/edirooss/gst-architect/pkg/gstpipeline"
)

func newTestStore(t *testing.T) *repo.SessionRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return repo.NewSessionRepository(zap.NewNop(), repo.WrapRedisClient(zap.NewNop(), rdb))
}

func newTestService(t *testing.T) (*SessionService, *repo.SessionRepository) {
	t.Helper()
	store := newTestStore(t)
	return NewSessionService(zap.NewNop(), store), store
}

func TestBootstrap_SeedsDefaultOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx))
	require.NoError(t, svc.Bootstrap(ctx))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Main Broadcast", all[0].Name)
	assert.EqualValues(t, 1, all[0].Revision)
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	s := &session.Session{
		Name:         "Studio",
		VideoSource:  session.SourceTest,
		AudioSource:  session.SourceTest,
		Encoder:      session.EncoderX264,
		VideoBitrate: 3000,
		AudioBitrate: 96,
	}
	require.NoError(t, svc.Create(ctx, s))
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, session.StatusIdle, s.Status)
	assert.EqualValues(t, 1, s.Revision)

	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Studio", got.Name)
}

func TestCreate_Invalid(t *testing.T) {
	svc, _ := newTestService(t)
	s := session.New("")
	err := svc.Create(context.Background(), s)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "name must be at least 1 character")
}

func TestReplace_BumpsRevisionKeepsIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	orig := session.Default()
	orig.Status = session.StatusRunning
	require.NoError(t, svc.Create(ctx, orig))

	next := session.New("Renamed")
	next.ID = orig.ID
	next.Status = ""
	require.NoError(t, svc.Replace(ctx, next))

	got, err := svc.Get(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.EqualValues(t, 2, got.Revision)
	assert.True(t, orig.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, session.StatusRunning, got.Status)
}

func TestModify_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Modify(context.Background(), "nope", func(*session.Session) error { return nil })
	assert.ErrorIs(t, err, repo.ErrSessionNotFound)
}

func TestUnknownIDsLeaveNoGate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := uuid.NewString()
		_, err := svc.Modify(ctx, id, func(*session.Session) error { return nil })
		require.ErrorIs(t, err, repo.ErrSessionNotFound)
		require.ErrorIs(t, svc.Delete(ctx, id), repo.ErrSessionNotFound)

		_, ok := svc.gates.m.Load(id)
		assert.False(t, ok, id)
	}

	s := session.Default()
	require.NoError(t, svc.Create(ctx, s))
	_, err := svc.Modify(ctx, s.ID, func(cur *session.Session) error { cur.Loop = false; return nil })
	require.NoError(t, err)
	_, ok := svc.gates.m.Load(s.ID)
	assert.True(t, ok)
}

func TestModify_Locked(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := session.Default()
	require.NoError(t, svc.Create(ctx, s))

	unlock := svc.gates.lock(s.ID)
	defer unlock()

	_, err := svc.Modify(ctx, s.ID, func(cur *session.Session) error { cur.Loop = false; return nil })
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorIs(t, svc.Delete(ctx, s.ID), ErrLocked)
}

func TestModify_RejectsInvalidAndKeepsStored(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := session.Default()
	require.NoError(t, svc.Create(ctx, s))

	_, err := svc.Modify(ctx, s.ID, func(cur *session.Session) error {
		cur.VideoBitrate = 0
		return nil
	})
	require.ErrorIs(t, err, ErrInvalid)

	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.DefaultVideoBitrate, got.VideoBitrate)
	assert.EqualValues(t, 1, got.Revision)
}

func TestDelete_LastSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := session.New("a")
	b := session.New("b")
	require.NoError(t, svc.Create(ctx, a))
	require.NoError(t, svc.Create(ctx, b))

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, b.ID), ErrLastSession)
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), repo.ErrSessionNotFound)

	_, err := svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, repo.ErrSessionNotFound)
}

func TestDestinations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := session.New("dests")
	require.NoError(t, svc.Create(ctx, s))

	got, err := svc.AddDestination(ctx, s.ID, session.Destination{Name: "Backup", URL: "rtmp://backup/app", StreamKey: "k", IsActive: true})
	require.NoError(t, err)
	require.Len(t, got.Destinations, 2)
	added := got.Destinations[1]
	assert.NotEmpty(t, added.ID)
	assert.EqualValues(t, 2, got.Revision)

	got, err = svc.RemoveDestination(ctx, s.ID, added.ID)
	require.NoError(t, err)
	require.Len(t, got.Destinations, 1)
	assert.Equal(t, "Primary RTMP", got.Destinations[0].Name)

	_, err = svc.RemoveDestination(ctx, s.ID, added.ID)
	assert.ErrorIs(t, err, ErrDestinationNotFound)

	got, err = svc.RemoveDestination(ctx, s.ID, s.Destinations[0].ID)
	require.NoError(t, err)
	assert.Empty(t, got.Destinations)
}

func TestSubscribe_NotifiesAndClosesOnDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := session.New("a")
	b := session.New("b")
	require.NoError(t, svc.Create(ctx, a))
	require.NoError(t, svc.Create(ctx, b))

	ch, cancel := svc.Subscribe(a.ID)
	defer cancel()

	_, err := svc.SetStatus(ctx, a.ID, session.StatusRunning)
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, a.ID, session.StatusStopped)
	require.NoError(t, err)

	// two changes coalesce into one pending notification
	_, ok := <-ch
	assert.True(t, ok)

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, ok = <-ch
	assert.False(t, ok)
}

func TestArtifacts_Render(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := session.Default()
	require.NoError(t, svc.Create(ctx, s))

	arts := NewArtifactService(zap.NewNop(), svc, ctlscript.Options{})
	got, err := arts.Render(ctx, s.ID)
	require.NoError(t, err)

	assert.Equal(t, s.ID, got.SessionID)
	assert.EqualValues(t, 1, got.Revision)
	assert.Equal(t, gstpipeline.Generate(s, gstpipeline.Options{}), got.Pipeline)
	assert.Contains(t, got.Script, got.Pipeline)

	_, err = arts.Render(ctx, "missing")
	assert.ErrorIs(t, err, repo.ErrSessionNotFound)
}

func TestArtifacts_UnitAndLint(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := session.Default()
	require.NoError(t, svc.Create(ctx, s))
	arts := NewArtifactService(zap.NewNop(), svc, ctlscript.Options{})

	text, name, err := arts.Unit(ctx, s.ID, "/srv/gst", "streamer")
	require.NoError(t, err)
	assert.Equal(t, "gst-main-broadcast.service", name)
	assert.Contains(t, text, "ExecStart=/usr/bin/python3 /srv/gst/main-broadcast.py\n")
	assert.Contains(t, text, "User=streamer\n")

	warns, err := arts.Lint(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Lint(), warns)
}

func TestArtifacts_Watch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := session.New("a")
	b := session.New("b")
	require.NoError(t, svc.Create(ctx, a))
	require.NoError(t, svc.Create(ctx, b))

	arts := NewArtifactService(zap.NewNop(), svc, ctlscript.Options{})
	stream, err := arts.Watch(ctx, a.ID)
	require.NoError(t, err)

	first := <-stream
	assert.EqualValues(t, 1, first.Revision)

	_, err = svc.Modify(ctx, a.ID, func(s *session.Session) error {
		s.Encoder = session.EncoderNVENC
		return nil
	})
	require.NoError(t, err)

	select {
	case next := <-stream:
		assert.EqualValues(t, 2, next.Revision)
		assert.Contains(t, next.Pipeline, "nvv4l2h264enc")
	case <-time.After(2 * time.Second):
		t.Fatal("no update after modify")
	}

	require.NoError(t, svc.Delete(ctx, a.ID))
	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after delete")
	}
}

func TestArtifacts_WatchMissing(t *testing.T) {
	svc, _ := newTestService(t)
	arts := NewArtifactService(zap.NewNop(), svc, ctlscript.Options{})
	_, err := arts.Watch(context.Background(), "missing")
	assert.ErrorIs(t, err, repo.ErrSessionNotFound)
}

func TestMonitor_StartStop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := session.Default()
	require.NoError(t, svc.Create(ctx, s))
	mon := NewMonitorService(zap.NewNop(), svc, eventlog.NewManager())

	got, err := mon.Start(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusRunning, got.Status)

	got, err = mon.Stop(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusStopped, got.Status)

	lines, err := mon.Logs(ctx, s.ID, 10)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "WARN: Stream stopped."))
	assert.True(t, strings.HasSuffix(lines[1], "INFO: Encoder: x264enc starting..."))
	assert.True(t, strings.HasSuffix(lines[2], "INFO: Initializing GStreamer Pipeline..."))
}

func TestMonitor_StartInvalidMarksError(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	s := session.Default()
	s.Revision = 1
	s.AudioBitrate = 0
	require.NoError(t, store.Upsert(ctx, s))

	mon := NewMonitorService(zap.NewNop(), svc, eventlog.NewManager())
	got, err := mon.Start(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusError, got.Status)

	lines, err := mon.Logs(ctx, s.ID, 1)
	require.NoError(t, err)
	assert.Contains(t, lines[0], "ERROR: Invalid configuration: audio_bitrate must be positive")
}

func TestMonitor_LogsMissing(t *testing.T) {
	svc, _ := newTestService(t)
	mon := NewMonitorService(zap.NewNop(), svc, eventlog.NewManager())
	_, err := mon.Logs(context.Background(), "missing", 5)
	assert.ErrorIs(t, err, repo.ErrSessionNotFound)
}

func TestSessionService_MemoryStore(t *testing.T) {
	svc := NewSessionService(zap.NewNop(), repo.NewMemorySessionStore(nil))
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx))
	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.ErrorIs(t, svc.Delete(ctx, all[0].ID), ErrLastSession)

	extra := session.New("Extra")
	require.NoError(t, svc.Create(ctx, extra))
	got, err := svc.SetStatus(ctx, extra.ID, session.StatusRunning)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Revision)

	require.NoError(t, svc.Delete(ctx, all[0].ID))
	all, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Extra", all[0].Name)
}
