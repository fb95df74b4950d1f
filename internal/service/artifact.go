package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/internal/metrics"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
	"github.com/edirooss/gst-architect/pkg/gstpipeline"
	"github.com/edirooss/gst-architect/pkg/unitfile"
)

// Artifacts is the generated output for one session revision.
type Artifacts struct {
	SessionID  string `json:"session_id"`
	Revision   int64  `json:"revision"`
	Pipeline   string `json:"pipeline"`
	Script     string `json:"script"`
	ScriptFile string `json:"script_file"`
}

// ArtifactService renders artifacts on demand. Nothing is cached: concurrent
// renders of the same (id, revision) share one generation.
type ArtifactService struct {
	log      *zap.Logger
	sessions *SessionService
	opts     ctlscript.Options

	sf singleflight.Group
}

// NewArtifactService creates an ArtifactService rendering with opts.
func NewArtifactService(log *zap.Logger, sessions *SessionService, opts ctlscript.Options) *ArtifactService {
	return &ArtifactService{
		log:      log.Named("artifact_service"),
		sessions: sessions,
		opts:     opts,
	}
}

// Options returns the generator options in use.
func (a *ArtifactService) Options() ctlscript.Options { return a.opts }

// Render returns the pipeline and script for the current revision of id.
func (a *ArtifactService) Render(ctx context.Context, id string) (*Artifacts, error) {
	sess, err := a.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.render(sess), nil
}

func (a *ArtifactService) render(sess *session.Session) *Artifacts {
	key := sess.ID + ":" + strconv.FormatInt(sess.Revision, 10)
	v, _, _ := a.sf.Do(key, func() (any, error) {
		start := time.Now()
		pipeline := gstpipeline.Generate(sess, a.opts.Pipeline)
		script := ctlscript.GenerateWithPipeline(sess, pipeline, a.opts)
		metrics.RecordGeneration(time.Since(start).Seconds())
		metrics.RecordArtifact("pipeline")
		metrics.RecordArtifact("script")

		return &Artifacts{
			SessionID:  sess.ID,
			Revision:   sess.Revision,
			Pipeline:   pipeline,
			Script:     script,
			ScriptFile: ctlscript.FileName(sess),
		}, nil
	})
	return v.(*Artifacts)
}

// Unit renders the systemd unit for id. An empty scriptDir or user takes the
// unitfile defaults. It returns the unit text and its file name.
func (a *ArtifactService) Unit(ctx context.Context, id, scriptDir, user string) (string, string, error) {
	sess, err := a.sessions.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	cfg := unitfile.ForSession(sess, scriptDir, user)
	text, err := unitfile.Render(cfg)
	if err != nil {
		return "", "", fmt.Errorf("render unit: %w: %w", ErrInvalid, err)
	}
	metrics.RecordArtifact("unit")
	return text, cfg.FileName(), nil
}

// Lint returns non-fatal warnings for id.
func (a *ArtifactService) Lint(ctx context.Context, id string) ([]string, error) {
	sess, err := a.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.Lint(), nil
}

// Watch streams the artifacts of id: the current revision first, then one
// value per persisted change. The channel closes when ctx ends or the session
// is deleted.
func (a *ArtifactService) Watch(ctx context.Context, id string) (<-chan *Artifacts, error) {
	notify, cancel := a.sessions.Subscribe(id)

	first, err := a.Render(ctx, id)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan *Artifacts, 1)
	out <- first

	go func() {
		defer close(out)
		defer cancel()
		metrics.WatcherOpened()
		defer metrics.WatcherClosed()

		last := first.Revision
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notify:
				if !ok {
					return
				}
				art, err := a.Render(ctx, id)
				if err != nil {
					a.log.Warn("watch render failed", zap.String("session_id", id), zap.Error(err))
					return
				}
				if art.Revision == last {
					continue
				}
				last = art.Revision
				select {
				case out <- art:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
