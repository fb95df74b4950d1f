package sessionrt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
	"github.com/edirooss/gst-architect/pkg/gstpipeline"
	"github.com/edirooss/gst-architect/pkg/playlist"
)

// State is the runtime state.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StatePlaying    State = "PLAYING"
	StateStopped    State = "STOPPED"
	StateError      State = "ERROR"
)

// ErrRestartLimit is returned by Run when a non-zero restart ceiling is hit.
var ErrRestartLimit = errors.New("restart limit reached")

// Config is everything the generated script has injected into it.
type Config struct {
	Name          string
	Pipeline      string
	VideoPlaylist []string
	AudioPlaylist []string
	Loop          bool
	Advance       ctlscript.AdvanceMode
	Restart       ctlscript.RestartPolicy

	// Sleep waits d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
}

// ConfigFromSession builds the Config the script generator would inject.
func ConfigFromSession(s *session.Session, opts ctlscript.Options) Config {
	return Config{
		Name:          s.Name,
		Pipeline:      gstpipeline.Generate(s, opts.Pipeline),
		VideoPlaylist: s.VideoPlaylist,
		AudioPlaylist: s.AudioPlaylist,
		Loop:          s.Loop,
		Advance:       opts.Advance,
		Restart:       opts.Restart,
	}
}

// Event is a notable runtime transition, reported to the OnEvent hook.
type Event struct {
	Time   time.Time
	State  State
	Kind   string // start, eos, error, restart, stop, finished, giveup, uri
	Detail string
}

// Stats counts what happened during Run.
type Stats struct {
	Starts   int
	Restarts int
	EOS      int
	Errors   int
}

// Runtime drives one session's pipeline. Run must be called at most once.
type Runtime struct {
	log    *zap.Logger
	cfg    Config
	engine Engine
	policy ctlscript.RestartPolicy

	video *playlist.Cursor
	audio *playlist.Cursor

	// OnEvent, when set, is called synchronously from Run's goroutine.
	OnEvent func(Event)

	stop     chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	state State
	stats Stats
	done  bool
}

// New returns a Runtime in NOT_STARTED.
func New(log *zap.Logger, engine Engine, cfg Config) *Runtime {
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Runtime{
		log:    log,
		cfg:    cfg,
		engine: engine,
		policy: cfg.Restart.Normalize(),
		video:  playlist.New(cfg.VideoPlaylist, cfg.Loop),
		audio:  playlist.New(cfg.AudioPlaylist, cfg.Loop),
		stop:   make(chan struct{}),
		state:  StateNotStarted,
	}
}

// State returns the current state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Stats returns a snapshot of the counters.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Stop ends Run. Safe to call from any goroutine, any number of times.
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

type outcome int

const (
	outcomeStopped outcome = iota
	outcomeRestart
	outcomeAdvance
	outcomeFinished
)

// Run starts the pipeline and blocks, restarting on EOS and errors, until ctx is done, Stop is called, a non-looping playlist
// runs out (reload mode) or the restart ceiling is hit.
func (r *Runtime) Run(ctx context.Context) error {
	var playingSince time.Time
	attempts := 0

	for {
		var out outcome
		pl, ok := r.launch()
		if ok {
			playingSince = r.cfg.Now()
			out = r.loop(ctx, pl)
		} else if r.finished() {
			out = outcomeFinished
		} else {
			playingSince = time.Time{}
			out = outcomeRestart
		}

		switch out {
		case outcomeStopped:
			return nil
		case outcomeFinished:
			r.setState(StateStopped)
			r.emit("finished", "playlist finished")
			return nil
		}

		// restart: stop → pause → start
		// EOS always pauses for the base delay; only failures back off.
		delay := r.policy.Delay
		if out == outcomeAdvance {
			attempts = 0
		} else {
			var playedFor time.Duration
			if !playingSince.IsZero() {
				playedFor = r.cfg.Now().Sub(playingSince)
			}
			if playedFor >= r.policy.StableAfter {
				attempts = 0
			}
			attempts++
			var allowed bool
			delay, allowed = r.policy.Backoff(attempts)
			if !allowed {
				r.setState(StateError)
				r.emit("giveup", fmt.Sprintf("restart limit of %d reached", r.policy.MaxAttempts))
				r.log.Error("restart limit reached", zap.Int("max_attempts", r.policy.MaxAttempts))
				return ErrRestartLimit
			}
		}

		r.mu.Lock()
		r.stats.Restarts++
		r.mu.Unlock()
		r.emit("restart", delay.String())
		r.log.Info("restarting", zap.Duration("delay", delay), zap.Int("attempt", attempts))

		sctx, cancel := r.stopContext(ctx)
		err := r.cfg.Sleep(sctx, delay)
		cancel()
		if err != nil {
			r.setState(StateStopped)
			r.emit("stop", "stopped during restart pause")
			return nil
		}
	}
}

// launch builds and plays a pipeline. It returns false when the pipeline
// could not be built or played, or when reload mode ran out of items.
func (r *Runtime) launch() (Pipeline, bool) {
	r.setState(StateNotStarted)
	r.log.Info("initializing session", zap.String("session", r.cfg.Name))

	pl, err := r.engine.Launch(r.cfg.Pipeline)
	if err != nil {
		r.setState(StateError)
		r.emit("error", err.Error())
		r.log.Error("failed to create pipeline", zap.Error(err))
		return nil, false
	}

	if r.cfg.Advance == ctlscript.AdvanceReload && !r.applyPlaylists(pl) {
		pl.Stop()
		r.markFinished()
		return nil, false
	}

	if err := pl.Play(); err != nil {
		pl.Stop()
		r.setState(StateError)
		r.emit("error", err.Error())
		r.log.Error("unable to set the pipeline to PLAYING", zap.Error(err))
		return nil, false
	}

	r.mu.Lock()
	r.stats.Starts++
	r.state = StatePlaying
	r.mu.Unlock()
	r.emit("start", "PLAYING")
	return pl, true
}

// applyPlaylists points each named source at its cursor's next item.
func (r *Runtime) applyPlaylists(pl Pipeline) bool {
	for _, src := range []struct {
		name   string
		cursor *playlist.Cursor
	}{
		{gstpipeline.VideoSourceName, r.video},
		{gstpipeline.AudioSourceName, r.audio},
	} {
		if src.cursor.Len() == 0 {
			continue
		}
		uri, ok := src.cursor.Peek()
		if !ok {
			return false
		}
		if !pl.SetURI(src.name, uri) {
			continue
		}
		src.cursor.Next()
		r.emit("uri", src.name+" -> "+uri)
	}
	return true
}

// loop consumes bus messages until a restart is needed or the runtime stops.
func (r *Runtime) loop(ctx context.Context, pl Pipeline) outcome {
	defer pl.Stop()

	msgs := pl.Messages()
	for {
		select {
		case <-ctx.Done():
			r.setState(StateStopped)
			r.emit("stop", "context done")
			return outcomeStopped
		case <-r.stop:
			r.setState(StateStopped)
			r.emit("stop", "stop requested")
			return outcomeStopped
		case m, ok := <-msgs:
			if !ok {
				r.setState(StateError)
				r.emit("error", "message stream closed")
				return outcomeRestart
			}
			switch m.Type {
			case MessageEOS:
				r.mu.Lock()
				r.stats.EOS++
				r.mu.Unlock()
				r.emit("eos", "switching to next playlist item")
				r.log.Info("received end-of-stream")
				r.setState(StateStopped)
				return outcomeAdvance
			case MessageError:
				r.mu.Lock()
				r.stats.Errors++
				r.mu.Unlock()
				detail := m.Source
				if m.Err != nil {
					detail = fmt.Sprintf("%s: %v", m.Source, m.Err)
				}
				r.setState(StateError)
				r.emit("error", detail)
				r.log.Error("pipeline error", zap.String("src", m.Source), zap.Error(m.Err))
				return outcomeRestart
			case MessageStateChanged:
				r.log.Debug("state change", zap.String("old", m.Old), zap.String("new", m.New))
			}
		}
	}
}

func (r *Runtime) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Runtime) emit(kind, detail string) {
	if r.OnEvent == nil {
		return
	}
	r.OnEvent(Event{Time: r.cfg.Now(), State: r.State(), Kind: kind, Detail: detail})
}

// finished reports whether a non-looping cursor ran dry in reload mode.
func (r *Runtime) finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *Runtime) markFinished() {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
}

// stopContext derives a context that is also cancelled by Stop.
func (r *Runtime) stopContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-r.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
