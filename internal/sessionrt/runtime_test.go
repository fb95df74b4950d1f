package sessionrt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// step is what one launched pipeline does once playing.
type step struct {
	launchErr error
	playFor   time.Duration
	msg       *Message // nil: wait for Stop
}

type fakeEngine struct {
	clock *fakeClock
	steps []step
	stop  func()

	mu   sync.Mutex
	n    int
	uris []string
}

func (e *fakeEngine) Launch(desc string) (Pipeline, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.n >= len(e.steps) {
		e.stop()
		return &fakePipeline{engine: e, msgs: make(chan Message, 1)}, nil
	}
	st := e.steps[e.n]
	e.n++
	if st.launchErr != nil {
		return nil, st.launchErr
	}
	return &fakePipeline{engine: e, step: st, msgs: make(chan Message, 1)}, nil
}

type fakePipeline struct {
	engine *fakeEngine
	step   step
	msgs   chan Message
}

func (p *fakePipeline) SetURI(element, uri string) bool {
	if element != "vsrc" {
		return false
	}
	p.engine.mu.Lock()
	p.engine.uris = append(p.engine.uris, uri)
	p.engine.mu.Unlock()
	return true
}

func (p *fakePipeline) Play() error {
	p.engine.clock.Advance(p.step.playFor)
	if p.step.msg != nil {
		p.msgs <- *p.step.msg
	}
	return nil
}

func (p *fakePipeline) Messages() <-chan Message { return p.msgs }
func (p *fakePipeline) Stop()                    {}

var (
	eos    = &Message{Type: MessageEOS, Source: "pipeline"}
	failed = &Message{Type: MessageError, Source: "rtmp2sink0", Err: errors.New("connection refused")}
)

func newRuntime(t *testing.T, cfg Config, steps ...step) (*Runtime, *fakeEngine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(0, 0)}
	cfg.Now = clock.Now
	cfg.Sleep = clock.Sleep
	if cfg.Pipeline == "" {
		cfg.Pipeline = `uridecodebin name=vsrc uri="x" ! fakesink`
	}
	eng := &fakeEngine{clock: clock, steps: steps}
	rt := New(zap.NewNop(), eng, cfg)
	eng.stop = rt.Stop
	return rt, eng, clock
}

func TestRun_RestartModeKeepsStaticSource(t *testing.T) {
	rt, eng, clock := newRuntime(t, Config{VideoPlaylist: []string{"a", "b"}, Loop: true},
		step{playFor: time.Minute, msg: eos},
		step{playFor: time.Minute, msg: eos},
	)

	require.NoError(t, rt.Run(context.Background()))

	assert.Empty(t, eng.uris)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.sleeps)
	st := rt.Stats()
	assert.Equal(t, 3, st.Starts)
	assert.Equal(t, 2, st.EOS)
	assert.Equal(t, 2, st.Restarts)
	assert.Equal(t, StateStopped, rt.State())
}

func TestRun_ReloadLoopWraps(t *testing.T) {
	rt, eng, _ := newRuntime(t, Config{
		VideoPlaylist: []string{"a", "b"},
		Loop:          true,
		Advance:       ctlscript.AdvanceReload,
	},
		step{playFor: time.Minute, msg: eos},
		step{playFor: time.Minute, msg: eos},
	)

	require.NoError(t, rt.Run(context.Background()))
	assert.Equal(t, []string{"a", "b", "a"}, eng.uris)
}

func TestRun_ReloadNoLoopFinishes(t *testing.T) {
	rt, eng, _ := newRuntime(t, Config{
		VideoPlaylist: []string{"a", "b"},
		Loop:          false,
		Advance:       ctlscript.AdvanceReload,
	},
		step{playFor: time.Minute, msg: eos},
		step{playFor: time.Minute, msg: eos},
		step{playFor: time.Minute, msg: eos},
	)

	var kinds []string
	rt.OnEvent = func(e Event) { kinds = append(kinds, e.Kind) }

	require.NoError(t, rt.Run(context.Background()))
	assert.Equal(t, []string{"a", "b"}, eng.uris)
	assert.Equal(t, 2, rt.Stats().Starts)
	assert.Equal(t, StateStopped, rt.State())
	assert.Equal(t, "finished", kinds[len(kinds)-1])
}

func TestRun_BackoffAndCeiling(t *testing.T) {
	rt, _, clock := newRuntime(t, Config{Restart: ctlscript.RestartPolicy{MaxAttempts: 3}},
		step{msg: failed},
		step{msg: failed},
		step{msg: failed},
		step{msg: failed},
	)

	err := rt.Run(context.Background())
	require.ErrorIs(t, err, ErrRestartLimit)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, clock.sleeps)
	assert.Equal(t, 4, rt.Stats().Errors)
	assert.Equal(t, StateError, rt.State())
}

func TestRun_StablePlayResetsBackoff(t *testing.T) {
	rt, _, clock := newRuntime(t, Config{Restart: ctlscript.RestartPolicy{MaxAttempts: 1}},
		step{playFor: time.Minute, msg: failed},
		step{playFor: time.Minute, msg: failed},
		step{playFor: time.Minute, msg: failed},
	)

	require.NoError(t, rt.Run(context.Background()))
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, clock.sleeps)
}

func TestRun_ShortItemsAdvanceWithoutBackoff(t *testing.T) {
	var steps []step
	for range 6 {
		steps = append(steps, step{playFor: 5 * time.Second, msg: eos})
	}
	rt, _, clock := newRuntime(t, ConfigFromSession(session.New("x"), ctlscript.Options{}), steps...)

	require.NoError(t, rt.Run(context.Background()))
	assert.Equal(t, []time.Duration{
		time.Second, time.Second, time.Second, time.Second, time.Second, time.Second,
	}, clock.sleeps)
	assert.Equal(t, 6, rt.Stats().Restarts)
}

func TestRun_EOSResetsFailureBackoff(t *testing.T) {
	rt, _, clock := newRuntime(t, Config{Restart: ctlscript.RestartPolicy{MaxAttempts: 2}},
		step{msg: failed},
		step{msg: failed},
		step{playFor: time.Second, msg: eos},
		step{msg: failed},
		step{msg: failed},
		step{msg: failed},
	)

	err := rt.Run(context.Background())
	require.ErrorIs(t, err, ErrRestartLimit)
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, time.Second, time.Second, 2 * time.Second,
	}, clock.sleeps)
}

func TestRun_LaunchErrorRestarts(t *testing.T) {
	rt, _, clock := newRuntime(t, Config{},
		step{launchErr: errors.New("no element \"rtmp2sink\"")},
		step{playFor: time.Minute, msg: eos},
	)

	require.NoError(t, rt.Run(context.Background()))
	assert.Len(t, clock.sleeps, 2)
	assert.Equal(t, 2, rt.Stats().Starts)
}

func TestRun_ContextCancel(t *testing.T) {
	rt, _, _ := newRuntime(t, Config{}, step{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	require.Eventually(t, func() bool { return rt.State() == StatePlaying }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateStopped, rt.State())
}

func TestStop_Idempotent(t *testing.T) {
	rt, _, _ := newRuntime(t, Config{})
	rt.Stop()
	rt.Stop()
	require.NoError(t, rt.Run(context.Background()))
	assert.Equal(t, StateStopped, rt.State())
}

func TestSimEngine(t *testing.T) {
	s := session.New("sim")
	s.VideoSource = session.SourceNetwork
	s.VideoPlaylist = []string{"file:///a.mp4", "file:///b.mp4"}
	s.Loop = false

	cfg := ConfigFromSession(s, ctlscript.Options{Advance: ctlscript.AdvanceReload})
	cfg.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	eng := &SimEngine{ItemDuration: time.Millisecond}
	rt := New(zap.NewNop(), eng, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Run(ctx))
	assert.Equal(t, 3, eng.Launches())
	assert.Equal(t, 2, rt.Stats().EOS)
}
