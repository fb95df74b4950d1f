package sessionrt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SimEngine is an Engine without media. Each launched pipeline emits EOS
// after ItemDuration, or an error when FailEvery divides the launch number.
// It is what `gst-architect simulate` runs against.
type SimEngine struct {
	ItemDuration time.Duration
	FailEvery    int // 0 never fails

	mu       sync.Mutex
	launches int
}

// Launches returns the number of Launch calls so far.
func (e *SimEngine) Launches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.launches
}

// Launch implements Engine.
func (e *SimEngine) Launch(desc string) (Pipeline, error) {
	if strings.TrimSpace(desc) == "" {
		return nil, errors.New("empty pipeline description")
	}
	e.mu.Lock()
	e.launches++
	n := e.launches
	e.mu.Unlock()

	p := &simPipeline{
		desc:     desc,
		duration: e.ItemDuration,
		fail:     e.FailEvery > 0 && n%e.FailEvery == 0,
		msgs:     make(chan Message, 4),
		done:     make(chan struct{}),
		uris:     make(map[string]string),
	}
	return p, nil
}

type simPipeline struct {
	desc     string
	duration time.Duration
	fail     bool

	msgs     chan Message
	done     chan struct{}
	stopOnce sync.Once

	mu   sync.Mutex
	uris map[string]string
}

func (p *simPipeline) SetURI(element, uri string) bool {
	if !strings.Contains(p.desc, "name="+element+" ") && !strings.HasSuffix(p.desc, "name="+element) {
		return false
	}
	p.mu.Lock()
	p.uris[element] = uri
	p.mu.Unlock()
	return true
}

func (p *simPipeline) Play() error {
	p.msgs <- Message{Type: MessageStateChanged, Source: "pipeline", Old: "READY", New: "PLAYING"}
	go func() {
		t := time.NewTimer(p.duration)
		defer t.Stop()
		select {
		case <-t.C:
		case <-p.done:
			return
		}
		m := Message{Type: MessageEOS, Source: "pipeline"}
		if p.fail {
			m = Message{Type: MessageError, Source: "rtmp2sink0", Err: fmt.Errorf("simulated failure")}
		}
		select {
		case p.msgs <- m:
		case <-p.done:
		}
	}()
	return nil
}

func (p *simPipeline) Messages() <-chan Message { return p.msgs }

func (p *simPipeline) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}
