// Package sessionrt is the Go reference model of the runtime the generated
// control script implements. It drives an abstract Engine (no media) through
// the same state machine, playlist cursors and restart policy, so the
// script's behaviour can be tested and dry-run without GStreamer.
package sessionrt

import "fmt"

// MessageType mirrors the bus messages the script reacts to.
type MessageType int

const (
	MessageEOS MessageType = iota
	MessageError
	MessageStateChanged
)

func (t MessageType) String() string {
	switch t {
	case MessageEOS:
		return "EOS"
	case MessageError:
		return "ERROR"
	case MessageStateChanged:
		return "STATE_CHANGED"
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// Message is one bus message.
type Message struct {
	Type   MessageType
	Source string // element name
	Err    error  // MessageError only
	Old    string // MessageStateChanged only
	New    string
}

// Engine builds pipelines from a description.
type Engine interface {
	Launch(desc string) (Pipeline, error)
}

// Pipeline is a launched description.
type Pipeline interface {
	// SetURI sets the uri property of the named element. It reports false
	// when no such element exists.
	SetURI(element, uri string) bool
	// Play moves the pipeline to PLAYING.
	Play() error
	// Messages delivers bus messages until Stop is called.
	Messages() <-chan Message
	// Stop moves the pipeline to NULL. Calling it twice is harmless.
	Stop()
}
