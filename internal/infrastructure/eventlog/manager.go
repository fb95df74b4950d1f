// Package eventlog keeps a bounded, in-memory event log per session for the
// preview monitor. Lines look like "[15:04:05] INFO: message".
package eventlog

import (
	"fmt"
	"sync"
	"time"
)

// Level is the severity shown in a line.
type Level string

const (
	Info  Level = "INFO"
	Warn  Level = "WARN"
	Error Level = "ERROR"
)

// Manager manages per-session buffers.
//   - Creates buffers lazily
//   - Thread-safe access
type Manager struct {
	now func() time.Time

	mu   sync.RWMutex       // guards bufs
	bufs map[string]*Buffer // session ID → buffer
}

// NewManager initializes an empty buffer registry.
func NewManager() *Manager {
	return &Manager{
		now:  time.Now,
		bufs: make(map[string]*Buffer),
	}
}

// Get returns the buffer for a session, creating it if missing.
func (m *Manager) Get(id string) *Buffer {
	m.mu.RLock()
	buf, ok := m.bufs[id]
	m.mu.RUnlock()
	if ok {
		return buf
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if buf, ok := m.bufs[id]; ok {
		return buf
	}
	buf = new(Buffer)
	m.bufs[id] = buf
	return buf
}

// Logf appends a formatted line to the session's buffer.
func (m *Manager) Logf(id string, level Level, format string, args ...any) {
	line := fmt.Sprintf("[%s] %s: %s", m.now().Format("15:04:05"), level, fmt.Sprintf(format, args...))
	m.Get(id).Append(line)
}

// Read returns up to n lines for a session, newest first.
func (m *Manager) Read(id string, n int) []string {
	m.mu.RLock()
	buf, ok := m.bufs[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return buf.Read(n)
}

// Drop forgets a session's buffer.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	delete(m.bufs, id)
	m.mu.Unlock()
}
