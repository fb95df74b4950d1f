package repo

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
)

// MemorySessionStore is a process-local SessionStore. Sessions are kept in
// GetAll order (CreatedAt, then ID), so listing is a copy.
//
// Values are cloned on the way in and out; callers never share memory with
// the store.
type MemorySessionStore struct {
	log *zap.Logger

	mu sync.RWMutex // guards st
	st memoryState
}

type memoryState struct {
	byID map[string]*session.Session
	list []*session.Session // ascending (CreatedAt, ID)
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore constructs an empty store.
func NewMemorySessionStore(log *zap.Logger) *MemorySessionStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemorySessionStore{
		log: log.Named("memory-store"),
		st: memoryState{
			byID: make(map[string]*session.Session),
			list: make([]*session.Session, 0),
		},
	}
}

func sessionLess(a, b *session.Session) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Upsert implements SessionStore.
//
// Overwriting in place is O(1) when the sort key is unchanged; otherwise the
// entry is removed and reinserted at its sorted position.
func (m *MemorySessionStore) Upsert(_ context.Context, s *session.Session) error {
	v := s.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.st.byID[v.ID]; ok {
		if prev.CreatedAt.Equal(v.CreatedAt) {
			m.st.list[m.index(prev)] = v
			m.st.byID[v.ID] = v
			return nil
		}
		m.remove(prev)
	}

	// Append fast path: v sorts after the current tail.
	if n := len(m.st.list); n == 0 || sessionLess(m.st.list[n-1], v) {
		m.st.list = append(m.st.list, v)
		m.st.byID[v.ID] = v
		return nil
	}

	// General insert: keep order via binary search.
	i := sort.Search(len(m.st.list), func(i int) bool { return !sessionLess(m.st.list[i], v) })
	m.st.list = append(m.st.list, nil)
	copy(m.st.list[i+1:], m.st.list[i:])
	m.st.list[i] = v
	m.st.byID[v.ID] = v
	return nil
}

// GetByID implements SessionStore.
func (m *MemorySessionStore) GetByID(_ context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.st.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return v.Clone(), nil
}

// GetAll implements SessionStore.
func (m *MemorySessionStore) GetAll(_ context.Context) ([]*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*session.Session, len(m.st.list))
	for i, v := range m.st.list {
		out[i] = v.Clone()
	}
	return out, nil
}

// Delete implements SessionStore.
func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.st.byID[id]
	if !ok {
		return ErrSessionNotFound
	}
	m.remove(v)
	return nil
}

// Count implements SessionStore.
func (m *MemorySessionStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.st.byID)), nil
}

// index returns v's position in list. Caller holds mu.
func (m *MemorySessionStore) index(v *session.Session) int {
	return sort.Search(len(m.st.list), func(i int) bool { return !sessionLess(m.st.list[i], v) })
}

// remove drops v from both indexes. Caller holds mu for writing.
func (m *MemorySessionStore) remove(v *session.Session) {
	i := m.index(v)
	copy(m.st.list[i:], m.st.list[i+1:])
	m.st.list[len(m.st.list)-1] = nil
	m.st.list = m.st.list[:len(m.st.list)-1]
	delete(m.st.byID, v.ID)
}
