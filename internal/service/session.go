package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/internal/metrics"
	"github.com/edirooss/gst-architect/internal/repo"
)

var (
	// ErrInvalid wraps session validation failures.
	ErrInvalid = errors.New("invalid session")
	// ErrLastSession is returned when deleting would leave no session.
	ErrLastSession = errors.New("cannot delete the last session")
	// ErrDestinationNotFound is returned for an unknown destination ID.
	ErrDestinationNotFound = errors.New("destination not found")
)

// -----------------------------------------------------------------------------
// SessionService
// -----------------------------------------------------------------------------
//
// Runtime model
//   • Single process, many concurrent requests.
//   • Mutations for the SAME session ID are serialized via a per-ID gate;
//     a concurrent mutation fails fast with ErrLocked.
//   • Reads (Get/List) are lock-free.
//   • Deletes are serialized globally so the last-session rule holds.
//
// Revisions
//   • Create starts at revision 1; every persisted update bumps it by one.
//   • Each persisted change notifies subscribers of that ID.

// SessionService owns the session lifecycle on top of a SessionStore.
type SessionService struct {
	log  *zap.Logger
	repo repo.SessionStore
	now  func() time.Time

	gates    gates
	deleteMu sync.Mutex
	hub      *hub
}

// NewSessionService wires a service onto store.
func NewSessionService(log *zap.Logger, store repo.SessionStore) *SessionService {
	return &SessionService{
		log:  log.Named("session_service"),
		repo: store,
		now:  func() time.Time { return time.Now().UTC() },
		hub:  newHub(),
	}
}

// Bootstrap seeds the default session when the store is empty, so there is
// always at least one session to edit.
func (s *SessionService) Bootstrap(ctx context.Context) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	if n > 0 {
		return nil
	}
	def := session.Default()
	if err := s.Create(ctx, def); err != nil {
		return fmt.Errorf("seed default session: %w", err)
	}
	s.log.Info("seeded default session", zap.String("session_id", def.ID), zap.String("name", def.Name))
	return nil
}

// Create assigns identity and persists a new session.
func (s *SessionService) Create(ctx context.Context, sess *session.Session) (err error) {
	defer func() { metrics.RecordMutation("create", err) }()

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	if sess.Status == "" {
		sess.Status = session.StatusIdle
	}
	sess.Revision = 1

	if err := validate(sess); err != nil {
		return err
	}

	unlock := s.gates.lock(sess.ID)
	defer unlock()

	if err := s.repo.Upsert(ctx, sess); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	s.hub.notify(sess.ID)
	return nil
}

// Get returns a single session by ID (read-only).
func (s *SessionService) Get(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	return sess, nil
}

// List returns all sessions ordered by creation (read-only).
func (s *SessionService) List(ctx context.Context) ([]*session.Session, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all: %w", err)
	}
	return all, nil
}

// Replace overwrites the editable fields of an existing session. ID and
// creation time are kept; an empty status keeps the current one.
func (s *SessionService) Replace(ctx context.Context, sess *session.Session) error {
	_, err := s.update(ctx, "replace", sess.ID, true, func(cur *session.Session) error {
		status := sess.Status
		if status == "" {
			status = cur.Status
		}
		*cur = *sess.Clone()
		cur.Status = status
		return nil
	})
	return err
}

// Modify applies fn to a copy of the current session and persists the result.
func (s *SessionService) Modify(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	return s.update(ctx, "modify", id, true, fn)
}

// AddDestination appends d, assigning an ID when it has none.
func (s *SessionService) AddDestination(ctx context.Context, id string, d session.Destination) (*session.Session, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return s.update(ctx, "add_destination", id, true, func(cur *session.Session) error {
		cur.Destinations = append(cur.Destinations, d)
		return nil
	})
}

// RemoveDestination drops the destination with destID.
func (s *SessionService) RemoveDestination(ctx context.Context, id, destID string) (*session.Session, error) {
	return s.update(ctx, "remove_destination", id, true, func(cur *session.Session) error {
		for i, d := range cur.Destinations {
			if d.ID == destID {
				cur.Destinations = append(cur.Destinations[:i], cur.Destinations[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("destination %s: %w", destID, ErrDestinationNotFound)
	})
}

// SetStatus persists a new UI status. Status is not a generator input, so the
// rest of the session is not revalidated.
func (s *SessionService) SetStatus(ctx context.Context, id string, status session.Status) (*session.Session, error) {
	return s.update(ctx, "set_status", id, false, func(cur *session.Session) error {
		cur.Status = status
		return nil
	})
}

// Delete removes a session unless it is the last one.
func (s *SessionService) Delete(ctx context.Context, id string) (err error) {
	defer func() { metrics.RecordMutation("delete", err) }()

	unlock, err := s.gates.tryLock(id)
	if err != nil {
		return fmt.Errorf("try lock: %w", err)
	}
	defer unlock()

	s.deleteMu.Lock()
	defer s.deleteMu.Unlock()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		s.forgetMissing(id, err)
		return fmt.Errorf("get: %w", err)
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	if n <= 1 {
		return ErrLastSession
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	s.hub.close(id)
	s.gates.forget(id)
	return nil
}

// Subscribe returns a channel notified after each persisted change of id.
// The channel is closed when the session is deleted or cancel is called.
func (s *SessionService) Subscribe(id string) (<-chan struct{}, func()) {
	return s.hub.subscribe(id)
}

// update is the shared read-modify-write path for existing sessions.
func (s *SessionService) update(ctx context.Context, op, id string, check bool, fn func(*session.Session) error) (out *session.Session, err error) {
	defer func() { metrics.RecordMutation(op, err) }()

	unlock, err := s.gates.tryLock(id)
	if err != nil {
		return nil, fmt.Errorf("try lock: %w", err)
	}
	defer unlock()

	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.forgetMissing(id, err)
		return nil, fmt.Errorf("get: %w", err)
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	next.Revision = cur.Revision + 1

	if check {
		if err := validate(next); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Upsert(ctx, next); err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}

	s.hub.notify(id)
	return next, nil
}

// forgetMissing drops the gate created for an ID that has no session.
func (s *SessionService) forgetMissing(id string, err error) {
	if errors.Is(err, repo.ErrSessionNotFound) {
		s.gates.forget(id)
	}
}

func validate(sess *session.Session) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
