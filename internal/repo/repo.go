// Package repo persists sessions. Redis is the default store; Postgres is
// available for deployments that already run one.
package repo

import (
	"context"
	"errors"

	"github.com/edirooss/gst-architect/internal/domain/session"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore is the persistence contract the services depend on.
type SessionStore interface {
	// Upsert persists s, replacing any previous value with the same ID.
	Upsert(ctx context.Context, s *session.Session) error
	// GetByID returns ErrSessionNotFound if the ID is unknown.
	GetByID(ctx context.Context, id string) (*session.Session, error)
	// GetAll returns every session ordered by creation time, then ID.
	GetAll(ctx context.Context) ([]*session.Session, error)
	// Delete returns ErrSessionNotFound if the ID is unknown.
	Delete(ctx context.Context, id string) error
	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int64, error)
}
