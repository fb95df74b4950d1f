package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
)

const (
	sessionKeyPrefix = "gst:session:"
	sessionIDsKey    = "gst:sessions" // SET of session IDs
)

func sessionKey(id string) string { return sessionKeyPrefix + id }

// SessionRepository provides Redis-backed persistence for sessions: one JSON
// value per session plus an index SET of IDs.
type SessionRepository struct {
	client *RedisClient
	log    *zap.Logger
}

// NewSessionRepository initializes a new SessionRepository instance.
func NewSessionRepository(log *zap.Logger, client *RedisClient) *SessionRepository {
	return &SessionRepository{
		log:    log.Named("sessions"),
		client: client,
	}
}

// Upsert persists a session and adds its ID to the index set.
func (r *SessionRepository) Upsert(ctx context.Context, s *session.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(s.ID), payload, 0)
	pipe.SAdd(ctx, sessionIDsKey, s.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// GetByID fetches a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	value, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	s, err := decodeSession(value)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return s, nil
}

// GetAll returns all sessions ordered by creation time.
func (r *SessionRepository) GetAll(ctx context.Context) ([]*session.Session, error) {
	ids, err := r.client.SMembers(ctx, sessionIDsKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("set members: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}

	out, err := r.parseMGetValues(keys, vals)
	if err != nil {
		return nil, err
	}
	sortSessions(out)
	return out, nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, sessionIDsKey, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if del.Val() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Count returns the size of the index set.
func (r *SessionRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.client.SCard(ctx, sessionIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("set card: %w", err)
	}
	return n, nil
}

func decodeSession(raw []byte) (*session.Session, error) {
	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// parseMGetValues converts MGET results to sessions. An indexed ID without a
// value is logged and skipped.
func (r *SessionRepository) parseMGetValues(keys []string, vals []interface{}) ([]*session.Session, error) {
	out := make([]*session.Session, 0, len(vals))

	for i, v := range vals {
		if v == nil {
			r.log.Warn("indexed session has no value", zap.String("key", keys[i]))
			continue
		}

		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("key %s at index %d: unexpected type (got %T, want string)", keys[i], i, v)
		}
		s, err := decodeSession([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("key %s at index %d: decode session: %w", keys[i], i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func sortSessions(ss []*session.Session) {
	sort.SliceStable(ss, func(i, j int) bool { return sessionLess(ss[i], ss[j]) })
}
