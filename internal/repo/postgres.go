package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
)

// PostgresConfig configures the Postgres session store.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConnections  int32         `yaml:"max_connections"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ApplicationName string        `yaml:"application_name"`
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS gst_sessions (
	id         TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// PostgresSessionRepository stores each session as a JSONB document.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// NewPostgresSessionRepository opens a pool and ensures the table exists.
func NewPostgresSessionRepository(ctx context.Context, log *zap.Logger, cfg PostgresConfig) (*PostgresSessionRepository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresSessionRepository{pool: pool, log: log.Named("postgres")}, nil
}

// Close waits for the pool to drain or ctx to expire.
func (r *PostgresSessionRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *PostgresSessionRepository) Upsert(ctx context.Context, s *session.Session) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO gst_sessions (id, doc, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`,
		s.ID, doc, s.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM gst_sessions WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	s, err := decodeSession(doc)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionRepository) GetAll(ctx context.Context) ([]*session.Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT doc FROM gst_sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s, err := decodeSession(doc)
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM gst_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *PostgresSessionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM gst_sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
