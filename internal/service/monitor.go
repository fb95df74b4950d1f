package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/internal/infrastructure/eventlog"
	"github.com/edirooss/gst-architect/internal/metrics"
)

// MonitorService drives the preview status of a session. It never runs
// media: start and stop only move the status and write the event log.
type MonitorService struct {
	log      *zap.Logger
	sessions *SessionService
	events   *eventlog.Manager
}

// NewMonitorService creates a MonitorService.
func NewMonitorService(log *zap.Logger, sessions *SessionService, events *eventlog.Manager) *MonitorService {
	return &MonitorService{
		log:      log.Named("monitor"),
		sessions: sessions,
		events:   events,
	}
}

// Start marks id running. A session that fails validation is marked error.
func (m *MonitorService) Start(ctx context.Context, id string) (*session.Session, error) {
	cur, err := m.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.events.Logf(id, eventlog.Info, "Initializing GStreamer Pipeline...")

	status := session.StatusRunning
	if verr := cur.Validate(); verr != nil {
		m.events.Logf(id, eventlog.Error, "Invalid configuration: %v", verr)
		status = session.StatusError
	} else {
		m.events.Logf(id, eventlog.Info, "Encoder: %s starting...", cur.Encoder)
		if n := len(cur.ActiveDestinations()); n == 0 {
			m.events.Logf(id, eventlog.Warn, "No active destinations.")
		}
	}

	sess, err := m.setStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	m.log.Info("monitor started", zap.String("session_id", id), zap.String("status", string(status)))
	return sess, nil
}

// Stop marks id stopped.
func (m *MonitorService) Stop(ctx context.Context, id string) (*session.Session, error) {
	sess, err := m.setStatus(ctx, id, session.StatusStopped)
	if err != nil {
		return nil, err
	}
	m.events.Logf(id, eventlog.Warn, "Stream stopped.")
	m.log.Info("monitor stopped", zap.String("session_id", id))
	return sess, nil
}

// Logs returns up to n event lines for id, newest first.
func (m *MonitorService) Logs(ctx context.Context, id string, n int) ([]string, error) {
	if _, err := m.sessions.Get(ctx, id); err != nil {
		return nil, err
	}
	return m.events.Read(id, n), nil
}

// Forget drops the event log of a deleted session.
func (m *MonitorService) Forget(id string) {
	m.events.Drop(id)
}

func (m *MonitorService) setStatus(ctx context.Context, id string, status session.Status) (*session.Session, error) {
	sess, err := m.sessions.SetStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	m.refreshRunning(ctx)
	return sess, nil
}

func (m *MonitorService) refreshRunning(ctx context.Context) {
	all, err := m.sessions.List(ctx)
	if err != nil {
		m.log.Warn("list sessions failed", zap.Error(err))
		return
	}
	n := 0
	for _, s := range all {
		if s.Status == session.StatusRunning {
			n++
		}
	}
	metrics.SetRunning(n)
}
