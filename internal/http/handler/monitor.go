package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/infrastructure/eventlog"
	"github.com/edirooss/gst-architect/internal/service"
)

const defaultLogLines = 100

// MonitorHandler exposes the preview monitor.
//
// Supported operations:
//   - POST /sessions/{id}/start → status running, event log lines
//   - POST /sessions/{id}/stop  → status stopped
//   - GET  /sessions/{id}/logs  → newest-first event lines (?lines=N)
type MonitorHandler struct {
	log *zap.Logger
	svc *service.MonitorService
}

// NewMonitorHandler constructs a MonitorHandler.
func NewMonitorHandler(log *zap.Logger, svc *service.MonitorService) *MonitorHandler {
	return &MonitorHandler{log: log.Named("monitor"), svc: svc}
}

// Start handles POST /sessions/{id}/start.
func (h *MonitorHandler) Start(c *gin.Context) {
	s, err := h.svc.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// Stop handles POST /sessions/{id}/stop.
func (h *MonitorHandler) Stop(c *gin.Context) {
	s, err := h.svc.Stop(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetLogs handles GET /sessions/{id}/logs.
//
// Status Codes:
//   - 200 OK → JSON array of lines, `X-Total-Count` header
//   - 400 Bad Request → lines is not a positive integer
//   - 404 Not Found
func (h *MonitorHandler) GetLogs(c *gin.Context) {
	n := defaultLogLines
	if raw := c.Query("lines"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badRequest(c, errors.New("lines must be a positive integer"))
			return
		}
		n = min(v, eventlog.Capacity)
	}

	lines, err := h.svc.Logs(c.Request.Context(), c.Param("id"), n)
	if err != nil {
		fail(c, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	c.Header("X-Total-Count", strconv.Itoa(len(lines)))
	c.JSON(http.StatusOK, lines)
}

func itoa64(v int64) string { return strconv.FormatInt(v, 10) }
