package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/service"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

// ArtifactsHandler serves generated artifacts. Every request renders from the
// stored session; nothing is cached.
//
// Supported operations:
//   - GET /sessions/{id}/pipeline → text/plain pipeline description
//   - GET /sessions/{id}/script   → text/x-python control script
//   - GET /sessions/{id}/unit     → text/plain systemd unit (?script_dir=&user=)
//   - GET /sessions/{id}/lint     → JSON {"warnings": [...]}
//   - GET /sessions/{id}/watch    → websocket of {revision, pipeline, script} per change
type ArtifactsHandler struct {
	log      *zap.Logger
	svc      *service.ArtifactService
	upgrader websocket.Upgrader
}

// NewArtifactsHandler constructs an ArtifactsHandler. checkOrigin may be nil
// to accept only same-origin websocket upgrades.
func NewArtifactsHandler(log *zap.Logger, svc *service.ArtifactService, checkOrigin func(*http.Request) bool) *ArtifactsHandler {
	return &ArtifactsHandler{
		log:      log.Named("artifacts"),
		svc:      svc,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// GetPipeline handles GET /sessions/{id}/pipeline.
func (h *ArtifactsHandler) GetPipeline(c *gin.Context) {
	art, err := h.svc.Render(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("X-Session-Revision", itoa64(art.Revision))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(art.Pipeline))
}

// GetScript handles GET /sessions/{id}/script.
func (h *ArtifactsHandler) GetScript(c *gin.Context) {
	art, err := h.svc.Render(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("X-Session-Revision", itoa64(art.Revision))
	c.Header("Content-Disposition", `inline; filename="`+art.ScriptFile+`"`)
	c.Data(http.StatusOK, "text/x-python; charset=utf-8", []byte(art.Script))
}

// GetUnit handles GET /sessions/{id}/unit.
//
// Status Codes:
//   - 200 OK → unit text
//   - 422 Unprocessable Entity → Unusable script_dir or user
//   - 404 Not Found
func (h *ArtifactsHandler) GetUnit(c *gin.Context) {
	text, name, err := h.svc.Unit(c.Request.Context(), c.Param("id"), c.Query("script_dir"), c.Query("user"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

// GetLint handles GET /sessions/{id}/lint.
func (h *ArtifactsHandler) GetLint(c *gin.Context) {
	warns, err := h.svc.Lint(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if warns == nil {
		warns = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"warnings": warns})
}

// Watch handles GET /sessions/{id}/watch. The first message is the current
// revision; one message follows per persisted change. The socket closes when
// the session is deleted.
func (h *ArtifactsHandler) Watch(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := h.svc.Watch(ctx, id)
	if err != nil {
		cancel()
		fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		_ = c.Error(err)
		return
	}
	log := h.log.With(zap.String("session_id", id))
	log.Debug("watch opened")

	go h.readPump(conn, cancel)
	h.writePump(conn, stream, cancel)
	log.Debug("watch closed")
}

// readPump discards client messages and cancels the stream once the peer
// goes away.
func (h *ArtifactsHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("watch read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *ArtifactsHandler) writePump(conn *websocket.Conn, stream <-chan *service.Artifacts, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()

	for {
		select {
		case art, ok := <-stream:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(art); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
