package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/internal/http/dto"
	"github.com/edirooss/gst-architect/internal/service"
	"github.com/edirooss/gst-architect/pkg/jsonx"
)

// SessionsHandler provides RESTful HTTP handlers for Session resources.
//
// Supported operations:
//   - GET    /sessions                          → List all sessions
//   - POST   /sessions                          → Create a new session
//   - GET    /sessions/{id}                     → Retrieve a session by ID
//   - PUT    /sessions/{id}                     → Replace a session (full update)
//   - PATCH  /sessions/{id}                     → Modify a session (partial update)
//   - DELETE /sessions/{id}                     → Remove a session (never the last one)
//   - POST   /sessions/{id}/destinations        → Append a destination
//   - DELETE /sessions/{id}/destinations/{dest} → Remove a destination
type SessionsHandler struct {
	log     *zap.Logger
	svc     *service.SessionService
	monitor *service.MonitorService
}

// NewSessionsHandler constructs a SessionsHandler instance.
func NewSessionsHandler(log *zap.Logger, svc *service.SessionService, monitor *service.MonitorService) *SessionsHandler {
	return &SessionsHandler{
		log:     log.Named("sessions"),
		svc:     svc,
		monitor: monitor,
	}
}

// GetSessionList handles GET /sessions.
//
// Status Codes:
//   - 200 OK  → JSON array of sessions, `X-Total-Count` header
//   - 500 Internal Server Error
func (h *SessionsHandler) GetSessionList(c *gin.Context) {
	all, err := h.svc.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if all == nil {
		all = []*session.Session{}
	}
	c.Header("X-Total-Count", strconv.Itoa(len(all)))
	c.JSON(http.StatusOK, all)
}

// CreateSession handles POST /sessions.
//
// Status Codes:
//   - 201 Created → JSON of created session, `Location` header
//   - 400 Bad Request → Invalid JSON or schema
//   - 422 Unprocessable Entity → Validation failed
//   - 500 Internal Server Error
func (h *SessionsHandler) CreateSession(c *gin.Context) {
	var req dto.SessionCreate
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := req.ToSession()
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.Create(c.Request.Context(), s); err != nil {
		fail(c, err)
		return
	}

	c.Header("Location", "/api/sessions/"+s.ID)
	c.JSON(http.StatusCreated, s)
}

// GetSession handles GET /sessions/{id}.
//
// Status Codes:
//   - 200 OK → JSON of session
//   - 404 Not Found
//   - 500 Internal Server Error
func (h *SessionsHandler) GetSession(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ReplaceSession handles PUT /sessions/{id}.
//
// Status Codes:
//   - 200 OK → JSON of updated session
//   - 400 Bad Request → Invalid payload
//   - 404 Not Found
//   - 422 Unprocessable Entity → Validation failed
//   - 423 Locked → Concurrent mutation in flight
//   - 500 Internal Server Error
func (h *SessionsHandler) ReplaceSession(c *gin.Context) {
	var req dto.SessionCreate
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := req.ToSession()
	if err != nil {
		badRequest(c, err)
		return
	}
	s.ID = c.Param("id")

	if err := h.svc.Replace(c.Request.Context(), s); err != nil {
		fail(c, err)
		return
	}
	h.GetSession(c)
}

// ModifySession handles PATCH /sessions/{id}.
//
// Status Codes:
//   - 200 OK → JSON of updated session
//   - 400 Bad Request → Invalid payload
//   - 404 Not Found
//   - 422 Unprocessable Entity → Validation failed
//   - 423 Locked → Concurrent mutation in flight
//   - 500 Internal Server Error
func (h *SessionsHandler) ModifySession(c *gin.Context) {
	var req dto.SessionModify
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		badRequest(c, err)
		return
	}

	var patchErr error
	s, err := h.svc.Modify(c.Request.Context(), c.Param("id"), func(cur *session.Session) error {
		patchErr = req.MergePatch(cur)
		return patchErr
	})
	if patchErr != nil {
		badRequest(c, patchErr)
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// DeleteSession handles DELETE /sessions/{id}.
//
// Status Codes:
//   - 200 OK → JSON { "id": deletedID }
//   - 404 Not Found
//   - 409 Conflict → Last remaining session
//   - 423 Locked → Concurrent mutation in flight
//   - 500 Internal Server Error
func (h *SessionsHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.monitor.Forget(id)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// AddDestination handles POST /sessions/{id}/destinations.
//
// Status Codes:
//   - 201 Created → JSON of updated session
//   - 400 Bad Request → Invalid payload
//   - 404 Not Found
//   - 422 Unprocessable Entity → Validation failed
//   - 500 Internal Server Error
func (h *SessionsHandler) AddDestination(c *gin.Context) {
	var req dto.DestinationCreate
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		badRequest(c, err)
		return
	}
	d, err := req.ToDestination()
	if err != nil {
		badRequest(c, err)
		return
	}

	s, err := h.svc.AddDestination(c.Request.Context(), c.Param("id"), d)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// RemoveDestination handles DELETE /sessions/{id}/destinations/{destID}.
//
// Status Codes:
//   - 200 OK → JSON of updated session
//   - 404 Not Found → Session or destination not found
//   - 500 Internal Server Error
func (h *SessionsHandler) RemoveDestination(c *gin.Context) {
	s, err := h.svc.RemoveDestination(c.Request.Context(), c.Param("id"), c.Param("destID"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
