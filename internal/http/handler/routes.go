package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/edirooss/gst-architect/internal/http/middleware"
)

// Handlers groups the route handlers.
type Handlers struct {
	Sessions  *SessionsHandler
	Artifacts *ArtifactsHandler
	Monitor   *MonitorHandler
}

// maxConcurrentRenders bounds in-flight artifact renders.
const maxConcurrentRenders = 64

// Register mounts the API under /api.
func Register(r gin.IRouter, h Handlers) {
	api := r.Group("/api")
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	// --- Session collection ---
	api.GET("/sessions", h.Sessions.GetSessionList)
	api.POST("/sessions", h.Sessions.CreateSession)

	// --- Session resource ---
	one := api.Group("/sessions/:id", mw.RequireValidSessionID())
	one.GET("", h.Sessions.GetSession)
	one.PUT("", h.Sessions.ReplaceSession)
	one.PATCH("", h.Sessions.ModifySession)
	one.DELETE("", h.Sessions.DeleteSession)
	one.POST("/destinations", h.Sessions.AddDestination)
	one.DELETE("/destinations/:destID", h.Sessions.RemoveDestination)

	// --- Preview monitor ---
	one.POST("/start", h.Monitor.Start)
	one.POST("/stop", h.Monitor.Stop)
	one.GET("/logs", h.Monitor.GetLogs)

	// --- Artifacts ---
	render := one.Group("", mw.LimitConcurrentRequests(maxConcurrentRenders))
	render.GET("/pipeline", h.Artifacts.GetPipeline)
	render.GET("/script", h.Artifacts.GetScript)
	render.GET("/unit", h.Artifacts.GetUnit)
	render.GET("/lint", h.Artifacts.GetLint)
	one.GET("/watch", h.Artifacts.Watch)
}
