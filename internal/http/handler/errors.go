package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edirooss/gst-architect/internal/repo"
	"github.com/edirooss/gst-architect/internal/service"
)

// statusOf maps service and store errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, repo.ErrSessionNotFound), errors.Is(err, service.ErrDestinationNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrLastSession):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrLocked):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

// fail records err on the context and writes {"message": ...} with the mapped
// status. Known sentinel errors are reported without their wrapping context.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusOf(err)

	msg := err.Error()
	for _, sentinel := range []error{repo.ErrSessionNotFound, service.ErrDestinationNotFound, service.ErrLastSession, service.ErrLocked} {
		if errors.Is(err, sentinel) {
			msg = sentinel.Error()
			break
		}
	}
	c.JSON(status, gin.H{"message": msg})
}

// badRequest is fail for malformed requests.
func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}
