package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequireValidSessionID ensures the path param ":id" is a UUID.
func RequireValidSessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := uuid.Validate(c.Param("id")); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
			return
		}
		c.Next()
	}
}
