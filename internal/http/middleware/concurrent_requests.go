package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LimitConcurrentRequests rejects requests with 429 once maxConcurrent are
// already in flight. It guards the artifact rendering routes.
func LimitConcurrentRequests(maxConcurrent int) gin.HandlerFunc {
	semaphore := make(chan struct{}, maxConcurrent)

	return func(c *gin.Context) {
		select {
		case semaphore <- struct{}{}:
			defer func() { <-semaphore }()
			c.Next()
		default:
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "too many concurrent requests",
			})
		}
	}
}
