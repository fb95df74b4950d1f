package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	rec := serve(r, http.MethodGet, "/", http.Header{RequestIDHeader: {"abc"}})
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc", rec.Body.String())

	rec = serve(r, http.MethodGet, "/", http.Header{RequestIDHeader: {strings.Repeat("x", 65)}})
	assert.NoError(t, uuid.Validate(rec.Body.String()))

	rec = serve(r, http.MethodGet, "/", nil)
	assert.NoError(t, uuid.Validate(rec.Header().Get(RequestIDHeader)))
}

func TestRequireValidSessionID(t *testing.T) {
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/s/:id", RequireValidSessionID(), ok)
	r.GET("/s/:id/d/:destID", RequireValidSessionID(), ok)

	id := uuid.NewString()
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/s/"+id, nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/s/42", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/s/"+id+"/d/dest-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/s/x/d/dest-1", nil).Code)
}

func TestLimitConcurrentRequests(t *testing.T) {
	r := gin.New()
	release := make(chan struct{})
	entered := make(chan struct{})
	r.GET("/", LimitConcurrentRequests(1), func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})

	done := make(chan int)
	go func() { done <- serve(r, http.MethodGet, "/", nil).Code }()
	<-entered

	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/", nil).Code)
	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})

	serve(r, http.MethodGet, "/ok", nil)
	serve(r, http.MethodGet, "/fail", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ok", entries[0].ContextMap()["route"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.POST("/", MaxBodyBytes(4), func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
