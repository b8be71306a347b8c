package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/ingest", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/ingest", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	t.Run("body within limit passes", func(t *testing.T) {
		router := bodyLimitRouter(1024)

		req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{"feature":"chat"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared oversized body is refused up front", func(t *testing.T) {
		router := bodyLimitRouter(100)

		req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(strings.Repeat("x", 200)))
		req.ContentLength = 200
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
	})

	t.Run("bodyless GET is unaffected", func(t *testing.T) {
		router := bodyLimitRouter(10)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ingest", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("streamed body without Content-Length is capped mid-read", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(BodyLimit(50))
		router.POST("/ingest", func(c *gin.Context) {
			buf := make([]byte, 200)
			if _, err := c.Request.Body.Read(buf); err != nil {
				c.String(http.StatusBadRequest, "body too large")
				return
			}
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(strings.Repeat("x", 100)))
		req.ContentLength = -1 // no declared length
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
