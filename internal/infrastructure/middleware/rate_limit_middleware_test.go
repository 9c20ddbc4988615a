package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(perSecond float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewConnectionRateLimit(perSecond, burst))
	router.GET("/server", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	router := newLimitedRouter(1, 3)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/server", nil)
		r.RemoteAddr = "10.0.0.5:1234"
		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	router := newLimitedRouter(1, 2)

	var last int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/server", nil)
		r.RemoteAddr = "10.0.0.5:1234"
		router.ServeHTTP(w, r)
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRateLimitIsPerIP(t *testing.T) {
	router := newLimitedRouter(1, 1)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/server", nil)
	r.RemoteAddr = "10.0.0.5:1234"
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/server", nil)
	r.RemoteAddr = "10.0.0.6:1234"
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
