package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"taskmanager/internal/core/telemetry"
)

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(rl.RateLimitMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/test", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"status": "ok"})
	})
	return router
}

func TestRateLimitMiddleware_AllowedRequests(t *testing.T) {
	RegisterTestingT(t)
	metrics := telemetry.NewAppMetrics(prometheus.NewRegistry())
	rl := NewRateLimiter(RateLimitEndpointConfig{Requests: 10, Window: time.Minute}, zap.NewNop(), metrics)
	router := newLimitedRouter(rl)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("X-RateLimit-Limit")).To(Equal("10"))
		Expect(w.Header().Get("X-RateLimit-Remaining")).ToNot(BeEmpty())
	}
}

func TestRateLimitMiddleware_ExceedLimit(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(RateLimitEndpointConfig{Requests: 3, Window: time.Minute}, zap.NewNop(), nil)
	router := newLimitedRouter(rl)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)

		if i < 3 {
			Expect(w.Code).To(Equal(http.StatusOK))
		} else {
			Expect(w.Code).To(Equal(http.StatusTooManyRequests))
			Expect(w.Header().Get("Retry-After")).ToNot(BeEmpty())
			Expect(w.Body.String()).To(ContainSubstring("RATE_LIMITED"))
		}
	}
	Expect(rl.ActiveEntries()).To(Equal(1))
}

func TestRateLimitMiddleware_PerEndpointConfig(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(RateLimitEndpointConfig{Requests: 100, Window: time.Minute}, zap.NewNop(), nil)
	rl.SetConfig("POST /test", RateLimitEndpointConfig{Requests: 1, Window: time.Minute})
	router := newLimitedRouter(rl)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/test", nil))
	Expect(w.Code).To(Equal(http.StatusCreated))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/test", nil))
	Expect(w.Code).To(Equal(http.StatusTooManyRequests))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	Expect(w.Code).To(Equal(http.StatusOK))
}

func TestRateLimitMiddleware_WindowResets(t *testing.T) {
	RegisterTestingT(t)
	rl := NewRateLimiter(RateLimitEndpointConfig{Requests: 1, Window: 50 * time.Millisecond}, zap.NewNop(), nil)
	router := newLimitedRouter(rl)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	Expect(w.Code).To(Equal(http.StatusOK))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	Expect(w.Code).To(Equal(http.StatusTooManyRequests))

	time.Sleep(80 * time.Millisecond)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	Expect(w.Code).To(Equal(http.StatusOK))
}
