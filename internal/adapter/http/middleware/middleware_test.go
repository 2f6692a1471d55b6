package middleware

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	ct "taskmanager/pkg/context"
	"taskmanager/pkg/tracing"
)

func TestCurrentMiddleware_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CurrentMiddleware())

	var seen string
	router.GET("/ping", func(c *gin.Context) {
		seen = ct.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	router.ServeHTTP(w, req)

	assert.Equal(t, "given-id", seen)
	assert.Equal(t, "given-id", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "given-id", seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestCurrentMiddleware_TraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider := sdktrace.NewTracerProvider()
	defer provider.Shutdown(context.Background())

	router := gin.New()
	router.Use(otelgin.Middleware("taskmanager-test", otelgin.WithTracerProvider(provider)))
	router.Use(CurrentMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	assert.Len(t, w.Header().Get(tracing.TraceIDHeader), 32)

	bare := gin.New()
	bare.Use(CurrentMiddleware())
	bare.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w = httptest.NewRecorder()
	bare.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))
	assert.Empty(t, w.Header().Get(tracing.TraceIDHeader))
}

func TestHTTPSEnforcer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewHTTPSEnforcer(true, zap.NewNop()).HTTPSMiddleware())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "http://tasks.example.com/x?a=1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://tasks.example.com/x?a=1", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "http://tasks.example.com/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "https://tasks.example.com/x", nil)
	req.TLS = &tls.ConnectionState{}
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "http://localhost:8080/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
