package http

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"taskmanager/internal/adapter/http/handler"
	"taskmanager/internal/adapter/http/helper"
	"taskmanager/internal/adapter/http/middleware"
	"taskmanager/internal/config"
	"taskmanager/internal/core/port"
	"taskmanager/internal/core/telemetry"
	"taskmanager/pkg/logger"
	"taskmanager/web"
)

type RouterConfig struct {
	ServiceName string
	TaskHandler *handler.TaskHandler
	Store       port.TaskStore
	Metrics     *telemetry.AppMetrics
	Logger      *logger.Logger
	App         *config.AppConfig
}

func SetupRouter(rc RouterConfig) *gin.Engine {
	if gin.Mode() == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	setupMiddleware(router, rc)

	router.GET("/healthz", healthHandler(rc.Store))

	api := router.Group("/api/v1")
	rc.TaskHandler.Register(api)

	if rc.App.UI.Enabled {
		setupUI(router)
	}

	router.NoRoute(func(c *gin.Context) {
		helper.SendNotFoundError(c, "route not found")
	})

	return router
}

func setupMiddleware(router *gin.Engine, rc RouterConfig) {
	zapLogger := rc.Logger.Logger.Logger

	httpsEnforcer := middleware.NewHTTPSEnforcer(rc.App.Server.EnforceHTTPS || rc.App.IsProduction(), zapLogger)
	router.Use(httpsEnforcer.HTTPSMiddleware())
	if httpsEnforcer.IsEnabled() {
		zapLogger.Info("HTTPS enforcement enabled")
	}

	router.Use(otelgin.Middleware(rc.ServiceName))
	router.Use(middleware.CurrentMiddleware())
	router.Use(middleware.LoggingMiddleware(rc.Logger))

	if rc.App.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimitEndpointConfig{
			Requests: rc.App.RateLimit.Requests,
			Window:   rc.App.RateLimit.Window,
		}, zapLogger, rc.Metrics)
		router.Use(rateLimiter.RateLimitMiddleware())
	}

	if rc.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(rc.Metrics))
	}

	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
}

func healthHandler(store port.TaskStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func setupUI(router *gin.Engine) {
	assets := web.Static()
	static, _ := fs.Sub(assets, "static")
	page, _ := fs.ReadFile(assets, "index.html")

	router.StaticFS("/static", http.FS(static))
	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	})
}
