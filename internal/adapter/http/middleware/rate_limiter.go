package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"taskmanager/internal/adapter/http/helper"
	"taskmanager/internal/core/model/response"
	"taskmanager/internal/core/telemetry"
)

type RateLimitEndpointConfig struct {
	Requests int
	Window   time.Duration
}

// RateLimiter is a fixed-window limiter keyed by client IP and route.
type RateLimiter struct {
	cache    *cache.Cache
	config   map[string]RateLimitEndpointConfig
	fallback RateLimitEndpointConfig
	logger   *zap.Logger
	metrics  *telemetry.AppMetrics
	mutex    sync.Mutex
}

type rateLimitEntry struct {
	Count     int
	ResetTime time.Time
}

func NewRateLimiter(fallback RateLimitEndpointConfig, logger *zap.Logger, metrics *telemetry.AppMetrics) *RateLimiter {
	return &RateLimiter{
		cache:    cache.New(5*time.Minute, 10*time.Minute),
		config:   make(map[string]RateLimitEndpointConfig),
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
	}
}

// SetConfig overrides the limit for "METHOD /route/:param".
func (rl *RateLimiter) SetConfig(methodPath string, config RateLimitEndpointConfig) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.config[methodPath] = config
}

func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		methodPath := c.Request.Method + " " + path

		key := fmt.Sprintf("rate_limit:%s:%s", methodPath, c.ClientIP())
		allowed, limit, remaining, resetTime := rl.check(key, methodPath)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(c.Request.Context(), path)
			}

			rl.logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.Int("limit", limit))

			retryAfter := int(time.Until(resetTime).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			helper.SendError(c, http.StatusTooManyRequests, "RATE_LIMITED", []response.ValidationError{
				{Field: "request", Message: fmt.Sprintf("too many requests, retry in %ds", retryAfter)},
			})
			return
		}

		if rl.metrics != nil {
			rl.metrics.RecordRateLimitAllowed(c.Request.Context(), path)
		}

		c.Next()
	}
}

func (rl *RateLimiter) check(key, methodPath string) (allowed bool, limit, remaining int, reset time.Time) {
	now := time.Now()

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	config, ok := rl.config[methodPath]
	if !ok {
		config = rl.fallback
	}

	if v, found := rl.cache.Get(key); found {
		entry := v.(rateLimitEntry)

		if now.Before(entry.ResetTime) {
			if entry.Count >= config.Requests {
				return false, config.Requests, 0, entry.ResetTime
			}

			entry.Count++
			rl.cache.Set(key, entry, time.Until(entry.ResetTime))
			return true, config.Requests, config.Requests - entry.Count, entry.ResetTime
		}
	}

	entry := rateLimitEntry{Count: 1, ResetTime: now.Add(config.Window)}
	rl.cache.Set(key, entry, config.Window)

	return true, config.Requests, config.Requests - 1, entry.ResetTime
}

func (rl *RateLimiter) ActiveEntries() int {
	return rl.cache.ItemCount()
}
