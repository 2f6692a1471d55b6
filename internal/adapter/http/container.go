package http

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"taskmanager/internal/adapter/database/gormstore"
	"taskmanager/internal/adapter/database/memory"
	"taskmanager/internal/adapter/database/postgres"
	"taskmanager/internal/adapter/database/redis"
	"taskmanager/internal/adapter/database/repository"
	"taskmanager/internal/adapter/database/sqlite"
	"taskmanager/internal/adapter/http/handler"
	"taskmanager/internal/adapter/http/validation"
	"taskmanager/internal/config"
	"taskmanager/internal/core/port"
	"taskmanager/internal/core/service"
	"taskmanager/pkg/logger"
)

type Container struct {
	Store port.TaskStore
	Cache port.CacheRepository

	TaskRepo    port.TaskRepository
	TaskService *service.TaskService
	TaskHandler *handler.TaskHandler
}

func NewContainer(ctx context.Context, cfg *config.AppConfig, log *logger.Logger, telemetry port.Telemetry) (*Container, error) {
	store, system, err := OpenStore(ctx, cfg.Store, cfg.Log.Level == "debug")
	if err != nil {
		return nil, err
	}

	cache, err := OpenCache(ctx, cfg.Cache)
	if err != nil {
		store.Close()
		return nil, err
	}

	taskRepo := repository.NewTaskRepository(store, system, telemetry)
	taskSvc := service.NewTaskService(taskRepo, validation.New(), cache, telemetry, service.WithCacheTTL(cfg.Cache.TTL))
	taskHandler := handler.NewTaskHandler(taskSvc, log)

	log.InfoWithTrace(ctx, "Container ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("cache", cfg.Cache.Driver))

	return &Container{
		Store:       store,
		Cache:       cache,
		TaskRepo:    taskRepo,
		TaskService: taskSvc,
		TaskHandler: taskHandler,
	}, nil
}

func (c *Container) Close() error {
	return errors.Join(c.Cache.Close(), c.Store.Close())
}

// OpenStore returns the configured store and the db.system name used in spans.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logSQL bool) (port.TaskStore, string, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewStore(), "memory", nil

	case "gorm":
		store, err := gormstore.Open(cfg.DSN)
		if err != nil {
			return nil, "", fmt.Errorf("open gorm store: %w", err)
		}
		return store, "sqlite", nil

	case "postgres":
		if err := postgres.RunMigrations(cfg.PostgresURL); err != nil {
			return nil, "", fmt.Errorf("migrate postgres: %w", err)
		}
		db, err := postgres.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		return postgres.NewStore(db), "postgresql", nil

	case "sqlite", "":
		opts := sqlite.Options{DSN: cfg.DSN}
		if logSQL {
			zl := zerolog.New(os.Stderr).With().Timestamp().Str("component", "sql").Logger()
			opts.Logger = &zl
		}
		db, err := sqlite.Open(opts)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		return sqlite.NewStore(db), "sqlite", nil
	}

	return nil, "", fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func OpenCache(ctx context.Context, cfg config.CacheConfig) (port.CacheRepository, error) {
	switch cfg.Driver {
	case "none":
		return memory.NewNoopCache(), nil

	case "redis":
		rdb, err := redis.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return redis.NewCacheRepository(rdb), nil

	case "rueidis":
		client, err := redis.NewRueidisClient(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return redis.NewRueidisCacheRepository(client), nil

	case "memory", "":
		return memory.NewCacheRepository(cfg.TTL), nil
	}

	return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
}
