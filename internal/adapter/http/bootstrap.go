package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.uber.org/zap"

	"taskmanager/internal/adapter/scheduler"
	"taskmanager/internal/config"
	"taskmanager/internal/core/telemetry"
	"taskmanager/pkg/logger"
)

const ServiceVersion = "1.0.0"

// StartServer wires telemetry, storage and the router, then serves until ctx
// is cancelled and shuts everything down in reverse order.
func StartServer(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) error {
	provider, err := telemetry.InitTelemetry(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    cfg.Server.Environment,
		MetricsPort:    cfg.Telemetry.MetricsPort,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Telemetry shutdown failed", "error", err)
		}
	}()

	go func() {
		if err := provider.ServeMetrics(); err != nil {
			log.ErrorWithTrace(ctx, "Metrics server stopped", zap.Error(err))
		}
	}()

	probe := telemetry.NewOTELProbe(log.Logger, provider.Metrics)

	container, err := NewContainer(ctx, cfg, log, probe)
	if err != nil {
		return err
	}
	defer container.Close()

	if cfg.Scheduler.OverdueInterval > 0 {
		sched := scheduler.New(log)
		if _, err := sched.ScheduleOverdueRefresh(cfg.Scheduler.OverdueInterval, container.TaskService, provider.Metrics); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	router := SetupRouter(RouterConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		TaskHandler: container.TaskHandler,
		Store:       container.Store,
		Metrics:     provider.Metrics,
		Logger:      log,
		App:         cfg,
	})

	slog.Info("Server starting",
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"store", cfg.Store.Driver,
		"rate_limit_enabled", cfg.RateLimit.Enabled,
		"https_enforced", cfg.Server.EnforceHTTPS)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return serve(ctx, srv, cfg.Server.ShutdownTimeout)
}

func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
