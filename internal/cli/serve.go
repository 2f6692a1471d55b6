package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	api "taskmanager/internal/adapter/http"
	"taskmanager/internal/config"
	"taskmanager/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the task API, the embedded web UI and the overdue scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}

		log, err := logger.New(logger.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Level:       cfg.Log.Level,
			LokiURL:     cfg.Log.LokiURL,
		})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return api.StartServer(ctx, cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
