package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	api "taskmanager/internal/adapter/http"
	"taskmanager/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}

		// opening a store applies its migrations
		store, _, err := api.OpenStore(context.Background(), cfg.Store, false)
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "migrations applied for %s store\n", cfg.Store.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
