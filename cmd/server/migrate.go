package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quizzie/backend/config"
	"github.com/quizzie/backend/internal/server"
)

// newMigrateCmd prepares the configured store: SQL migrations for postgres, indexes for mongo.
func newMigrateCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.StoreMemory {
				logger.Info("memory store needs no migrations")
				return nil
			}
			stores, err := server.OpenStores(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			stores.Close()
			logger.Info("migrations applied", zap.String("store", cfg.Store.Driver))
			return nil
		},
	}
}
