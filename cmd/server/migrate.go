package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"marina/internal/entity"
	"marina/internal/platform/config"
	"marina/internal/platform/logger"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.DatabaseURL == "" {
		return fmt.Errorf("migrate requires DATABASE_URL")
	}
	log, sync, err := logger.New(cfg.Environment)
	if err != nil {
		return err
	}
	defer sync()

	if err := entity.MigrateURL(cmd.Context(), cfg.Store.DatabaseURL); err != nil {
		return err
	}
	log.Info("schema migrated")
	return nil
}
