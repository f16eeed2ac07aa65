package main

import (
	"github.com/georgemunganga/printa-pos/internal/config"
	"github.com/georgemunganga/printa-pos/internal/platform/database"
	"github.com/georgemunganga/printa-pos/internal/platform/logging"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
			return err
		}
		logging.Log(logging.Fields{Service: serviceName, Step: "migrate", Message: "migrations applied from " + cfg.MigrationsPath})
		return nil
	},
}
