package main

import (
	"github.com/spf13/cobra"

	"github.com/artifactlab/review-scoring/internal/config"
	"github.com/artifactlab/review-scoring/internal/repository"
	"github.com/artifactlab/review-scoring/pkg/logger"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadMigrateConfig()
		if err != nil {
			return err
		}
		if err := repository.RunMigrations(cfg.Database.Postgres.URL(), log); err != nil {
			return err
		}
		ui.Success("Database schema is up to date")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadMigrateConfig()
		if err != nil {
			return err
		}
		if err := repository.RollbackMigrations(cfg.Database.Postgres.URL(), rollbackSteps, log); err != nil {
			return err
		}
		ui.Success("Rolled back %d migration(s)", rollbackSteps)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadMigrateConfig loads configuration without opening a gorm connection;
// the migrator opens its own.
func loadMigrateConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	return cfg, logger.Get(), nil
}
