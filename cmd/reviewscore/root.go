package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/config"
	"github.com/artifactlab/review-scoring/internal/repository"
	"github.com/artifactlab/review-scoring/pkg/logger"
)

var (
	cfgFile string
	ui      *UI
)

var rootCmd = &cobra.Command{
	Use:   "reviewscore",
	Short: "Review scoring backend for software design artifacts",
	Long: `reviewscore serves the review and rubric API for requirements, stories,
UML diagrams, design patterns and mockups, and keeps the per-project
aggregate rubrics and statistics that are derived from canonical reviews.`,
	Version:           fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./config.yaml or /etc/reviewscore/config.yaml)")
}

func initEnv() {
	ui = NewUI()
	if err := config.LoadDotEnv(); err != nil {
		ui.Warning("%v", err)
	}
}

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *repository.DB
}

// loadApp reads configuration, sets up logging and opens the database.
func loadApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	if err := artifact.Validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact registry: %w", err)
	}
	if err := repository.ValidateReviewTables(); err != nil {
		return nil, fmt.Errorf("invalid review tables: %w", err)
	}

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close database")
	}
}
