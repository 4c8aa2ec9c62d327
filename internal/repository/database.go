// Package repository provides data access layer using GORM for database operations.
package repository

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/artifactlab/review-scoring/internal/config"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/pkg/logger"
)

// DB holds the database connection.
type DB struct {
	*gorm.DB
}

// NewDB creates a new database connection.
func NewDB(cfg *config.PostgresConfig, log *logger.Logger) (*DB, error) {
	gormLogLevel := gormlogger.Warn
	if log.GetLogger().GetLevel() == zerolog.DebugLevel {
		gormLogLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL")

	return &DB{db}, nil
}

// Models lists every persisted model.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Requirement{},
		&models.Story{},
		&models.ActivityDiagram{},
		&models.UseCaseDiagram{},
		&models.SequenceDiagram{},
		&models.ClassDiagram{},
		&models.DesignPattern{},
		&models.Mockup{},
		&models.RequirementReview{},
		&models.StoryReview{},
		&models.ActivityDiagramReview{},
		&models.UseCaseDiagramReview{},
		&models.SequenceDiagramReview{},
		&models.ClassDiagramReview{},
		&models.DesignPatternReview{},
		&models.MockupReview{},
		&models.AggregateRubric{},
		&models.RubricEvaluation{},
		&models.GeneralComment{},
	}
}

// AutoMigrate creates or updates tables for all models. Production schemas are
// managed by RunMigrations; this is used by tests and local development.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(Models()...)
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database is healthy.
func (db *DB) Health() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
