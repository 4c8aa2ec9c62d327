// Package scheduler runs the nightly aggregate reconcile job.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/config"
	prommetrics "github.com/artifactlab/review-scoring/internal/metrics"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/repository"
	"github.com/artifactlab/review-scoring/internal/service/rubric"
	"github.com/artifactlab/review-scoring/pkg/logger"
)

// ProjectLister interface for enumerating projects.
type ProjectLister interface {
	ListIDs(ctx context.Context) ([]uint, error)
}

// Recomputer rebuilds one aggregate rubric.
type Recomputer interface {
	Recompute(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error)
}

// Service recomputes every stored aggregate on a daily schedule, repairing
// aggregates left stale by a failed recompute after a review write.
type Service struct {
	config   *config.Config
	projects ProjectLister
	engine   Recomputer
	log      *logger.Logger
	cron     *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	projectRepo *repository.ProjectRepository,
	engine *rubric.Engine,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(cfg, projectRepo, engine, log)
}

// NewServiceWithInterfaces creates a new scheduler service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(cfg *config.Config, projects ProjectLister, engine Recomputer, log *logger.Logger) *Service {
	return &Service{
		config:   cfg,
		projects: projects,
		engine:   engine,
		log:      log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.Scheduler.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	cronExpr, err := s.buildCronExpression()
	if err != nil {
		return fmt.Errorf("failed to build cron expression: %w", err)
	}

	_, err = s.cron.AddFunc(cronExpr, func() {
		if _, err := s.RunReconcile(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("Aggregate reconcile job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register reconcile job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", cronExpr).
		Str("timezone", s.config.Scheduler.Timezone).
		Bool("skip_weekends", s.config.Scheduler.SkipWeekends).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running job.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates a cron expression from config.
func (s *Service) buildCronExpression() (string, error) {
	// Parse time string (format: "HH:MM")
	parts := strings.Split(s.config.Scheduler.Time, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s.config.Scheduler.Time)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	// Format: "minute hour day month weekday"
	if s.config.Scheduler.SkipWeekends {
		return fmt.Sprintf("%d %d * * 1-5", minute, hour), nil
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// RunReconcile recomputes the aggregate of every (project, kind) pair and
// returns how many succeeded. A failing pair is logged and skipped; only a
// failure to list projects aborts the run.
func (s *Service) RunReconcile(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRunTimestamp(float64(time.Now().Unix()))
	}()

	s.log.Info().Msg("Running aggregate reconcile job")

	projectIDs, err := s.projects.ListIDs(ctx)
	if err != nil {
		prommetrics.RecordSchedulerJobRun("error")
		return 0, fmt.Errorf("failed to list projects: %w", err)
	}

	var reconciled, failed int
	for _, projectID := range projectIDs {
		for _, kind := range artifact.All() {
			if ctx.Err() != nil {
				prommetrics.RecordSchedulerJobRun("error")
				return reconciled, ctx.Err()
			}
			if _, err := s.engine.Recompute(ctx, projectID, kind); err != nil {
				failed++
				s.log.Warn().
					Err(err).
					Uint("project_id", projectID).
					Str("artifact_type", kind.String()).
					Msg("Failed to reconcile aggregate")
				continue
			}
			reconciled++
		}
	}

	status := "success"
	if failed > 0 {
		status = "partial"
	}
	prommetrics.RecordSchedulerJobRun(status)
	prommetrics.SetSchedulerAggregatesReconciled(reconciled)

	s.log.Info().
		Int("projects", len(projectIDs)).
		Int("reconciled", reconciled).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Aggregate reconcile job completed")

	return reconciled, nil
}
