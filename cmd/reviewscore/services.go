package main

import (
	"context"
	"fmt"

	"github.com/artifactlab/review-scoring/internal/cache"
	"github.com/artifactlab/review-scoring/internal/repository"
	"github.com/artifactlab/review-scoring/internal/service/access"
	"github.com/artifactlab/review-scoring/internal/service/review"
	"github.com/artifactlab/review-scoring/internal/service/rubric"
	"github.com/artifactlab/review-scoring/internal/service/stats"
)

type services struct {
	projects    *repository.ProjectRepository
	checker     *access.Checker
	engine      *rubric.Engine
	evaluations *rubric.EvaluationService
	reviews     *review.Service
	stats       *stats.Service
	redis       *cache.RedisCache
}

// buildServices wires repositories and services. Without Redis the aggregate
// engine runs uncached.
func (a *app) buildServices(ctx context.Context, withRedis bool) (*services, error) {
	templates, err := rubric.DefaultTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load rubric templates: %w", err)
	}

	reviewRepo := repository.NewReviewRepository(a.db)
	artifactRepo := repository.NewArtifactRepository(a.db)
	rubricRepo := repository.NewRubricRepository(a.db)

	svc := &services{
		projects: repository.NewProjectRepository(a.db),
	}

	var aggregateCache cache.Cache
	if withRedis {
		svc.redis, err = cache.NewRedisCache(ctx, &a.cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		aggregateCache = svc.redis
		a.log.Info().Str("addr", a.cfg.Database.Redis.Addr()).Msg("Connected to Redis")
	}

	systemReviewerID := a.cfg.Reviews.SystemReviewerID
	svc.checker = access.NewChecker(svc.projects)
	svc.engine = rubric.NewEngine(reviewRepo, artifactRepo, rubricRepo, aggregateCache, rubric.Options{
		SystemReviewerID: systemReviewerID,
		CacheTTL:         a.cfg.Reviews.CacheTTL(),
	}, a.log.Component("aggregate").Zerolog())
	svc.evaluations = rubric.NewEvaluationService(rubricRepo, svc.checker, templates, a.log.Component("evaluation").Zerolog())
	svc.reviews = review.NewService(reviewRepo, artifactRepo, rubricRepo, svc.engine, svc.evaluations, svc.checker, systemReviewerID, a.log.Component("review"))
	svc.stats = stats.NewService(repository.NewStatsRepository(a.db), svc.projects, svc.checker, systemReviewerID, a.log.Component("stats"))

	return svc, nil
}

func (s *services) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
