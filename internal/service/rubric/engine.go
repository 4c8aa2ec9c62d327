// Package rubric maintains aggregate rubrics and personal rubric evaluations.
package rubric

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/cache"
	"github.com/artifactlab/review-scoring/internal/metrics"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/repository"
)

// ReviewRepository reads canonical reviews.
type ReviewRepository interface {
	ListByProjectAndReviewer(ctx context.Context, kind artifact.Kind, projectID, reviewerID uint) ([]models.Review, error)
}

// ArtifactRepository resolves artifact attributes the aggregation hooks depend on.
type ArtifactRepository interface {
	RequirementTypes(ctx context.Context, ids []uint) (map[uint]string, error)
}

// AggregateRepository persists aggregates.
type AggregateRepository interface {
	UpsertAggregate(ctx context.Context, agg *models.AggregateRubric) error
	FindAggregate(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error)
}

// contributes reports whether a review's score for a criterion counts toward
// that criterion's average.
type contributes func(criterion string, review models.Review) bool

// contributionHook builds the contribution rule for one kind from the reviews
// being aggregated. Kinds without a hook count every present score.
type contributionHook func(ctx context.Context, e *Engine, reviews []models.Review) (contributes, error)

var contributionHooks = map[artifact.Kind]contributionHook{
	artifact.Requirements: nonFunctionalQuantification,
}

// nonFunctionalQuantification limits quantificationScore to reviews of
// NonFunctional requirements.
func nonFunctionalQuantification(ctx context.Context, e *Engine, reviews []models.Review) (contributes, error) {
	ids := make([]uint, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.Base().ArtifactID)
	}
	types, err := e.artifacts.RequirementTypes(ctx, ids)
	if err != nil {
		return nil, err
	}
	return func(criterion string, review models.Review) bool {
		if criterion != "quantificationScore" {
			return true
		}
		return types[review.Base().ArtifactID] == models.RequirementNonFunctional
	}, nil
}

// Engine recomputes and serves aggregate rubrics.
type Engine struct {
	reviews          ReviewRepository
	artifacts        ArtifactRepository
	aggregates       AggregateRepository
	cache            cache.Cache
	cacheTTL         time.Duration
	systemReviewerID uint
	log              *zerolog.Logger
}

// Options holds the engine settings.
type Options struct {
	SystemReviewerID uint
	CacheTTL         time.Duration
}

// NewEngine creates a new aggregate engine.
func NewEngine(
	reviews *repository.ReviewRepository,
	artifacts *repository.ArtifactRepository,
	aggregates *repository.RubricRepository,
	c cache.Cache,
	opts Options,
	log *zerolog.Logger,
) *Engine {
	return NewEngineWithInterfaces(reviews, artifacts, aggregates, c, opts, log)
}

// NewEngineWithInterfaces creates a new aggregate engine with interface dependencies (for testing).
func NewEngineWithInterfaces(
	reviews ReviewRepository,
	artifacts ArtifactRepository,
	aggregates AggregateRepository,
	c cache.Cache,
	opts Options,
	log *zerolog.Logger,
) *Engine {
	return &Engine{
		reviews:          reviews,
		artifacts:        artifacts,
		aggregates:       aggregates,
		cache:            c,
		cacheTTL:         opts.CacheTTL,
		systemReviewerID: opts.SystemReviewerID,
		log:              log,
	}
}

func cacheKey(projectID uint, kind artifact.Kind) string {
	return fmt.Sprintf("aggregate_rubric:%d:%s", projectID, kind)
}

// Recompute rebuilds the aggregate for (project, kind) from the current
// canonical reviews and replaces the stored one.
func (e *Engine) Recompute(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", artifact.ErrInvalidKind, int(kind))
	}
	start := time.Now()

	agg, err := e.recompute(ctx, projectID, kind)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordAggregateRecompute(kind.String(), status, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Del(ctx, cacheKey(projectID, kind)); err != nil {
			e.log.Warn().Err(err).Uint("project_id", projectID).Str("artifact_type", kind.String()).Msg("Failed to invalidate aggregate cache")
		}
	}

	e.log.Debug().
		Uint("project_id", projectID).
		Str("artifact_type", kind.String()).
		Int("review_count", agg.ReviewCount).
		Float64("overall_score", agg.OverallScore).
		Dur("duration", time.Since(start)).
		Msg("Aggregate rubric recomputed")

	return agg, nil
}

func (e *Engine) recompute(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error) {
	reviews, err := e.reviews.ListByProjectAndReviewer(ctx, kind, projectID, e.systemReviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get canonical reviews: %w", err)
	}

	var rule contributes
	if hook, ok := contributionHooks[kind]; ok && len(reviews) > 0 {
		rule, err = hook(ctx, e, reviews)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s contribution rule: %w", kind, err)
		}
	}

	averages, overall := computeAverages(kind.Descriptor().CriterionNames(), reviews, rule)
	agg := &models.AggregateRubric{
		ProjectID:        projectID,
		ArtifactType:     kind.String(),
		CriteriaAverages: averages,
		OverallScore:     overall,
		ReviewCount:      len(reviews),
		LastUpdated:      time.Now().UTC(),
	}

	if err := e.aggregates.UpsertAggregate(ctx, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// computeAverages averages each criterion over the reviews that scored it and
// that the rule admits. A criterion nobody scored averages to 0 and still
// counts toward the overall mean. With no reviews the map is empty.
func computeAverages(criteria []string, reviews []models.Review, rule contributes) (map[string]float64, float64) {
	averages := make(map[string]float64, len(criteria))
	if len(reviews) == 0 {
		return averages, 0
	}

	var sumOfAverages float64
	for _, name := range criteria {
		var sum float64
		var n int
		for _, r := range reviews {
			score := r.Scores()[name]
			if score == nil {
				continue
			}
			if rule != nil && !rule(name, r) {
				continue
			}
			sum += *score
			n++
		}
		avg := 0.0
		if n > 0 {
			avg = sum / float64(n)
		}
		averages[name] = avg
		sumOfAverages += avg
	}

	return averages, sumOfAverages / float64(len(criteria))
}

// GetAggregate returns the stored aggregate for (project, kind), read through
// the cache. A pair that was never computed yields the empty state.
func (e *Engine) GetAggregate(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", artifact.ErrInvalidKind, int(kind))
	}
	key := cacheKey(projectID, kind)

	if e.cache != nil {
		cached, err := e.cache.Get(ctx, key)
		if err != nil {
			e.log.Warn().Err(err).Str("key", key).Msg("Failed to read aggregate cache")
		} else if cached != "" {
			var agg models.AggregateRubric
			if err := json.Unmarshal([]byte(cached), &agg); err == nil {
				metrics.RecordAggregateCacheHit()
				return &agg, nil
			}
			e.log.Warn().Str("key", key).Msg("Discarding undecodable aggregate cache entry")
		}
		metrics.RecordAggregateCacheMiss()
	}

	agg, err := e.aggregates.FindAggregate(ctx, projectID, kind)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		agg = &models.AggregateRubric{
			ProjectID:        projectID,
			ArtifactType:     kind.String(),
			CriteriaAverages: map[string]float64{},
		}
	}

	if e.cache != nil && agg.ID != 0 {
		if data, err := json.Marshal(agg); err == nil {
			if err := e.cache.Set(ctx, key, string(data), e.cacheTTL); err != nil {
				e.log.Warn().Err(err).Str("key", key).Msg("Failed to write aggregate cache")
			}
		}
	}

	return agg, nil
}
