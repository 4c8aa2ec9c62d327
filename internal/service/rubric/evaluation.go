package rubric

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/artifactlab/review-scoring/internal/apperror"
	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/repository"
	"github.com/artifactlab/review-scoring/internal/service/access"
)

// EvaluationRepository persists rubric evaluations.
type EvaluationRepository interface {
	FindEvaluation(ctx context.Context, projectID uint, kind artifact.Kind, evaluatorID uint) (*models.RubricEvaluation, error)
	CreateEvaluationIfMissing(ctx context.Context, eval *models.RubricEvaluation) (*models.RubricEvaluation, error)
	SaveEvaluation(ctx context.Context, eval *models.RubricEvaluation) error
}

// ProjectAccess authorizes an actor for a project.
type ProjectAccess interface {
	RequireProject(ctx context.Context, actor access.Actor, projectID uint) (*models.Project, error)
}

// EvaluationService manages each evaluator's personal rubric evaluations.
type EvaluationService struct {
	repo      EvaluationRepository
	access    ProjectAccess
	templates Templates
	log       *zerolog.Logger
}

// NewEvaluationService creates a new evaluation service.
func NewEvaluationService(repo *repository.RubricRepository, checker *access.Checker, templates Templates, log *zerolog.Logger) *EvaluationService {
	return NewEvaluationServiceWithInterfaces(repo, checker, templates, log)
}

// NewEvaluationServiceWithInterfaces creates a new evaluation service with interface dependencies (for testing).
func NewEvaluationServiceWithInterfaces(repo EvaluationRepository, projectAccess ProjectAccess, templates Templates, log *zerolog.Logger) *EvaluationService {
	return &EvaluationService{
		repo:      repo,
		access:    projectAccess,
		templates: templates,
		log:       log,
	}
}

// EvaluationUpdate is a save request. Nil fields keep their stored value.
type EvaluationUpdate struct {
	ProjectID      uint
	Kind           artifact.Kind
	Criteria       []models.RubricCriterion
	GeneralComment *string
}

// OverallScore is the mean criterion score rounded to one decimal, 0 with no criteria.
func OverallScore(criteria []models.RubricCriterion) float64 {
	if len(criteria) == 0 {
		return 0
	}
	var sum float64
	for _, c := range criteria {
		sum += c.Score
	}
	return math.Round(sum/float64(len(criteria))*10) / 10
}

func validateCriteria(criteria []models.RubricCriterion) error {
	for _, c := range criteria {
		if c.Name == "" {
			return apperror.BadRequest("Criterion name is required", nil)
		}
		if c.Score < 0 || c.Score > 5 {
			return apperror.BadRequest(fmt.Sprintf("Criterion %q score must be between 0 and 5", c.Name), nil)
		}
	}
	return nil
}

// Get returns the actor's evaluation, creating it from the kind's template on first access.
func (s *EvaluationService) Get(ctx context.Context, actor access.Actor, projectID uint, kind artifact.Kind) (*models.RubricEvaluation, error) {
	if _, err := s.access.RequireProject(ctx, actor, projectID); err != nil {
		return nil, err
	}

	eval, err := s.repo.FindEvaluation(ctx, projectID, kind, actor.UserID)
	if err != nil {
		return nil, err
	}
	if eval != nil {
		return eval, nil
	}

	eval, err = s.repo.CreateEvaluationIfMissing(ctx, &models.RubricEvaluation{
		ProjectID:   projectID,
		RubricType:  kind.String(),
		EvaluatorID: actor.UserID,
		Criteria:    s.templates.For(kind),
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Uint("project_id", projectID).
		Str("rubric_type", kind.String()).
		Uint("evaluator_id", actor.UserID).
		Msg("Rubric evaluation created from template")

	return eval, nil
}

// Save creates or updates the actor's evaluation and recomputes its overall score.
func (s *EvaluationService) Save(ctx context.Context, actor access.Actor, upd EvaluationUpdate) (*models.RubricEvaluation, error) {
	if _, err := s.access.RequireProject(ctx, actor, upd.ProjectID); err != nil {
		return nil, err
	}
	if err := validateCriteria(upd.Criteria); err != nil {
		return nil, err
	}

	eval, err := s.repo.FindEvaluation(ctx, upd.ProjectID, upd.Kind, actor.UserID)
	if err != nil {
		return nil, err
	}
	if eval == nil {
		eval = &models.RubricEvaluation{
			ProjectID:   upd.ProjectID,
			RubricType:  upd.Kind.String(),
			EvaluatorID: actor.UserID,
			Criteria:    s.templates.For(upd.Kind),
		}
	}

	if upd.Criteria != nil {
		eval.Criteria = upd.Criteria
	}
	if upd.GeneralComment != nil {
		eval.GeneralComment = *upd.GeneralComment
	}
	eval.OverallScore = OverallScore(eval.Criteria)

	if err := s.repo.SaveEvaluation(ctx, eval); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("project_id", upd.ProjectID).
		Str("rubric_type", upd.Kind.String()).
		Uint("evaluator_id", actor.UserID).
		Float64("overall_score", eval.OverallScore).
		Msg("Rubric evaluation saved")

	return eval, nil
}

// CalculateScore recomputes and stores the overall score of the actor's evaluation.
func (s *EvaluationService) CalculateScore(ctx context.Context, actor access.Actor, projectID uint, kind artifact.Kind) (float64, error) {
	if _, err := s.access.RequireProject(ctx, actor, projectID); err != nil {
		return 0, err
	}

	eval, err := s.repo.FindEvaluation(ctx, projectID, kind, actor.UserID)
	if err != nil {
		return 0, err
	}
	if eval == nil {
		return 0, apperror.NotFound("Rubric evaluation not found", nil)
	}

	eval.OverallScore = OverallScore(eval.Criteria)
	if err := s.repo.SaveEvaluation(ctx, eval); err != nil {
		return 0, err
	}
	return eval.OverallScore, nil
}

// Find returns a user's evaluation without authorization or creation, nil when absent.
func (s *EvaluationService) Find(ctx context.Context, projectID uint, kind artifact.Kind, userID uint) (*models.RubricEvaluation, error) {
	return s.repo.FindEvaluation(ctx, projectID, kind, userID)
}

// Template returns the default criteria of a kind with zero scores.
func (s *EvaluationService) Template(kind artifact.Kind) []models.RubricCriterion {
	return s.templates.For(kind)
}
