package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
)

// RubricRepository stores aggregate rubrics, rubric evaluations and general comments.
type RubricRepository struct {
	db *DB
}

// NewRubricRepository creates a new rubric repository.
func NewRubricRepository(db *DB) *RubricRepository {
	return &RubricRepository{db: db}
}

// UpsertAggregate replaces the aggregate for (project, artifact type).
func (r *RubricRepository) UpsertAggregate(ctx context.Context, agg *models.AggregateRubric) error {
	if agg.CriteriaAverages == nil {
		agg.CriteriaAverages = map[string]float64{}
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "artifact_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"criteria_averages", "overall_score", "review_count", "last_updated"}),
		}).
		Create(agg).Error
	if err != nil {
		return fmt.Errorf("failed to save aggregate rubric for project %d (%s): %w", agg.ProjectID, agg.ArtifactType, err)
	}
	return nil
}

// FindAggregate returns the stored aggregate, or nil when none has been computed yet.
func (r *RubricRepository) FindAggregate(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error) {
	var agg models.AggregateRubric
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND artifact_type = ?", projectID, kind.String()).
		First(&agg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregate rubric for project %d (%s): %w", projectID, kind, err)
	}
	return &agg, nil
}

// FindEvaluation returns an evaluator's rubric evaluation, or nil when there is none.
func (r *RubricRepository) FindEvaluation(ctx context.Context, projectID uint, kind artifact.Kind, evaluatorID uint) (*models.RubricEvaluation, error) {
	var eval models.RubricEvaluation
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND rubric_type = ? AND evaluator_id = ?", projectID, kind.String(), evaluatorID).
		First(&eval).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rubric evaluation for project %d (%s): %w", projectID, kind, err)
	}
	return &eval, nil
}

// CreateEvaluationIfMissing inserts eval unless the evaluator already has one,
// then returns whichever row is stored.
func (r *RubricRepository) CreateEvaluationIfMissing(ctx context.Context, eval *models.RubricEvaluation) (*models.RubricEvaluation, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(eval).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create rubric evaluation: %w", err)
	}

	kind, err := artifact.Parse(eval.RubricType)
	if err != nil {
		return nil, err
	}
	stored, err := r.FindEvaluation(ctx, eval.ProjectID, kind, eval.EvaluatorID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("rubric evaluation for project %d (%s) not found after create", eval.ProjectID, kind)
	}
	return stored, nil
}

// SaveEvaluation inserts or replaces an evaluator's rubric evaluation.
func (r *RubricRepository) SaveEvaluation(ctx context.Context, eval *models.RubricEvaluation) error {
	now := time.Now().UTC()
	eval.UpdatedAt = now
	if eval.CreatedAt.IsZero() {
		eval.CreatedAt = now
	}
	if eval.ID != 0 {
		err := r.db.WithContext(ctx).
			Model(eval).
			Select("criteria", "overall_score", "general_comment", "updated_at").
			Updates(eval).Error
		if err != nil {
			return fmt.Errorf("failed to update rubric evaluation %d: %w", eval.ID, err)
		}
		return nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "rubric_type"}, {Name: "evaluator_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"criteria", "overall_score", "general_comment", "updated_at"}),
		}).
		Create(eval).Error
	if err != nil {
		return fmt.Errorf("failed to save rubric evaluation for project %d (%s): %w", eval.ProjectID, eval.RubricType, err)
	}
	return nil
}

// FindGeneralComment returns a user's general comment, or nil when there is none.
func (r *RubricRepository) FindGeneralComment(ctx context.Context, userID, projectID uint, kind artifact.Kind) (*models.GeneralComment, error) {
	var comment models.GeneralComment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ? AND artifact_type = ?", userID, projectID, kind.String()).
		First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get general comment: %w", err)
	}
	return &comment, nil
}

// SaveGeneralComment inserts or replaces a user's general comment.
func (r *RubricRepository) SaveGeneralComment(ctx context.Context, comment *models.GeneralComment) error {
	now := time.Now().UTC()
	comment.UpdatedAt = now
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "project_id"}, {Name: "artifact_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"comment", "updated_at"}),
		}).
		Create(comment).Error
	if err != nil {
		return fmt.Errorf("failed to save general comment: %w", err)
	}
	return nil
}
