package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
)

// reviewTable reads one kind's review table into typed models.
type reviewTable interface {
	blank() models.Review
	first(tx *gorm.DB) (models.Review, error)
	find(tx *gorm.DB) ([]models.Review, error)
}

type reviewPtr[T any] interface {
	*T
	models.Review
}

type typedReviewTable[T any, PT reviewPtr[T]] struct{}

func (typedReviewTable[T, PT]) blank() models.Review {
	return PT(new(T))
}

func (typedReviewTable[T, PT]) first(tx *gorm.DB) (models.Review, error) {
	var row T
	if err := tx.First(&row).Error; err != nil {
		return nil, err
	}
	return PT(&row), nil
}

func (typedReviewTable[T, PT]) find(tx *gorm.DB) ([]models.Review, error) {
	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Review, len(rows))
	for i := range rows {
		out[i] = PT(&rows[i])
	}
	return out, nil
}

var reviewTables = map[artifact.Kind]reviewTable{
	artifact.Requirements:     typedReviewTable[models.RequirementReview, *models.RequirementReview]{},
	artifact.Stories:          typedReviewTable[models.StoryReview, *models.StoryReview]{},
	artifact.ActivityDiagrams: typedReviewTable[models.ActivityDiagramReview, *models.ActivityDiagramReview]{},
	artifact.UseCaseDiagrams:  typedReviewTable[models.UseCaseDiagramReview, *models.UseCaseDiagramReview]{},
	artifact.SequenceDiagrams: typedReviewTable[models.SequenceDiagramReview, *models.SequenceDiagramReview]{},
	artifact.ClassDiagrams:    typedReviewTable[models.ClassDiagramReview, *models.ClassDiagramReview]{},
	artifact.DesignPatterns:   typedReviewTable[models.DesignPatternReview, *models.DesignPatternReview]{},
	artifact.Mockups:          typedReviewTable[models.MockupReview, *models.MockupReview]{},
}

// ValidateReviewTables checks that every kind has a review model whose score
// fields match the registry criteria exactly.
func ValidateReviewTables() error {
	for _, kind := range artifact.All() {
		table, ok := reviewTables[kind]
		if !ok {
			return fmt.Errorf("no review table registered for %s", kind)
		}
		scores := table.blank().Scores()
		names := kind.Descriptor().CriterionNames()
		if len(scores) != len(names) {
			return fmt.Errorf("review model for %s has %d scores, registry has %d criteria", kind, len(scores), len(names))
		}
		for _, name := range names {
			if _, ok := scores[name]; !ok {
				return fmt.Errorf("review model for %s has no score %q", kind, name)
			}
		}
	}
	return nil
}

// ReviewWrite is a review submission. Comment and Scores are optional: only
// supplied fields overwrite an existing review.
type ReviewWrite struct {
	ProjectID  uint
	ArtifactID uint
	ReviewerID uint
	Rating     float64
	Comment    *string
	Scores     map[string]float64
}

// ReviewRepository handles review storage for every artifact kind.
type ReviewRepository struct {
	db *DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) table(kind artifact.Kind) (reviewTable, error) {
	table, ok := reviewTables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", artifact.ErrInvalidKind, int(kind))
	}
	return table, nil
}

// FindByArtifactAndReviewer returns the review a reviewer wrote for an artifact,
// or nil without error when there is none.
func (r *ReviewRepository) FindByArtifactAndReviewer(ctx context.Context, kind artifact.Kind, artifactID, reviewerID uint) (models.Review, error) {
	table, err := r.table(kind)
	if err != nil {
		return nil, err
	}

	review, err := table.first(r.db.WithContext(ctx).
		Where("artifact_id = ? AND reviewer_id = ?", artifactID, reviewerID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s review for artifact %d by reviewer %d: %w", kind, artifactID, reviewerID, err)
	}
	return review, nil
}

// ListByArtifact returns every review of an artifact, oldest first.
func (r *ReviewRepository) ListByArtifact(ctx context.Context, kind artifact.Kind, artifactID uint) ([]models.Review, error) {
	table, err := r.table(kind)
	if err != nil {
		return nil, err
	}

	reviews, err := table.find(r.db.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Order("created_at ASC, id ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s reviews for artifact %d: %w", kind, artifactID, err)
	}
	return reviews, nil
}

// ListByProjectAndReviewer returns all reviews of one kind written by a reviewer in a project.
func (r *ReviewRepository) ListByProjectAndReviewer(ctx context.Context, kind artifact.Kind, projectID, reviewerID uint) ([]models.Review, error) {
	table, err := r.table(kind)
	if err != nil {
		return nil, err
	}

	reviews, err := table.find(r.db.WithContext(ctx).
		Where("project_id = ? AND reviewer_id = ?", projectID, reviewerID).
		Order("id ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s reviews for project %d: %w", kind, projectID, err)
	}
	return reviews, nil
}

// ListByArtifactsAndReviewer returns a reviewer's reviews for the given artifacts.
func (r *ReviewRepository) ListByArtifactsAndReviewer(ctx context.Context, kind artifact.Kind, artifactIDs []uint, reviewerID uint) ([]models.Review, error) {
	if len(artifactIDs) == 0 {
		return nil, nil
	}
	table, err := r.table(kind)
	if err != nil {
		return nil, err
	}

	reviews, err := table.find(r.db.WithContext(ctx).
		Where("artifact_id IN ? AND reviewer_id = ?", artifactIDs, reviewerID))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s reviews by reviewer %d: %w", kind, reviewerID, err)
	}
	return reviews, nil
}

// Upsert inserts a review or updates the existing one for the same
// (artifact, reviewer). The unique index decides which; concurrent first-time
// submissions converge on one row. The stored review is returned.
func (r *ReviewRepository) Upsert(ctx context.Context, kind artifact.Kind, w ReviewWrite) (models.Review, error) {
	if _, err := r.table(kind); err != nil {
		return nil, err
	}
	d := kind.Descriptor()

	now := time.Now().UTC()
	values := map[string]interface{}{
		"project_id":  w.ProjectID,
		"artifact_id": w.ArtifactID,
		"reviewer_id": w.ReviewerID,
		"rating":      w.Rating,
		"comment":     "",
		"created_at":  now,
		"updated_at":  now,
	}
	updates := map[string]interface{}{
		"rating":     w.Rating,
		"updated_at": now,
	}
	if w.Comment != nil {
		values["comment"] = *w.Comment
		updates["comment"] = *w.Comment
	}
	for name, score := range w.Scores {
		col, ok := d.Column(name)
		if !ok {
			return nil, fmt.Errorf("unknown %s criterion %q", kind, name)
		}
		values[col] = score
		updates[col] = score
	}

	columns := make([]string, 0, len(updates))
	for col := range updates {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	err := r.db.WithContext(ctx).
		Table(d.ReviewTable).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "artifact_id"}, {Name: "reviewer_id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(values).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another writer won the insert; apply this submission as an update.
		err = r.db.WithContext(ctx).
			Table(d.ReviewTable).
			Where("artifact_id = ? AND reviewer_id = ?", w.ArtifactID, w.ReviewerID).
			Updates(updates).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save %s review for artifact %d: %w", kind, w.ArtifactID, err)
	}

	review, err := r.FindByArtifactAndReviewer(ctx, kind, w.ArtifactID, w.ReviewerID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, fmt.Errorf("saved %s review for artifact %d not found", kind, w.ArtifactID)
	}
	return review, nil
}

// CountByArtifactAndReviewer counts rows for an (artifact, reviewer) pair.
func (r *ReviewRepository) CountByArtifactAndReviewer(ctx context.Context, kind artifact.Kind, artifactID, reviewerID uint) (int64, error) {
	if _, err := r.table(kind); err != nil {
		return 0, err
	}
	var count int64
	err := r.db.WithContext(ctx).
		Table(kind.Descriptor().ReviewTable).
		Where("artifact_id = ? AND reviewer_id = ?", artifactID, reviewerID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count %s reviews: %w", kind, err)
	}
	return count, nil
}
