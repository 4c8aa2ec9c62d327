package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
)

type artifactTable interface {
	first(tx *gorm.DB) (models.Artifact, error)
	find(tx *gorm.DB) ([]models.Artifact, error)
}

type artifactPtr[T any] interface {
	*T
	models.Artifact
}

type typedArtifactTable[T any, PT artifactPtr[T]] struct{}

func (typedArtifactTable[T, PT]) first(tx *gorm.DB) (models.Artifact, error) {
	var row T
	if err := tx.First(&row).Error; err != nil {
		return nil, err
	}
	return PT(&row), nil
}

func (typedArtifactTable[T, PT]) find(tx *gorm.DB) ([]models.Artifact, error) {
	var rows []T
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Artifact, len(rows))
	for i := range rows {
		out[i] = PT(&rows[i])
	}
	return out, nil
}

var artifactTables = map[artifact.Kind]artifactTable{
	artifact.Requirements:     typedArtifactTable[models.Requirement, *models.Requirement]{},
	artifact.Stories:          typedArtifactTable[models.Story, *models.Story]{},
	artifact.ActivityDiagrams: typedArtifactTable[models.ActivityDiagram, *models.ActivityDiagram]{},
	artifact.UseCaseDiagrams:  typedArtifactTable[models.UseCaseDiagram, *models.UseCaseDiagram]{},
	artifact.SequenceDiagrams: typedArtifactTable[models.SequenceDiagram, *models.SequenceDiagram]{},
	artifact.ClassDiagrams:    typedArtifactTable[models.ClassDiagram, *models.ClassDiagram]{},
	artifact.DesignPatterns:   typedArtifactTable[models.DesignPattern, *models.DesignPattern]{},
	artifact.Mockups:          typedArtifactTable[models.Mockup, *models.Mockup]{},
}

// ArtifactRepository gives read access to the artifact tables. Artifact
// creation is used by seeding and tests; editing lives elsewhere.
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new artifact repository.
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Create inserts an artifact, assigning the next sequence number in its project.
func (r *ArtifactRepository) Create(ctx context.Context, kind artifact.Kind, a models.Artifact) error {
	base := a.Base()
	var maxSeq int
	err := r.db.WithContext(ctx).
		Table(kind.Descriptor().ArtifactTable).
		Where("project_id = ?", base.ProjectID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return fmt.Errorf("failed to get next %s sequence: %w", kind, err)
	}
	base.Seq = maxSeq + 1

	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create %s artifact: %w", kind, err)
	}
	return nil
}

// GetByID retrieves an artifact. A missing artifact wraps gorm.ErrRecordNotFound.
func (r *ArtifactRepository) GetByID(ctx context.Context, kind artifact.Kind, id uint) (models.Artifact, error) {
	table, ok := artifactTables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", artifact.ErrInvalidKind, int(kind))
	}
	a, err := table.first(r.db.WithContext(ctx).Where("id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("failed to get %s artifact %d: %w", kind, id, err)
	}
	return a, nil
}

// ListByProject returns a project's artifacts of one kind ordered by sequence.
func (r *ArtifactRepository) ListByProject(ctx context.Context, kind artifact.Kind, projectID uint) ([]models.Artifact, error) {
	table, ok := artifactTables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %d", artifact.ErrInvalidKind, int(kind))
	}
	artifacts, err := table.find(r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("seq ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s artifacts for project %d: %w", kind, projectID, err)
	}
	return artifacts, nil
}

// ProjectOf returns the owning project of an artifact.
func (r *ArtifactRepository) ProjectOf(ctx context.Context, kind artifact.Kind, id uint) (uint, error) {
	var row struct{ ProjectID uint }
	err := r.db.WithContext(ctx).
		Table(kind.Descriptor().ArtifactTable).
		Select("project_id").
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get project of %s artifact %d: %w", kind, id, err)
	}
	return row.ProjectID, nil
}

// RequirementTypes maps requirement ids to their Functional/NonFunctional/Other type.
func (r *ArtifactRepository) RequirementTypes(ctx context.Context, ids []uint) (map[uint]string, error) {
	types := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return types, nil
	}

	var rows []struct {
		ID   uint
		Type string
	}
	err := r.db.WithContext(ctx).
		Model(&models.Requirement{}).
		Select("id, type").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get requirement types: %w", err)
	}

	for _, row := range rows {
		types[row.ID] = row.Type
	}
	return types, nil
}

// Exists reports whether an artifact exists.
func (r *ArtifactRepository) Exists(ctx context.Context, kind artifact.Kind, id uint) (bool, error) {
	_, err := r.ProjectOf(ctx, kind, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
