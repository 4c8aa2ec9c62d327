package repository

import (
	"context"
	"fmt"

	"github.com/artifactlab/review-scoring/internal/artifact"
)

// ReviewedStat is the canonical review coverage of one kind in one project.
type ReviewedStat struct {
	Reviewed      int64   // distinct artifacts with a review
	AverageRating float64 // mean top-level rating of those reviews
}

// StatsRepository runs grouped counting queries across projects.
type StatsRepository struct {
	db *DB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// CountArtifacts returns the number of artifacts of a kind per project.
// Projects without artifacts are absent from the map.
func (r *StatsRepository) CountArtifacts(ctx context.Context, kind artifact.Kind, projectIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(projectIDs))
	if len(projectIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ProjectID uint
		Total     int64
	}
	err := r.db.WithContext(ctx).
		Table(kind.Descriptor().ArtifactTable).
		Select("project_id, COUNT(*) AS total").
		Where("project_id IN ?", projectIDs).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count %s artifacts: %w", kind, err)
	}

	for _, row := range rows {
		counts[row.ProjectID] = row.Total
	}
	return counts, nil
}

// ReviewedStats returns, per project, how many distinct artifacts of a kind the
// reviewer has reviewed and the average rating they gave.
func (r *StatsRepository) ReviewedStats(ctx context.Context, kind artifact.Kind, projectIDs []uint, reviewerID uint) (map[uint]ReviewedStat, error) {
	stats := make(map[uint]ReviewedStat, len(projectIDs))
	if len(projectIDs) == 0 {
		return stats, nil
	}
	d := kind.Descriptor()

	var rows []struct {
		ProjectID     uint
		Reviewed      int64
		AverageRating float64
	}
	err := r.db.WithContext(ctx).
		Table(d.ReviewTable+" AS r").
		Select("a.project_id AS project_id, COUNT(DISTINCT r.artifact_id) AS reviewed, AVG(r.rating) AS average_rating").
		Joins("JOIN "+d.ArtifactTable+" AS a ON a.id = r.artifact_id").
		Where("a.project_id IN ? AND r.reviewer_id = ?", projectIDs, reviewerID).
		Group("a.project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get %s review stats: %w", kind, err)
	}

	for _, row := range rows {
		stats[row.ProjectID] = ReviewedStat{Reviewed: row.Reviewed, AverageRating: row.AverageRating}
	}
	return stats, nil
}
