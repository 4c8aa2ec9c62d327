package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/artifactlab/review-scoring/internal/models"
)

// ProjectQuery filters and pages a project listing.
type ProjectQuery struct {
	Search   string // case-insensitive match on name or description
	MemberID *uint  // restrict to projects this user belongs to
	SortBy   string // name, created_at or updated_at
	Desc     bool
	Limit    int
	Offset   int
}

var projectSortColumns = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// IsProjectSortColumn reports whether a sort key is a stored project column.
func IsProjectSortColumn(key string) bool {
	_, ok := projectSortColumns[key]
	return ok
}

// ProjectRepository handles project and membership storage.
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get project %d: %w", id, err)
	}
	return &project, nil
}

// AddMember grants a user access to a project. Adding an existing member is a no-op.
func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID uint) error {
	member := models.ProjectMember{ProjectID: projectID, UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error
	if err != nil {
		return fmt.Errorf("failed to add user %d to project %d: %w", userID, projectID, err)
	}
	return nil
}

// IsMember reports whether a user belongs to a project.
func (r *ProjectRepository) IsMember(ctx context.Context, projectID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check membership of user %d in project %d: %w", userID, projectID, err)
	}
	return count > 0, nil
}

// ListIDs returns the ids of all projects.
func (r *ProjectRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list project ids: %w", err)
	}
	return ids, nil
}

// List returns one page of projects matching the query and the total number of matches.
func (r *ProjectRepository) List(ctx context.Context, q ProjectQuery) ([]models.Project, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Project{})
	if q.MemberID != nil {
		base = base.Where("id IN (?)", r.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", *q.MemberID))
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		base = base.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	column, ok := projectSortColumns[q.SortBy]
	if !ok {
		column = "name"
	}

	var projects []models.Project
	err := base.Session(&gorm.Session{}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: q.Desc}).
		Order("id ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&projects).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, total, nil
}
