// Package access decides which actors may read or write a project's reviews.
package access

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/artifactlab/review-scoring/internal/apperror"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/repository"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint
	Role   string
}

// IsAdmin reports whether the actor holds the Admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// ProjectRepository is the project lookup the checker needs.
type ProjectRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	IsMember(ctx context.Context, projectID, userID uint) (bool, error)
}

// Checker enforces project membership.
type Checker struct {
	projects ProjectRepository
}

// NewChecker creates a checker backed by the project repository.
func NewChecker(projects *repository.ProjectRepository) *Checker {
	return &Checker{projects: projects}
}

// NewCheckerWithInterfaces creates a checker with interface dependencies (for testing).
func NewCheckerWithInterfaces(projects ProjectRepository) *Checker {
	return &Checker{projects: projects}
}

// RequireProject returns the project if the actor is a member or an admin.
// A missing project is NotFound, a non-member is Forbidden.
func (c *Checker) RequireProject(ctx context.Context, actor Actor, projectID uint) (*models.Project, error) {
	project, err := c.projects.GetByID(ctx, projectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("Project not found", err)
	}
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() {
		return project, nil
	}

	member, err := c.projects.IsMember(ctx, projectID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperror.Forbidden("Not authorized to access this project", fmt.Errorf("user %d is not a member of project %d", actor.UserID, projectID))
	}
	return project, nil
}
