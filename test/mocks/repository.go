package mocks

import (
	"context"

	"github.com/artifactlab/review-scoring/internal/models"
)

// MockProjectRepository is a simple mock for the project repository.
// Without overrides every project exists and nobody is a member.
type MockProjectRepository struct {
	GetByIDFunc  func(id uint) (*models.Project, error)
	IsMemberFunc func(projectID, userID uint) (bool, error)
}

func (m *MockProjectRepository) GetByID(_ context.Context, id uint) (*models.Project, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	return &models.Project{ID: id}, nil
}

func (m *MockProjectRepository) IsMember(_ context.Context, projectID, userID uint) (bool, error) {
	if m.IsMemberFunc != nil {
		return m.IsMemberFunc(projectID, userID)
	}
	return false, nil
}

// Members returns an IsMemberFunc that admits the given users to every project.
func Members(userIDs ...uint) func(projectID, userID uint) (bool, error) {
	allowed := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		allowed[id] = true
	}
	return func(_, userID uint) (bool, error) {
		return allowed[userID], nil
	}
}
