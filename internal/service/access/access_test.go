package access

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/artifactlab/review-scoring/internal/apperror"
	"github.com/artifactlab/review-scoring/internal/models"
)

type mockProjectRepository struct {
	mock.Mock
}

func (m *mockProjectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *mockProjectRepository) IsMember(ctx context.Context, projectID, userID uint) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

func TestRequireProject(t *testing.T) {
	project := &models.Project{ID: 1, Name: "alpha"}

	tests := []struct {
		name       string
		actor      Actor
		setup      func(m *mockProjectRepository)
		wantStatus int
	}{
		{
			name:  "member",
			actor: Actor{UserID: 3, Role: models.RoleUser},
			setup: func(m *mockProjectRepository) {
				m.On("GetByID", mock.Anything, uint(1)).Return(project, nil)
				m.On("IsMember", mock.Anything, uint(1), uint(3)).Return(true, nil)
			},
		},
		{
			name:  "admin without membership",
			actor: Actor{UserID: 4, Role: models.RoleAdmin},
			setup: func(m *mockProjectRepository) {
				m.On("GetByID", mock.Anything, uint(1)).Return(project, nil)
			},
		},
		{
			name:  "non member",
			actor: Actor{UserID: 5, Role: models.RoleTeamLead},
			setup: func(m *mockProjectRepository) {
				m.On("GetByID", mock.Anything, uint(1)).Return(project, nil)
				m.On("IsMember", mock.Anything, uint(1), uint(5)).Return(false, nil)
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:  "missing project",
			actor: Actor{UserID: 4, Role: models.RoleAdmin},
			setup: func(m *mockProjectRepository) {
				m.On("GetByID", mock.Anything, uint(1)).Return(nil, fmt.Errorf("failed to get project 1: %w", gorm.ErrRecordNotFound))
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockProjectRepository)
			tt.setup(repo)
			checker := NewCheckerWithInterfaces(repo)

			got, err := checker.RequireProject(context.Background(), tt.actor, 1)
			if tt.wantStatus != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantStatus, apperror.Status(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, project, got)
			repo.AssertExpectations(t)
		})
	}
}
