package review

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/artifactlab/review-scoring/internal/apperror"
	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/repository"
	"github.com/artifactlab/review-scoring/internal/service/access"
	"github.com/artifactlab/review-scoring/pkg/logger"
	"github.com/artifactlab/review-scoring/test/mocks"
)

const systemReviewer uint = 0

var (
	admin    = access.Actor{UserID: 1, Role: models.RoleAdmin}
	member   = access.Actor{UserID: 2, Role: models.RoleUser}
	outsider = access.Actor{UserID: 3, Role: models.RoleUser}
)

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) Recompute(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error) {
	args := m.Called(ctx, projectID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AggregateRubric), args.Error(1)
}

func (m *mockAggregator) GetAggregate(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error) {
	args := m.Called(ctx, projectID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AggregateRubric), args.Error(1)
}

type stubEvaluations struct {
	evals map[uint]*models.RubricEvaluation
}

func (s *stubEvaluations) Find(_ context.Context, _ uint, _ artifact.Kind, userID uint) (*models.RubricEvaluation, error) {
	return s.evals[userID], nil
}

func (s *stubEvaluations) Template(artifact.Kind) []models.RubricCriterion {
	return []models.RubricCriterion{{Name: "Clarity"}}
}

type testEnv struct {
	service    *Service
	aggregator *mockAggregator
	reviews    *repository.ReviewRepository
	artifacts  *repository.ArtifactRepository
	evals      *stubEvaluations
	project    *models.Project
}

func setupTestDB(t *testing.T) *repository.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := &repository.DB{DB: gormDB}
	require.NoError(t, db.AutoMigrate())
	return db
}

func setupTestService(t *testing.T) *testEnv {
	db := setupTestDB(t)

	project := &models.Project{Name: "Checkout"}
	require.NoError(t, repository.NewProjectRepository(db).Create(context.Background(), project))

	projects := &mocks.MockProjectRepository{
		GetByIDFunc: func(id uint) (*models.Project, error) {
			if id != project.ID {
				return nil, gorm.ErrRecordNotFound
			}
			return project, nil
		},
		IsMemberFunc: mocks.Members(member.UserID),
	}

	env := &testEnv{
		aggregator: new(mockAggregator),
		reviews:    repository.NewReviewRepository(db),
		artifacts:  repository.NewArtifactRepository(db),
		evals:      &stubEvaluations{evals: map[uint]*models.RubricEvaluation{}},
		project:    project,
	}
	env.service = NewServiceWithInterfaces(
		env.reviews,
		env.artifacts,
		repository.NewRubricRepository(db),
		env.aggregator,
		env.evals,
		access.NewCheckerWithInterfaces(projects),
		systemReviewer,
		logger.NewNop(),
	)
	return env
}

func (e *testEnv) requirement(t *testing.T) uint {
	req := &models.Requirement{ArtifactBase: models.ArtifactBase{ProjectID: e.project.ID}, Text: "req", Type: models.RequirementFunctional}
	require.NoError(t, e.artifacts.Create(context.Background(), artifact.Requirements, req))
	return req.ID
}

func boolPtr(b bool) *bool {
	return &b
}

func TestSubmit_AdminWritesCanonicalReviewAndRecomputes(t *testing.T) {
	env := setupTestService(t)
	reqID := env.requirement(t)
	env.aggregator.On("Recompute", mock.Anything, env.project.ID, artifact.Requirements).Return(&models.AggregateRubric{}, nil).Once()

	view, err := env.service.Submit(context.Background(), admin, Submission{
		Kind:       artifact.Requirements,
		ArtifactID: reqID,
		Rating:     4,
		Scores:     map[string]float64{"syntaxScore": 5, "categorizationScore": 3},
	})
	require.NoError(t, err)

	assert.True(t, view.Canonical)
	assert.Equal(t, systemReviewer, view.ReviewerID)
	assert.Equal(t, 4.0, view.Rating)
	require.NotNil(t, view.Scores["syntaxScore"])
	assert.Equal(t, 5.0, *view.Scores["syntaxScore"])
	env.aggregator.AssertExpectations(t)
}

func TestSubmit_ResubmissionUpdatesInPlace(t *testing.T) {
	env := setupTestService(t)
	reqID := env.requirement(t)
	env.aggregator.On("Recompute", mock.Anything, env.project.ID, artifact.Requirements).Return(&models.AggregateRubric{}, nil).Twice()

	first, err := env.service.Submit(context.Background(), admin, Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 2})
	require.NoError(t, err)
	second, err := env.service.Submit(context.Background(), admin, Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 5})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	reviews, err := env.reviews.ListByArtifact(context.Background(), artifact.Requirements, reqID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
	env.aggregator.AssertExpectations(t)
}

func TestSubmit_MemberWritesPersonalReviewWithoutRecompute(t *testing.T) {
	env := setupTestService(t)
	reqID := env.requirement(t)

	view, err := env.service.Submit(context.Background(), member, Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 3})
	require.NoError(t, err)

	assert.False(t, view.Canonical)
	assert.Equal(t, member.UserID, view.ReviewerID)
	env.aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_AdminCanWritePersonalReview(t *testing.T) {
	env := setupTestService(t)
	reqID := env.requirement(t)

	view, err := env.service.Submit(context.Background(), admin, Submission{
		Kind: artifact.Requirements, ArtifactID: reqID, Rating: 3, Official: boolPtr(false),
	})
	require.NoError(t, err)
	assert.False(t, view.Canonical)
	assert.Equal(t, admin.UserID, view.ReviewerID)
}

func TestSubmit_Rejections(t *testing.T) {
	env := setupTestService(t)
	reqID := env.requirement(t)

	tests := []struct {
		name       string
		actor      access.Actor
		sub        Submission
		wantStatus int
	}{
		{
			name:       "non admin asks for official",
			actor:      member,
			sub:        Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 3, Official: boolPtr(true)},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "non member",
			actor:      outsider,
			sub:        Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 3},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "rating out of range",
			actor:      admin,
			sub:        Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 6},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "score out of range",
			actor:      admin,
			sub:        Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 3, Scores: map[string]float64{"syntaxScore": -1}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "criterion of another kind",
			actor:      admin,
			sub:        Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 3, Scores: map[string]float64{"flowScore": 2}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid kind",
			actor:      admin,
			sub:        Submission{Kind: artifact.Kind(0), ArtifactID: reqID, Rating: 3},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing artifact",
			actor:      admin,
			sub:        Submission{Kind: artifact.Stories, ArtifactID: 404, Rating: 3},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Submit(context.Background(), tt.actor, tt.sub)
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, apperror.Status(err))
		})
	}

	reviews, err := env.reviews.ListByArtifact(context.Background(), artifact.Requirements, reqID)
	require.NoError(t, err)
	assert.Empty(t, reviews, "rejected submissions write nothing")
	env.aggregator.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_RecomputeFailureDoesNotFailWrite(t *testing.T) {
	env := setupTestService(t)
	reqID := env.requirement(t)
	env.aggregator.On("Recompute", mock.Anything, env.project.ID, artifact.Requirements).Return(nil, errors.New("database is locked"))

	view, err := env.service.Submit(context.Background(), admin, Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, view.Rating)

	stored, err := env.reviews.FindByArtifactAndReviewer(context.Background(), artifact.Requirements, reqID, systemReviewer)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestSubmitBulk_RecomputesEachPairOnce(t *testing.T) {
	env := setupTestService(t)
	r1 := env.requirement(t)
	r2 := env.requirement(t)
	env.aggregator.On("Recompute", mock.Anything, env.project.ID, artifact.Requirements).Return(&models.AggregateRubric{}, nil).Once()

	results, err := env.service.SubmitBulk(context.Background(), admin, []Submission{
		{Kind: artifact.Requirements, ArtifactID: r1, Rating: 4},
		{Kind: artifact.Requirements, ArtifactID: r2, Rating: 9},
		{Kind: artifact.Requirements, ArtifactID: r2, Rating: 5},
	})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "ok", results[0].Status)
	assert.Equal(t, "error", results[1].Status)
	assert.Equal(t, "Rating must be between 0 and 5", results[1].Error)
	assert.Equal(t, "ok", results[2].Status)
	env.aggregator.AssertExpectations(t)
	env.aggregator.AssertNumberOfCalls(t, "Recompute", 1)
}

func TestSubmitBulk_AdminOnly(t *testing.T) {
	env := setupTestService(t)

	_, err := env.service.SubmitBulk(context.Background(), member, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperror.Status(err))
}

func TestGetCanonicalReview_DefaultShape(t *testing.T) {
	env := setupTestService(t)
	reqID := env.requirement(t)

	// a personal review never shows up as canonical
	_, err := env.service.Submit(context.Background(), member, Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 1})
	require.NoError(t, err)

	view, err := env.service.GetCanonicalReview(context.Background(), member, artifact.Requirements, reqID)
	require.NoError(t, err)

	assert.Zero(t, view.ID)
	assert.Zero(t, view.Rating)
	assert.Empty(t, view.Comment)
	assert.Equal(t, "requirements", view.ArtifactType)
	assert.Len(t, view.Scores, 4)
}

func TestGetMyReview_IncludesRubricScores(t *testing.T) {
	env := setupTestService(t)
	reqID := env.requirement(t)
	env.evals.evals[member.UserID] = &models.RubricEvaluation{
		Criteria:     []models.RubricCriterion{{Name: "Clarity", Score: 4}, {Name: "Testability", Score: 2}},
		OverallScore: 3,
	}

	comment := "needs numbers"
	_, err := env.service.Submit(context.Background(), member, Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 2, Comment: &comment})
	require.NoError(t, err)

	view, err := env.service.GetMyReview(context.Background(), member, artifact.Requirements, reqID)
	require.NoError(t, err)

	assert.Equal(t, "needs numbers", view.Comment)
	assert.Equal(t, map[string]float64{"Clarity": 4, "Testability": 2}, view.RubricScores)
	require.NotNil(t, view.OverallRubricScore)
	assert.Equal(t, 3.0, *view.OverallRubricScore)
}

func TestGetArtifactReviews(t *testing.T) {
	env := setupTestService(t)
	reqID := env.requirement(t)
	env.aggregator.On("Recompute", mock.Anything, mock.Anything, mock.Anything).Return(&models.AggregateRubric{}, nil)

	_, err := env.service.Submit(context.Background(), admin, Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 4})
	require.NoError(t, err)
	_, err = env.service.Submit(context.Background(), member, Submission{Kind: artifact.Requirements, ArtifactID: reqID, Rating: 2})
	require.NoError(t, err)

	views, err := env.service.GetArtifactReviews(context.Background(), member, artifact.Requirements, reqID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.True(t, views[0].Canonical)
	assert.False(t, views[1].Canonical)

	_, err = env.service.GetArtifactReviews(context.Background(), outsider, artifact.Requirements, reqID)
	assert.Equal(t, http.StatusForbidden, apperror.Status(err))
}

func TestGeneralComment(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	empty, err := env.service.GetGeneralComment(ctx, member, env.project.ID, artifact.Stories)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = env.service.SaveGeneralComment(ctx, member, env.project.ID, artifact.Stories, "  ")
	assert.Equal(t, http.StatusBadRequest, apperror.Status(err))

	_, err = env.service.SaveGeneralComment(ctx, member, env.project.ID, artifact.Stories, "first")
	require.NoError(t, err)
	_, err = env.service.SaveGeneralComment(ctx, member, env.project.ID, artifact.Stories, "second")
	require.NoError(t, err)

	got, err := env.service.GetGeneralComment(ctx, member, env.project.ID, artifact.Stories)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestGetReviewData(t *testing.T) {
	env := setupTestService(t)
	r1 := env.requirement(t)
	r2 := env.requirement(t)
	agg := &models.AggregateRubric{ProjectID: env.project.ID, ArtifactType: "requirements", ReviewCount: 1}
	env.aggregator.On("Recompute", mock.Anything, env.project.ID, artifact.Requirements).Return(agg, nil)
	env.aggregator.On("GetAggregate", mock.Anything, env.project.ID, artifact.Requirements).Return(agg, nil)

	_, err := env.service.Submit(context.Background(), admin, Submission{Kind: artifact.Requirements, ArtifactID: r2, Rating: 5})
	require.NoError(t, err)

	data, err := env.service.GetReviewData(context.Background(), member, env.project.ID, artifact.Requirements)
	require.NoError(t, err)

	assert.Equal(t, "Checkout", data.ProjectName)
	require.Len(t, data.Artifacts, 2)
	assert.Equal(t, r1, data.Artifacts[0].Artifact.Base().ID)
	assert.False(t, data.Artifacts[0].Reviewed)
	assert.True(t, data.Artifacts[1].Reviewed)
	assert.Equal(t, 5.0, data.Artifacts[1].Rating)
	assert.False(t, data.Artifacts[1].IsEditable)
	assert.Equal(t, "Clarity", data.RubricCriteria[0].Name)
	assert.Same(t, agg, data.Aggregate)
}
