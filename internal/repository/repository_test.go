package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// every connection to :memory: is a separate database
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{gdb}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func floatPtr(f float64) *float64 {
	return &f
}

func strPtr(s string) *string {
	return &s
}

func createProject(t *testing.T, db *DB, name string) *models.Project {
	t.Helper()
	p := &models.Project{Name: name, Description: name + " description"}
	require.NoError(t, NewProjectRepository(db).Create(context.Background(), p))
	return p
}

func createRequirement(t *testing.T, db *DB, projectID uint, reqType string) *models.Requirement {
	t.Helper()
	req := &models.Requirement{
		ArtifactBase: models.ArtifactBase{ProjectID: projectID},
		Text:         "The system shall respond",
		Type:         reqType,
	}
	require.NoError(t, NewArtifactRepository(db).Create(context.Background(), artifact.Requirements, req))
	return req
}

func TestValidateReviewTables(t *testing.T) {
	assert.NoError(t, ValidateReviewTables())
}

func TestArtifactRepository_CreateAssignsSequencePerProject(t *testing.T) {
	db := setupTestDB(t)
	p1 := createProject(t, db, "alpha")
	p2 := createProject(t, db, "beta")

	a := createRequirement(t, db, p1.ID, models.RequirementFunctional)
	b := createRequirement(t, db, p1.ID, models.RequirementNonFunctional)
	c := createRequirement(t, db, p2.ID, models.RequirementOther)

	assert.Equal(t, 1, a.Seq)
	assert.Equal(t, 2, b.Seq)
	assert.Equal(t, 1, c.Seq)

	repo := NewArtifactRepository(db)
	ctx := context.Background()

	list, err := repo.ListByProject(ctx, artifact.Requirements, p1.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].Base().ID)

	projectID, err := repo.ProjectOf(ctx, artifact.Requirements, c.ID)
	require.NoError(t, err)
	assert.Equal(t, p2.ID, projectID)

	types, err := repo.RequirementTypes(ctx, []uint{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{a.ID: models.RequirementFunctional, b.ID: models.RequirementNonFunctional}, types)

	exists, err := repo.Exists(ctx, artifact.Stories, 999)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestArtifactRepository_GetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewArtifactRepository(db).GetByID(context.Background(), artifact.Mockups, 42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReviewRepository_UpsertKeepsOneRowPerReviewer(t *testing.T) {
	db := setupTestDB(t)
	p := createProject(t, db, "alpha")
	req := createRequirement(t, db, p.ID, models.RequirementFunctional)

	repo := NewReviewRepository(db)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, artifact.Requirements, ReviewWrite{
		ProjectID:  p.ID,
		ArtifactID: req.ID,
		ReviewerID: 0,
		Rating:     3,
		Comment:    strPtr("first pass"),
		Scores:     map[string]float64{"syntaxScore": 4, "categorizationScore": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, first.Base().Rating)

	second, err := repo.Upsert(ctx, artifact.Requirements, ReviewWrite{
		ProjectID:  p.ID,
		ArtifactID: req.ID,
		ReviewerID: 0,
		Rating:     5,
		Scores:     map[string]float64{"syntaxScore": 5},
	})
	require.NoError(t, err)

	assert.Equal(t, first.Base().ID, second.Base().ID)
	assert.Equal(t, 5.0, second.Base().Rating)
	assert.Equal(t, "first pass", second.Base().Comment, "omitted comment keeps the stored one")

	scores := second.Scores()
	require.NotNil(t, scores["syntaxScore"])
	assert.Equal(t, 5.0, *scores["syntaxScore"])
	require.NotNil(t, scores["categorizationScore"])
	assert.Equal(t, 2.0, *scores["categorizationScore"])
	assert.Nil(t, scores["quantificationScore"])

	count, err := repo.CountByArtifactAndReviewer(ctx, artifact.Requirements, req.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReviewRepository_UpsertRejectsUnknownCriterion(t *testing.T) {
	db := setupTestDB(t)
	p := createProject(t, db, "alpha")
	req := createRequirement(t, db, p.ID, models.RequirementFunctional)

	_, err := NewReviewRepository(db).Upsert(context.Background(), artifact.Requirements, ReviewWrite{
		ProjectID:  p.ID,
		ArtifactID: req.ID,
		Rating:     1,
		Scores:     map[string]float64{"flowScore": 1},
	})
	assert.Error(t, err)
}

func TestReviewRepository_FindMissingReturnsNil(t *testing.T) {
	db := setupTestDB(t)

	review, err := NewReviewRepository(db).FindByArtifactAndReviewer(context.Background(), artifact.Stories, 1, 0)
	require.NoError(t, err)
	assert.Nil(t, review)
}

func TestReviewRepository_ListByArtifact(t *testing.T) {
	db := setupTestDB(t)
	p := createProject(t, db, "alpha")
	req := createRequirement(t, db, p.ID, models.RequirementFunctional)

	repo := NewReviewRepository(db)
	ctx := context.Background()
	for _, reviewer := range []uint{0, 7, 9} {
		_, err := repo.Upsert(ctx, artifact.Requirements, ReviewWrite{
			ProjectID: p.ID, ArtifactID: req.ID, ReviewerID: reviewer, Rating: 2,
		})
		require.NoError(t, err)
	}

	reviews, err := repo.ListByArtifact(ctx, artifact.Requirements, req.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 3)

	mine, err := repo.ListByProjectAndReviewer(ctx, artifact.Requirements, p.ID, 7)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, uint(7), mine[0].Base().ReviewerID)
}

func TestProjectRepository_ListFiltersAndPages(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	alpha := createProject(t, db, "Alpha shop")
	createProject(t, db, "Beta bank")
	gamma := createProject(t, db, "Gamma shop")

	require.NoError(t, repo.AddMember(ctx, alpha.ID, 5))
	require.NoError(t, repo.AddMember(ctx, alpha.ID, 5))
	require.NoError(t, repo.AddMember(ctx, gamma.ID, 5))

	ok, err := repo.IsMember(ctx, alpha.ID, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	projects, total, err := repo.List(ctx, ProjectQuery{Search: "SHOP", SortBy: "name", Desc: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, projects, 2)
	assert.Equal(t, "Gamma shop", projects[0].Name)

	member := uint(5)
	projects, total, err = repo.List(ctx, ProjectQuery{MemberID: &member, SortBy: "name", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, projects, 1)
	assert.Equal(t, "Gamma shop", projects[0].Name)

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestRubricRepository_UpsertAggregateReplaces(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRubricRepository(db)
	ctx := context.Background()

	missing, err := repo.FindAggregate(ctx, 1, artifact.Stories)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.UpsertAggregate(ctx, &models.AggregateRubric{
		ProjectID:        1,
		ArtifactType:     artifact.Stories.String(),
		CriteriaAverages: map[string]float64{"storyFormatScore": 4},
		OverallScore:     4,
		ReviewCount:      1,
	}))
	require.NoError(t, repo.UpsertAggregate(ctx, &models.AggregateRubric{
		ProjectID:        1,
		ArtifactType:     artifact.Stories.String(),
		CriteriaAverages: map[string]float64{"storyFormatScore": 2, "featureCompletionScore": 1},
		OverallScore:     1.5,
		ReviewCount:      2,
	}))

	var count int64
	require.NoError(t, db.Model(&models.AggregateRubric{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	agg, err := repo.FindAggregate(ctx, 1, artifact.Stories)
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, "stories", agg.ArtifactType)
	assert.Equal(t, map[string]float64{"storyFormatScore": 2, "featureCompletionScore": 1}, agg.CriteriaAverages)
	assert.Equal(t, 2, agg.ReviewCount)
}

func TestRubricRepository_Evaluations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRubricRepository(db)
	ctx := context.Background()

	created, err := repo.CreateEvaluationIfMissing(ctx, &models.RubricEvaluation{
		ProjectID:   1,
		RubricType:  "mockups",
		EvaluatorID: 3,
		Criteria:    []models.RubricCriterion{{Name: "Layout", Score: 0}},
	})
	require.NoError(t, err)

	again, err := repo.CreateEvaluationIfMissing(ctx, &models.RubricEvaluation{
		ProjectID:   1,
		RubricType:  "mockups",
		EvaluatorID: 3,
		Criteria:    []models.RubricCriterion{{Name: "Other", Score: 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Layout", again.Criteria[0].Name)

	again.Criteria[0].Score = 4
	again.OverallScore = 4
	require.NoError(t, repo.SaveEvaluation(ctx, again))

	stored, err := repo.FindEvaluation(ctx, 1, artifact.Mockups, 3)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 4.0, stored.OverallScore)
	assert.Equal(t, 4.0, stored.Criteria[0].Score)
}

func TestRubricRepository_GeneralComments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRubricRepository(db)
	ctx := context.Background()

	none, err := repo.FindGeneralComment(ctx, 2, 1, artifact.ClassDiagrams)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.SaveGeneralComment(ctx, &models.GeneralComment{UserID: 2, ProjectID: 1, ArtifactType: "classDiagrams", Comment: "v1"}))
	require.NoError(t, repo.SaveGeneralComment(ctx, &models.GeneralComment{UserID: 2, ProjectID: 1, ArtifactType: "classDiagrams", Comment: "v2"}))

	got, err := repo.FindGeneralComment(ctx, 2, 1, artifact.ClassDiagrams)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v2", got.Comment)
}

func TestStatsRepository_CountsDistinctCanonicalReviews(t *testing.T) {
	db := setupTestDB(t)
	p := createProject(t, db, "alpha")
	other := createProject(t, db, "beta")

	r1 := createRequirement(t, db, p.ID, models.RequirementFunctional)
	r2 := createRequirement(t, db, p.ID, models.RequirementFunctional)
	createRequirement(t, db, p.ID, models.RequirementOther)
	createRequirement(t, db, other.ID, models.RequirementOther)

	reviews := NewReviewRepository(db)
	ctx := context.Background()
	for _, w := range []ReviewWrite{
		{ProjectID: p.ID, ArtifactID: r1.ID, ReviewerID: 0, Rating: 4},
		{ProjectID: p.ID, ArtifactID: r2.ID, ReviewerID: 0, Rating: 3},
		{ProjectID: p.ID, ArtifactID: r1.ID, ReviewerID: 8, Rating: 1},
	} {
		_, err := reviews.Upsert(ctx, artifact.Requirements, w)
		require.NoError(t, err)
	}

	repo := NewStatsRepository(db)

	counts, err := repo.CountArtifacts(ctx, artifact.Requirements, []uint{p.ID, other.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{p.ID: 3, other.ID: 1}, counts)

	stats, err := repo.ReviewedStats(ctx, artifact.Requirements, []uint{p.ID, other.ID}, 0)
	require.NoError(t, err)
	require.Contains(t, stats, p.ID)
	assert.Equal(t, int64(2), stats[p.ID].Reviewed)
	assert.InDelta(t, 3.5, stats[p.ID].AverageRating, 1e-9)
	assert.NotContains(t, stats, other.ID)
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", Role: models.RoleTeamLead}
	require.NoError(t, repo.Create(ctx, user))
	require.NotZero(t, user.ID)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	assert.Equal(t, models.RoleTeamLead, byName.Role)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = repo.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", Role: models.RoleUser})
	assert.Error(t, err, "username is unique")
}
