// Package stats computes review coverage and grade statistics per project.
package stats

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/artifactlab/review-scoring/internal/apperror"
	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/metrics"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/repository"
	"github.com/artifactlab/review-scoring/internal/service/access"
	"github.com/artifactlab/review-scoring/pkg/logger"
)

// StatsRepository interface for grouped counts.
type StatsRepository interface {
	CountArtifacts(ctx context.Context, kind artifact.Kind, projectIDs []uint) (map[uint]int64, error)
	ReviewedStats(ctx context.Context, kind artifact.Kind, projectIDs []uint, reviewerID uint) (map[uint]repository.ReviewedStat, error)
}

// ProjectRepository interface for project listing.
type ProjectRepository interface {
	List(ctx context.Context, q repository.ProjectQuery) ([]models.Project, int64, error)
}

// ProjectAccess authorizes an actor for a project.
type ProjectAccess interface {
	RequireProject(ctx context.Context, actor access.Actor, projectID uint) (*models.Project, error)
}

// KindStats is the coverage of one artifact type.
type KindStats struct {
	Total         int64   `json:"total"`
	Reviewed      int64   `json:"reviewed"`
	AverageRating float64 `json:"average_rating"`
}

// ProjectStats is the statistics view of one project. It is never stored.
type ProjectStats struct {
	ProjectID            uint                 `json:"project_id"`
	Name                 string               `json:"name"`
	Description          string               `json:"description"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	ByType               map[string]KindStats `json:"by_type"`
	TotalArtifacts       int64                `json:"total_artifacts"`
	TotalReviews         int64                `json:"total_reviews"`
	OverallAverageGrade  float64              `json:"overall_average_grade"`
	CompletionPercentage float64              `json:"completion_percentage"`
}

// Service computes project statistics from artifact and canonical review counts.
type Service struct {
	stats            StatsRepository
	projects         ProjectRepository
	access           ProjectAccess
	systemReviewerID uint
	log              *logger.Logger
}

// NewService creates a new stats service with concrete dependencies.
func NewService(
	statsRepo *repository.StatsRepository,
	projects *repository.ProjectRepository,
	checker *access.Checker,
	systemReviewerID uint,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(statsRepo, projects, checker, systemReviewerID, log)
}

// NewServiceWithInterfaces creates a new stats service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	statsRepo StatsRepository,
	projects ProjectRepository,
	projectAccess ProjectAccess,
	systemReviewerID uint,
	log *logger.Logger,
) *Service {
	return &Service{
		stats:            statsRepo,
		projects:         projects,
		access:           projectAccess,
		systemReviewerID: systemReviewerID,
		log:              log,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type kindCounts struct {
	totals   map[uint]int64
	reviewed map[uint]repository.ReviewedStat
}

// compute builds the statistics of the given projects, querying each kind in parallel.
func (s *Service) compute(ctx context.Context, projects []models.Project) ([]ProjectStats, error) {
	if len(projects) == 0 {
		return []ProjectStats{}, nil
	}
	ids := make([]uint, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}

	kinds := artifact.All()
	counts := make([]kindCounts, len(kinds))

	g, gCtx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			totals, err := s.stats.CountArtifacts(gCtx, kind, ids)
			if err != nil {
				return err
			}
			reviewed, err := s.stats.ReviewedStats(gCtx, kind, ids, s.systemReviewerID)
			if err != nil {
				return err
			}
			counts[i] = kindCounts{totals: totals, reviewed: reviewed}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]ProjectStats, len(projects))
	for pi, p := range projects {
		ps := ProjectStats{
			ProjectID:   p.ID,
			Name:        p.Name,
			Description: p.Description,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
			ByType:      make(map[string]KindStats, len(kinds)),
		}
		for ki, kind := range kinds {
			r := counts[ki].reviewed[p.ID]
			ps.ByType[kind.String()] = KindStats{
				Total:         counts[ki].totals[p.ID],
				Reviewed:      r.Reviewed,
				AverageRating: round2(r.AverageRating),
			}
		}
		derive(&ps)
		out[pi] = ps
	}
	return out, nil
}

// derive fills the project totals. The overall grade averages only the types
// that have a rating above zero, so untouched types do not dilute it.
func derive(ps *ProjectStats) {
	var gradeSum float64
	var graded int
	for _, ks := range ps.ByType {
		ps.TotalArtifacts += ks.Total
		ps.TotalReviews += ks.Reviewed
		if ks.AverageRating > 0 {
			gradeSum += ks.AverageRating
			graded++
		}
	}
	if graded > 0 {
		ps.OverallAverageGrade = round2(gradeSum / float64(graded))
	}
	if ps.TotalArtifacts > 0 {
		ps.CompletionPercentage = round2(float64(ps.TotalReviews) / float64(ps.TotalArtifacts) * 100)
	}
}

// GetProjectStats returns the statistics of one project.
func (s *Service) GetProjectStats(ctx context.Context, actor access.Actor, projectID uint) (*ProjectStats, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveProjectStats("project", time.Since(start).Seconds())
	}()

	project, err := s.access.RequireProject(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	stats, err := s.compute(ctx, []models.Project{*project})
	if err != nil {
		return nil, err
	}
	return &stats[0], nil
}

// ListQuery selects a page of projects.
type ListQuery struct {
	Page   int
	Limit  int
	Sort   string
	Order  string // asc or desc
	Search string
}

// Pagination describes the returned page.
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalItems   int64 `json:"total_items"`
	ItemsPerPage int   `json:"items_per_page"`
}

// ProjectsPage is one page of project statistics.
type ProjectsPage struct {
	Projects   []ProjectStats `json:"projects"`
	Pagination Pagination     `json:"pagination"`
}

const (
	defaultLimit = 10
	maxLimit     = 100
)

// derivedSortKeys are computed values that can only be ordered in memory.
var derivedSortKeys = map[string]func(ProjectStats) float64{
	"overallAverageGrade":  func(p ProjectStats) float64 { return p.OverallAverageGrade },
	"completionPercentage": func(p ProjectStats) float64 { return p.CompletionPercentage },
	"totalArtifacts":       func(p ProjectStats) float64 { return float64(p.TotalArtifacts) },
}

// GetProjectsStats returns a page of project statistics. Admins see every
// project, everyone else only the projects they belong to. A derived sort key
// orders the fetched page only.
func (s *Service) GetProjectsStats(ctx context.Context, actor access.Actor, q ListQuery) (*ProjectsPage, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveProjectStats("list", time.Since(start).Seconds())
	}()

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Sort == "" {
		q.Sort = "name"
	}
	var desc bool
	switch q.Order {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return nil, apperror.BadRequest("Order must be asc or desc", nil)
	}

	derivedKey, derived := derivedSortKeys[q.Sort]
	if !derived && !repository.IsProjectSortColumn(q.Sort) {
		return nil, apperror.BadRequest("Invalid sort key: "+q.Sort, nil)
	}

	query := repository.ProjectQuery{
		Search: q.Search,
		SortBy: q.Sort,
		Desc:   desc,
		Limit:  q.Limit,
		Offset: (q.Page - 1) * q.Limit,
	}
	if derived {
		query.SortBy = "name"
		query.Desc = false
	}
	if !actor.IsAdmin() {
		memberID := actor.UserID
		query.MemberID = &memberID
	}

	projects, total, err := s.projects.List(ctx, query)
	if err != nil {
		return nil, err
	}

	stats, err := s.compute(ctx, projects)
	if err != nil {
		return nil, err
	}

	if derived {
		sort.SliceStable(stats, func(i, j int) bool {
			if desc {
				return derivedKey(stats[i]) > derivedKey(stats[j])
			}
			return derivedKey(stats[i]) < derivedKey(stats[j])
		})
	}

	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))

	s.log.Debug().
		Uint("actor_id", actor.UserID).
		Int("page", q.Page).
		Int("returned", len(stats)).
		Int64("total", total).
		Str("sort", q.Sort).
		Msg("Project statistics listed")

	return &ProjectsPage{
		Projects: stats,
		Pagination: Pagination{
			CurrentPage:  q.Page,
			TotalPages:   totalPages,
			TotalItems:   total,
			ItemsPerPage: q.Limit,
		},
	}, nil
}
