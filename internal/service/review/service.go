// Package review handles review submission and the read views built on reviews.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/artifactlab/review-scoring/internal/apperror"
	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/metrics"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/repository"
	"github.com/artifactlab/review-scoring/internal/service/access"
	"github.com/artifactlab/review-scoring/internal/service/rubric"
	"github.com/artifactlab/review-scoring/pkg/logger"
)

// ReviewRepository interface for review storage.
type ReviewRepository interface {
	FindByArtifactAndReviewer(ctx context.Context, kind artifact.Kind, artifactID, reviewerID uint) (models.Review, error)
	ListByArtifact(ctx context.Context, kind artifact.Kind, artifactID uint) ([]models.Review, error)
	ListByArtifactsAndReviewer(ctx context.Context, kind artifact.Kind, artifactIDs []uint, reviewerID uint) ([]models.Review, error)
	Upsert(ctx context.Context, kind artifact.Kind, w repository.ReviewWrite) (models.Review, error)
}

// ArtifactRepository interface for artifact lookups.
type ArtifactRepository interface {
	ProjectOf(ctx context.Context, kind artifact.Kind, id uint) (uint, error)
	ListByProject(ctx context.Context, kind artifact.Kind, projectID uint) ([]models.Artifact, error)
}

// CommentRepository interface for general comments.
type CommentRepository interface {
	FindGeneralComment(ctx context.Context, userID, projectID uint, kind artifact.Kind) (*models.GeneralComment, error)
	SaveGeneralComment(ctx context.Context, comment *models.GeneralComment) error
}

// Aggregator recomputes and reads aggregate rubrics.
type Aggregator interface {
	Recompute(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error)
	GetAggregate(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error)
}

// Evaluations gives access to users' rubric evaluations.
type Evaluations interface {
	Find(ctx context.Context, projectID uint, kind artifact.Kind, userID uint) (*models.RubricEvaluation, error)
	Template(kind artifact.Kind) []models.RubricCriterion
}

// ProjectAccess authorizes an actor for a project.
type ProjectAccess interface {
	RequireProject(ctx context.Context, actor access.Actor, projectID uint) (*models.Project, error)
}

// Service handles review writes and review read views.
type Service struct {
	reviews          ReviewRepository
	artifacts        ArtifactRepository
	comments         CommentRepository
	aggregator       Aggregator
	evaluations      Evaluations
	access           ProjectAccess
	systemReviewerID uint
	log              *logger.Logger
}

// NewService creates a new review service with concrete dependencies.
func NewService(
	reviews *repository.ReviewRepository,
	artifacts *repository.ArtifactRepository,
	comments *repository.RubricRepository,
	engine *rubric.Engine,
	evaluations *rubric.EvaluationService,
	checker *access.Checker,
	systemReviewerID uint,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(reviews, artifacts, comments, engine, evaluations, checker, systemReviewerID, log)
}

// NewServiceWithInterfaces creates a new review service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	reviews ReviewRepository,
	artifacts ArtifactRepository,
	comments CommentRepository,
	aggregator Aggregator,
	evaluations Evaluations,
	projectAccess ProjectAccess,
	systemReviewerID uint,
	log *logger.Logger,
) *Service {
	return &Service{
		reviews:          reviews,
		artifacts:        artifacts,
		comments:         comments,
		aggregator:       aggregator,
		evaluations:      evaluations,
		access:           projectAccess,
		systemReviewerID: systemReviewerID,
		log:              log,
	}
}

// Submission is a review write request.
type Submission struct {
	Kind       artifact.Kind
	ArtifactID uint
	Rating     float64
	Comment    *string
	Scores     map[string]float64
	// Official asks for the canonical review. Nil means canonical for admins
	// and personal for everyone else.
	Official *bool
}

// View is the external shape of a review.
type View struct {
	ID                 uint                `json:"id,omitempty"`
	ArtifactType       string              `json:"artifact_type"`
	ArtifactID         uint                `json:"artifact_id"`
	ProjectID          uint                `json:"project_id,omitempty"`
	ReviewerID         uint                `json:"reviewer_id"`
	Canonical          bool                `json:"canonical"`
	Rating             float64             `json:"rating"`
	Comment            string              `json:"comment"`
	Scores             map[string]*float64 `json:"scores"`
	CreatedAt          *time.Time          `json:"created_at,omitempty"`
	UpdatedAt          *time.Time          `json:"updated_at,omitempty"`
	RubricScores       map[string]float64  `json:"rubric_scores,omitempty"`
	OverallRubricScore *float64            `json:"overall_rubric_score,omitempty"`
}

func blankScores(kind artifact.Kind) map[string]*float64 {
	names := kind.Descriptor().CriterionNames()
	scores := make(map[string]*float64, len(names))
	for _, name := range names {
		scores[name] = nil
	}
	return scores
}

func (s *Service) view(kind artifact.Kind, r models.Review) *View {
	b := r.Base()
	created, updated := b.CreatedAt, b.UpdatedAt
	return &View{
		ID:           b.ID,
		ArtifactType: kind.String(),
		ArtifactID:   b.ArtifactID,
		ProjectID:    b.ProjectID,
		ReviewerID:   b.ReviewerID,
		Canonical:    b.ReviewerID == s.systemReviewerID,
		Rating:       b.Rating,
		Comment:      b.Comment,
		Scores:       r.Scores(),
		CreatedAt:    &created,
		UpdatedAt:    &updated,
	}
}

// emptyView is the shape returned for an artifact that has no review yet.
func emptyView(kind artifact.Kind, artifactID, reviewerID uint, canonical bool) *View {
	return &View{
		ArtifactType: kind.String(),
		ArtifactID:   artifactID,
		ReviewerID:   reviewerID,
		Canonical:    canonical,
		Scores:       blankScores(kind),
	}
}

func validateSubmission(sub Submission) error {
	if !sub.Kind.Valid() {
		return apperror.BadRequest("Invalid artifact type", artifact.ErrInvalidKind)
	}
	if sub.ArtifactID == 0 {
		return apperror.BadRequest("Artifact id is required", nil)
	}
	if sub.Rating < 0 || sub.Rating > 5 {
		return apperror.BadRequest("Rating must be between 0 and 5", nil)
	}
	d := sub.Kind.Descriptor()
	for name, score := range sub.Scores {
		if _, ok := d.Column(name); !ok {
			return apperror.BadRequest(fmt.Sprintf("Unknown %s criterion %q (expected one of %s)", d.Key, name, strings.Join(d.CriterionNames(), ", ")), nil)
		}
		if score < 0 || score > 5 {
			return apperror.BadRequest(fmt.Sprintf("Score %q must be between 0 and 5", name), nil)
		}
	}
	return nil
}

// projectOfArtifact resolves the owning project and checks the actor may use it.
func (s *Service) projectOfArtifact(ctx context.Context, actor access.Actor, kind artifact.Kind, artifactID uint) (uint, error) {
	projectID, err := s.artifacts.ProjectOf(ctx, kind, artifactID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperror.NotFound("Artifact not found", err)
	}
	if err != nil {
		return 0, err
	}
	if _, err := s.access.RequireProject(ctx, actor, projectID); err != nil {
		return 0, err
	}
	return projectID, nil
}

// write stores a submission without recomputing and reports the project it belongs to.
func (s *Service) write(ctx context.Context, actor access.Actor, sub Submission) (*View, uint, error) {
	if err := validateSubmission(sub); err != nil {
		return nil, 0, err
	}

	official := actor.IsAdmin()
	if sub.Official != nil {
		official = *sub.Official
	}
	if official && !actor.IsAdmin() {
		return nil, 0, apperror.Forbidden("Only admins can submit official reviews", nil)
	}

	projectID, err := s.projectOfArtifact(ctx, actor, sub.Kind, sub.ArtifactID)
	if err != nil {
		return nil, 0, err
	}

	reviewerID := actor.UserID
	if official {
		reviewerID = s.systemReviewerID
	}

	stored, err := s.reviews.Upsert(ctx, sub.Kind, repository.ReviewWrite{
		ProjectID:  projectID,
		ArtifactID: sub.ArtifactID,
		ReviewerID: reviewerID,
		Rating:     sub.Rating,
		Comment:    sub.Comment,
		Scores:     sub.Scores,
	})
	if err != nil {
		return nil, 0, err
	}
	metrics.RecordReviewSubmitted(sub.Kind.String(), official)

	s.log.Info().
		Str("artifact_type", sub.Kind.String()).
		Uint("artifact_id", sub.ArtifactID).
		Uint("project_id", projectID).
		Uint("actor_id", actor.UserID).
		Bool("official", official).
		Float64("rating", sub.Rating).
		Msg("Review saved")

	return s.view(sub.Kind, stored), projectID, nil
}

// recompute refreshes an aggregate. A failure leaves the aggregate stale and
// is only logged; the review itself is already stored.
func (s *Service) recompute(ctx context.Context, projectID uint, kind artifact.Kind) {
	if _, err := s.aggregator.Recompute(ctx, projectID, kind); err != nil {
		s.log.Error().
			Err(err).
			Uint("project_id", projectID).
			Str("artifact_type", kind.String()).
			Msg("Failed to recompute aggregate rubric")
	}
}

// Submit stores a review and, for a canonical review, recomputes the
// aggregate of the artifact's (project, kind).
func (s *Service) Submit(ctx context.Context, actor access.Actor, sub Submission) (*View, error) {
	view, projectID, err := s.write(ctx, actor, sub)
	if err != nil {
		return nil, err
	}
	if view.Canonical {
		s.recompute(ctx, projectID, sub.Kind)
	}
	return view, nil
}

// BulkResult is the outcome of one item of a bulk submission.
type BulkResult struct {
	ArtifactType string `json:"artifact_type"`
	ArtifactID   uint   `json:"artifact_id"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

type aggregateKey struct {
	projectID uint
	kind      artifact.Kind
}

// SubmitBulk stores canonical reviews for many artifacts, then recomputes each
// touched (project, kind) once. Items fail independently.
func (s *Service) SubmitBulk(ctx context.Context, actor access.Actor, subs []Submission) ([]BulkResult, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("Only admins can submit bulk reviews", nil)
	}

	official := true
	results := make([]BulkResult, 0, len(subs))
	touched := make(map[aggregateKey]bool)
	var order []aggregateKey

	for _, sub := range subs {
		sub.Official = &official
		result := BulkResult{ArtifactType: sub.Kind.String(), ArtifactID: sub.ArtifactID, Status: "ok"}

		_, projectID, err := s.write(ctx, actor, sub)
		if err != nil {
			result.Status = "error"
			result.Error = apperror.From(err).Message
			results = append(results, result)
			continue
		}
		results = append(results, result)

		key := aggregateKey{projectID: projectID, kind: sub.Kind}
		if !touched[key] {
			touched[key] = true
			order = append(order, key)
		}
	}

	for _, key := range order {
		s.recompute(ctx, key.projectID, key.kind)
	}

	return results, nil
}

// GetCanonicalReview returns the canonical review of an artifact, or the empty
// shape when it has not been officially reviewed yet.
func (s *Service) GetCanonicalReview(ctx context.Context, actor access.Actor, kind artifact.Kind, artifactID uint) (*View, error) {
	if _, err := s.projectOfArtifact(ctx, actor, kind, artifactID); err != nil {
		return nil, err
	}

	r, err := s.reviews.FindByArtifactAndReviewer(ctx, kind, artifactID, s.systemReviewerID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return emptyView(kind, artifactID, s.systemReviewerID, true), nil
	}
	return s.view(kind, r), nil
}

// GetMyReview returns the actor's own review of an artifact together with the
// actor's rubric evaluation scores for the kind.
func (s *Service) GetMyReview(ctx context.Context, actor access.Actor, kind artifact.Kind, artifactID uint) (*View, error) {
	projectID, err := s.projectOfArtifact(ctx, actor, kind, artifactID)
	if err != nil {
		return nil, err
	}

	r, err := s.reviews.FindByArtifactAndReviewer(ctx, kind, artifactID, actor.UserID)
	if err != nil {
		return nil, err
	}
	view := emptyView(kind, artifactID, actor.UserID, actor.UserID == s.systemReviewerID)
	if r != nil {
		view = s.view(kind, r)
	}

	eval, err := s.evaluations.Find(ctx, projectID, kind, actor.UserID)
	if err != nil {
		s.log.Warn().Err(err).Uint("project_id", projectID).Msg("Failed to load rubric scores")
		return view, nil
	}
	if eval != nil {
		view.RubricScores = make(map[string]float64, len(eval.Criteria))
		for _, c := range eval.Criteria {
			view.RubricScores[c.Name] = c.Score
		}
		overall := eval.OverallScore
		view.OverallRubricScore = &overall
	}
	return view, nil
}

// GetArtifactReviews returns every review of an artifact, oldest first.
func (s *Service) GetArtifactReviews(ctx context.Context, actor access.Actor, kind artifact.Kind, artifactID uint) ([]*View, error) {
	if _, err := s.projectOfArtifact(ctx, actor, kind, artifactID); err != nil {
		return nil, err
	}

	reviews, err := s.reviews.ListByArtifact(ctx, kind, artifactID)
	if err != nil {
		return nil, err
	}
	views := make([]*View, len(reviews))
	for i, r := range reviews {
		views[i] = s.view(kind, r)
	}
	return views, nil
}

// SaveGeneralComment stores the actor's general comment on a kind within a project.
func (s *Service) SaveGeneralComment(ctx context.Context, actor access.Actor, projectID uint, kind artifact.Kind, comment string) (*models.GeneralComment, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, apperror.BadRequest("Comment is required", nil)
	}
	if _, err := s.access.RequireProject(ctx, actor, projectID); err != nil {
		return nil, err
	}

	gc := &models.GeneralComment{
		UserID:       actor.UserID,
		ProjectID:    projectID,
		ArtifactType: kind.String(),
		Comment:      comment,
	}
	if err := s.comments.SaveGeneralComment(ctx, gc); err != nil {
		return nil, err
	}
	return gc, nil
}

// GetGeneralComment returns the actor's general comment, or "" when there is none.
func (s *Service) GetGeneralComment(ctx context.Context, actor access.Actor, projectID uint, kind artifact.Kind) (string, error) {
	if _, err := s.access.RequireProject(ctx, actor, projectID); err != nil {
		return "", err
	}

	gc, err := s.comments.FindGeneralComment(ctx, actor.UserID, projectID, kind)
	if err != nil {
		return "", err
	}
	if gc == nil {
		return "", nil
	}
	return gc.Comment, nil
}
