// Package handlers provides the REST API handlers for reviews, rubrics and
// project statistics.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/artifactlab/review-scoring/internal/api/middleware"
	"github.com/artifactlab/review-scoring/internal/apperror"
	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/service/access"
	"github.com/artifactlab/review-scoring/internal/service/review"
	"github.com/artifactlab/review-scoring/internal/service/rubric"
	"github.com/artifactlab/review-scoring/internal/service/stats"
	"github.com/artifactlab/review-scoring/pkg/logger"
)

// ReviewService interface for review operations.
type ReviewService interface {
	Submit(ctx context.Context, actor access.Actor, sub review.Submission) (*review.View, error)
	SubmitBulk(ctx context.Context, actor access.Actor, subs []review.Submission) ([]review.BulkResult, error)
	GetCanonicalReview(ctx context.Context, actor access.Actor, kind artifact.Kind, artifactID uint) (*review.View, error)
	GetMyReview(ctx context.Context, actor access.Actor, kind artifact.Kind, artifactID uint) (*review.View, error)
	GetArtifactReviews(ctx context.Context, actor access.Actor, kind artifact.Kind, artifactID uint) ([]*review.View, error)
	SaveGeneralComment(ctx context.Context, actor access.Actor, projectID uint, kind artifact.Kind, comment string) (*models.GeneralComment, error)
	GetGeneralComment(ctx context.Context, actor access.Actor, projectID uint, kind artifact.Kind) (string, error)
	GetReviewData(ctx context.Context, actor access.Actor, projectID uint, kind artifact.Kind) (*review.Data, error)
}

// EvaluationService interface for rubric evaluation operations.
type EvaluationService interface {
	Get(ctx context.Context, actor access.Actor, projectID uint, kind artifact.Kind) (*models.RubricEvaluation, error)
	Save(ctx context.Context, actor access.Actor, upd rubric.EvaluationUpdate) (*models.RubricEvaluation, error)
	CalculateScore(ctx context.Context, actor access.Actor, projectID uint, kind artifact.Kind) (float64, error)
}

// AggregateEngine interface for aggregate rubric reads and recomputes.
type AggregateEngine interface {
	GetAggregate(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error)
	Recompute(ctx context.Context, projectID uint, kind artifact.Kind) (*models.AggregateRubric, error)
}

// StatsService interface for project statistics.
type StatsService interface {
	GetProjectStats(ctx context.Context, actor access.Actor, projectID uint) (*stats.ProjectStats, error)
	GetProjectsStats(ctx context.Context, actor access.Actor, q stats.ListQuery) (*stats.ProjectsPage, error)
}

// ProjectAccess authorizes an actor for a project.
type ProjectAccess interface {
	RequireProject(ctx context.Context, actor access.Actor, projectID uint) (*models.Project, error)
}

// Services groups the handler dependencies.
type Services struct {
	Reviews     ReviewService
	Evaluations EvaluationService
	Aggregates  AggregateEngine
	Stats       StatsService
	Access      ProjectAccess
}

// Handler handles review scoring API requests.
type Handler struct {
	reviews     ReviewService
	evaluations EvaluationService
	aggregates  AggregateEngine
	stats       StatsService
	access      ProjectAccess
	development bool
	log         *logger.Logger
}

// NewHandler creates a new API handler with concrete dependencies.
func NewHandler(
	reviewService *review.Service,
	evaluationService *rubric.EvaluationService,
	engine *rubric.Engine,
	statsService *stats.Service,
	checker *access.Checker,
	development bool,
	log *logger.Logger,
) *Handler {
	return NewHandlerWithInterfaces(Services{
		Reviews:     reviewService,
		Evaluations: evaluationService,
		Aggregates:  engine,
		Stats:       statsService,
		Access:      checker,
	}, development, log)
}

// NewHandlerWithInterfaces creates a new API handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(svc Services, development bool, log *logger.Logger) *Handler {
	return &Handler{
		reviews:     svc.Reviews,
		evaluations: svc.Evaluations,
		aggregates:  svc.Aggregates,
		stats:       svc.Stats,
		access:      svc.Access,
		development: development,
		log:         log,
	}
}

// Helper functions

// actor returns the authenticated caller, answering 401 when there is none.
func (h *Handler) actor(c *gin.Context) (access.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "Authentication required")
	}
	return actor, ok
}

// parseID extracts and validates a numeric id from a URL parameter.
func (h *Handler) parseID(c *gin.Context, param string) (uint, error) {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s: %s", param, idStr)
	}
	return uint(id), nil
}

// parseKind extracts the artifact type from a URL parameter.
func (h *Handler) parseKind(c *gin.Context, param string) (artifact.Kind, error) {
	kind, err := artifact.Parse(c.Param(param))
	if err != nil {
		return 0, fmt.Errorf("invalid artifact type: %s", c.Param(param))
	}
	return kind, nil
}

// parseArtifactRef extracts the :artifactType/:artifactId pair.
func (h *Handler) parseArtifactRef(c *gin.Context) (artifact.Kind, uint, bool) {
	kind, err := h.parseKind(c, "artifactType")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	id, err := h.parseID(c, "artifactId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return kind, id, true
}

// parseProjectKind extracts the :projectId plus the named artifact type parameter.
func (h *Handler) parseProjectKind(c *gin.Context, kindParam string) (uint, artifact.Kind, bool) {
	projectID, err := h.parseID(c, "projectId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	kind, err := h.parseKind(c, kindParam)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return projectID, kind, true
}

// handleError maps a service error to its status and answers with it.
func (h *Handler) handleError(c *gin.Context, err error, logMsg string) {
	appErr := apperror.From(err)
	if appErr.Code >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg(logMsg)
	} else {
		h.log.Debug().Err(err).Int("status", appErr.Code).Msg(logMsg)
	}

	body := gin.H{
		"error":     appErr.Message,
		"timestamp": time.Now().UTC(),
	}
	if h.development && appErr.Err != nil {
		body["detail"] = appErr.Err.Error()
	}
	c.JSON(appErr.Code, body)
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
