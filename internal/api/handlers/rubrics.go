package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/service/rubric"
)

type saveEvaluationRequest struct {
	ProjectID      uint                     `json:"project_id" binding:"required"`
	RubricType     string                   `json:"rubric_type" binding:"required,artifact_kind"`
	Criteria       []models.RubricCriterion `json:"criteria" binding:"omitempty,dive"`
	GeneralComment *string                  `json:"general_comment"`
}

// GetAggregateRubric returns the aggregate rubric of a project's artifact type.
// GET /api/v1/projects/:projectId/rubrics/:artifactType/aggregate.
func (h *Handler) GetAggregateRubric(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	projectID, kind, ok := h.parseProjectKind(c, "artifactType")
	if !ok {
		return
	}

	if _, err := h.access.RequireProject(c.Request.Context(), actor, projectID); err != nil {
		h.handleError(c, err, "Failed to authorize aggregate read")
		return
	}

	agg, err := h.aggregates.GetAggregate(c.Request.Context(), projectID, kind)
	if err != nil {
		h.handleError(c, err, "Failed to get aggregate rubric")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"aggregate":    agg,
		"generated_at": time.Now().UTC(),
	})
}

// RecomputeAggregate rebuilds the aggregate rubric on demand. Admin only.
// POST /api/v1/projects/:projectId/rubrics/:artifactType/recompute.
func (h *Handler) RecomputeAggregate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		h.errorResponse(c, http.StatusForbidden, "Admin role required")
		return
	}
	projectID, kind, ok := h.parseProjectKind(c, "artifactType")
	if !ok {
		return
	}

	if _, err := h.access.RequireProject(c.Request.Context(), actor, projectID); err != nil {
		h.handleError(c, err, "Failed to authorize aggregate recompute")
		return
	}

	agg, err := h.aggregates.Recompute(c.Request.Context(), projectID, kind)
	if err != nil {
		h.handleError(c, err, "Failed to recompute aggregate rubric")
		return
	}

	h.log.Info().
		Uint("project_id", projectID).
		Str("artifact_type", kind.String()).
		Uint("actor_id", actor.UserID).
		Msg("Aggregate rubric recomputed on demand")

	c.JSON(http.StatusOK, gin.H{
		"aggregate":    agg,
		"generated_at": time.Now().UTC(),
	})
}

// GetRubricEvaluation returns the caller's evaluation, creating it from the template on first access.
// GET /api/v1/rubric-evaluations/:projectId/:rubricType.
func (h *Handler) GetRubricEvaluation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	projectID, kind, ok := h.parseProjectKind(c, "rubricType")
	if !ok {
		return
	}

	eval, err := h.evaluations.Get(c.Request.Context(), actor, projectID, kind)
	if err != nil {
		h.handleError(c, err, "Failed to get rubric evaluation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluation":   eval,
		"generated_at": time.Now().UTC(),
	})
}

// SaveRubricEvaluation stores the caller's evaluation.
// POST /api/v1/rubric-evaluations.
func (h *Handler) SaveRubricEvaluation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req saveEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	kind, _ := artifact.Parse(req.RubricType)

	eval, err := h.evaluations.Save(c.Request.Context(), actor, rubric.EvaluationUpdate{
		ProjectID:      req.ProjectID,
		Kind:           kind,
		Criteria:       req.Criteria,
		GeneralComment: req.GeneralComment,
	})
	if err != nil {
		h.handleError(c, err, "Failed to save rubric evaluation")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"evaluation":   eval,
		"generated_at": time.Now().UTC(),
	})
}

// CalculateRubricScore returns the overall score of the caller's evaluation.
// GET /api/v1/rubric-evaluations/:projectId/:rubricType/calculate-score.
func (h *Handler) CalculateRubricScore(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	projectID, kind, ok := h.parseProjectKind(c, "rubricType")
	if !ok {
		return
	}

	score, err := h.evaluations.CalculateScore(c.Request.Context(), actor, projectID, kind)
	if err != nil {
		h.handleError(c, err, "Failed to calculate rubric score")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project_id":    projectID,
		"rubric_type":   kind.String(),
		"overall_score": score,
		"generated_at":  time.Now().UTC(),
	})
}
