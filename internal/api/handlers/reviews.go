package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/service/review"
)

type submitReviewRequest struct {
	ArtifactType string             `json:"artifact_type" binding:"required,artifact_kind"`
	ArtifactID   uint               `json:"artifact_id" binding:"required"`
	Rating       *float64           `json:"rating" binding:"required,gte=0,lte=5"`
	Comment      *string            `json:"comment"`
	Scores       map[string]float64 `json:"scores"`
	Official     *bool              `json:"official"`
}

func (r submitReviewRequest) submission() review.Submission {
	// artifact_kind has already been validated.
	kind, _ := artifact.Parse(r.ArtifactType)
	return review.Submission{
		Kind:       kind,
		ArtifactID: r.ArtifactID,
		Rating:     *r.Rating,
		Comment:    r.Comment,
		Scores:     r.Scores,
		Official:   r.Official,
	}
}

type bulkReviewRequest struct {
	Reviews []submitReviewRequest `json:"reviews" binding:"required,min=1,dive"`
}

type generalCommentRequest struct {
	ProjectID    uint   `json:"project_id" binding:"required"`
	ArtifactType string `json:"artifact_type" binding:"required,artifact_kind"`
	Comment      string `json:"comment" binding:"required"`
}

// SubmitReview stores a review.
// POST /api/v1/reviews.
func (h *Handler) SubmitReview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	view, err := h.reviews.Submit(c.Request.Context(), actor, req.submission())
	if err != nil {
		h.handleError(c, err, "Failed to submit review")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"review":       view,
		"generated_at": time.Now().UTC(),
	})
}

// SubmitBulkReviews stores canonical reviews for many artifacts.
// POST /api/v1/reviews/bulk.
func (h *Handler) SubmitBulkReviews(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req bulkReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	subs := make([]review.Submission, len(req.Reviews))
	for i, r := range req.Reviews {
		subs[i] = r.submission()
	}

	results, err := h.reviews.SubmitBulk(c.Request.Context(), actor, subs)
	if err != nil {
		h.handleError(c, err, "Failed to submit bulk reviews")
		return
	}

	failed := 0
	for _, r := range results {
		if r.Status != "ok" {
			failed++
		}
	}

	h.log.Info().
		Uint("actor_id", actor.UserID).
		Int("items", len(results)).
		Int("failed", failed).
		Msg("Bulk reviews submitted")

	c.JSON(http.StatusOK, gin.H{
		"results":      results,
		"generated_at": time.Now().UTC(),
	})
}

// GetMyReview returns the caller's own review of an artifact.
// GET /api/v1/reviews/my/:artifactType/:artifactId.
func (h *Handler) GetMyReview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	kind, artifactID, ok := h.parseArtifactRef(c)
	if !ok {
		return
	}

	view, err := h.reviews.GetMyReview(c.Request.Context(), actor, kind, artifactID)
	if err != nil {
		h.handleError(c, err, "Failed to get review")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"review":       view,
		"generated_at": time.Now().UTC(),
	})
}

// GetCanonicalReview returns the canonical review of an artifact.
// GET /api/v1/reviews/canonical/:artifactType/:artifactId.
func (h *Handler) GetCanonicalReview(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	kind, artifactID, ok := h.parseArtifactRef(c)
	if !ok {
		return
	}

	view, err := h.reviews.GetCanonicalReview(c.Request.Context(), actor, kind, artifactID)
	if err != nil {
		h.handleError(c, err, "Failed to get canonical review")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"review":       view,
		"generated_at": time.Now().UTC(),
	})
}

// GetArtifactReviews returns every review of an artifact.
// GET /api/v1/reviews/:artifactType/:artifactId.
func (h *Handler) GetArtifactReviews(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	kind, artifactID, ok := h.parseArtifactRef(c)
	if !ok {
		return
	}

	views, err := h.reviews.GetArtifactReviews(c.Request.Context(), actor, kind, artifactID)
	if err != nil {
		h.handleError(c, err, "Failed to list artifact reviews")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews":       views,
		"total_reviews": len(views),
		"generated_at":  time.Now().UTC(),
	})
}

// SaveGeneralComment stores the caller's general comment on an artifact type.
// POST /api/v1/reviews/general-comment.
func (h *Handler) SaveGeneralComment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req generalCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	kind, _ := artifact.Parse(req.ArtifactType)

	gc, err := h.reviews.SaveGeneralComment(c.Request.Context(), actor, req.ProjectID, kind, req.Comment)
	if err != nil {
		h.handleError(c, err, "Failed to save general comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"general_comment": gc,
		"generated_at":    time.Now().UTC(),
	})
}

// GetGeneralComment returns the caller's general comment, "" when absent.
// GET /api/v1/reviews/general-comment/:projectId/:artifactType.
func (h *Handler) GetGeneralComment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	projectID, kind, ok := h.parseProjectKind(c, "artifactType")
	if !ok {
		return
	}

	comment, err := h.reviews.GetGeneralComment(c.Request.Context(), actor, projectID, kind)
	if err != nil {
		h.handleError(c, err, "Failed to get general comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project_id":    projectID,
		"artifact_type": kind.String(),
		"comment":       comment,
		"generated_at":  time.Now().UTC(),
	})
}

// GetReviewData returns a project's artifacts of one type with their review state.
// GET /api/v1/projects/:projectId/review-data/:artifactType.
func (h *Handler) GetReviewData(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	projectID, kind, ok := h.parseProjectKind(c, "artifactType")
	if !ok {
		return
	}

	data, err := h.reviews.GetReviewData(c.Request.Context(), actor, projectID, kind)
	if err != nil {
		h.handleError(c, err, "Failed to get review data")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":         data,
		"generated_at": time.Now().UTC(),
	})
}
