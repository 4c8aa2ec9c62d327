package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/artifactlab/review-scoring/internal/service/stats"
)

// GetProjectStats returns the statistics of one project.
// GET /api/v1/projects/:projectId/stats.
func (h *Handler) GetProjectStats(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	projectID, err := h.parseID(c, "projectId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	ps, err := h.stats.GetProjectStats(c.Request.Context(), actor, projectID)
	if err != nil {
		h.handleError(c, err, "Failed to get project stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        ps,
		"generated_at": time.Now().UTC(),
	})
}

// GetProjectsStats returns a page of project statistics.
// GET /api/v1/projects/stats?page=1&limit=10&sort=name&order=asc&search=.
func (h *Handler) GetProjectsStats(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	page, err := h.parsePositiveInt(c, "page", 1)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := h.parsePositiveInt(c, "limit", 10)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.stats.GetProjectsStats(c.Request.Context(), actor, stats.ListQuery{
		Page:   page,
		Limit:  limit,
		Sort:   c.DefaultQuery("sort", "name"),
		Order:  c.DefaultQuery("order", "asc"),
		Search: c.Query("search"),
	})
	if err != nil {
		h.handleError(c, err, "Failed to list project stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects":     result.Projects,
		"pagination":   result.Pagination,
		"generated_at": time.Now().UTC(),
	})
}

// parsePositiveInt extracts an optional positive integer query parameter.
func (h *Handler) parsePositiveInt(c *gin.Context, name string, defaultValue int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %s", name, raw)
	}
	if v < 1 {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return v, nil
}
