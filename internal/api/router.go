// Package api assembles the HTTP router of the review scoring service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artifactlab/review-scoring/internal/api/handlers"
	"github.com/artifactlab/review-scoring/internal/api/middleware"
	"github.com/artifactlab/review-scoring/internal/config"
	"github.com/artifactlab/review-scoring/pkg/logger"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterOptions holds what the router needs besides the handler.
type RouterOptions struct {
	Server  config.ServerConfig
	Metrics config.PrometheusConfig
	Auth    *middleware.Auth
	// Checks are probed by /health, keyed by dependency name.
	Checks map[string]HealthCheck
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *handlers.Handler, opts RouterOptions, log *logger.Logger) (*gin.Engine, error) {
	if !opts.Server.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(log),
		middleware.CORS(opts.Server.IsDevelopment(), opts.Server.AllowedOrigins),
	)

	router.GET("/health", healthHandler(opts.Checks))
	if opts.Metrics.Enabled {
		router.GET(opts.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1", opts.Auth.Authenticate())

	reviews := v1.Group("/reviews")
	reviews.POST("", h.SubmitReview)
	reviews.POST("/bulk", middleware.RequireAdmin(), h.SubmitBulkReviews)
	reviews.POST("/general-comment", h.SaveGeneralComment)
	reviews.GET("/general-comment/:projectId/:artifactType", h.GetGeneralComment)
	reviews.GET("/my/:artifactType/:artifactId", h.GetMyReview)
	reviews.GET("/canonical/:artifactType/:artifactId", h.GetCanonicalReview)
	reviews.GET("/:artifactType/:artifactId", h.GetArtifactReviews)

	projects := v1.Group("/projects")
	projects.GET("/stats", h.GetProjectsStats)
	projects.GET("/:projectId/stats", h.GetProjectStats)
	projects.GET("/:projectId/review-data/:artifactType", h.GetReviewData)
	projects.GET("/:projectId/rubrics/:artifactType/aggregate", h.GetAggregateRubric)
	projects.POST("/:projectId/rubrics/:artifactType/recompute", middleware.RequireAdmin(), h.RecomputeAggregate)

	evaluations := v1.Group("/rubric-evaluations")
	evaluations.POST("", h.SaveRubricEvaluation)
	evaluations.GET("/:projectId/:rubricType", h.GetRubricEvaluation)
	evaluations.GET("/:projectId/:rubricType/calculate-score", h.CalculateRubricScore)

	return router, nil
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"checks":    results,
			"timestamp": time.Now().UTC(),
		})
	}
}
