package review

import (
	"context"

	"github.com/artifactlab/review-scoring/internal/artifact"
	"github.com/artifactlab/review-scoring/internal/models"
	"github.com/artifactlab/review-scoring/internal/service/access"
)

// ArtifactStatus is one artifact with its canonical review state.
type ArtifactStatus struct {
	Artifact   models.Artifact     `json:"artifact"`
	Reviewed   bool                `json:"reviewed"`
	Rating     float64             `json:"rating"`
	Comment    string              `json:"comment"`
	Scores     map[string]*float64 `json:"scores"`
	IsEditable bool                `json:"is_editable"`
}

// Data is everything a reviewer needs to work through one kind of a project.
type Data struct {
	ProjectID      uint                     `json:"project_id"`
	ProjectName    string                   `json:"project_name"`
	ArtifactType   string                   `json:"artifact_type"`
	Artifacts      []ArtifactStatus         `json:"artifacts"`
	RubricCriteria []models.RubricCriterion `json:"rubric_criteria"`
	GeneralComment string                   `json:"general_comment"`
	Aggregate      *models.AggregateRubric  `json:"aggregate"`
}

// GetReviewData lists a project's artifacts of one kind in sequence order with
// their canonical review state, plus the actor's rubric criteria and general
// comment and the current aggregate.
func (s *Service) GetReviewData(ctx context.Context, actor access.Actor, projectID uint, kind artifact.Kind) (*Data, error) {
	project, err := s.access.RequireProject(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	artifacts, err := s.artifacts.ListByProject(ctx, kind, projectID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(artifacts))
	for i, a := range artifacts {
		ids[i] = a.Base().ID
	}
	canonical, err := s.reviews.ListByArtifactsAndReviewer(ctx, kind, ids, s.systemReviewerID)
	if err != nil {
		return nil, err
	}
	byArtifact := make(map[uint]models.Review, len(canonical))
	for _, r := range canonical {
		byArtifact[r.Base().ArtifactID] = r
	}

	data := &Data{
		ProjectID:    project.ID,
		ProjectName:  project.Name,
		ArtifactType: kind.String(),
		Artifacts:    make([]ArtifactStatus, 0, len(artifacts)),
	}
	for _, a := range artifacts {
		status := ArtifactStatus{
			Artifact:   a,
			Scores:     blankScores(kind),
			IsEditable: actor.IsAdmin(),
		}
		if r, ok := byArtifact[a.Base().ID]; ok {
			status.Reviewed = true
			status.Rating = r.Base().Rating
			status.Comment = r.Base().Comment
			status.Scores = r.Scores()
		}
		data.Artifacts = append(data.Artifacts, status)
	}

	eval, err := s.evaluations.Find(ctx, projectID, kind, actor.UserID)
	if err != nil {
		return nil, err
	}
	if eval != nil {
		data.RubricCriteria = eval.Criteria
	} else {
		data.RubricCriteria = s.evaluations.Template(kind)
	}

	gc, err := s.comments.FindGeneralComment(ctx, actor.UserID, projectID, kind)
	if err != nil {
		return nil, err
	}
	if gc != nil {
		data.GeneralComment = gc.Comment
	}

	data.Aggregate, err = s.aggregator.GetAggregate(ctx, projectID, kind)
	if err != nil {
		return nil, err
	}

	return data, nil
}
