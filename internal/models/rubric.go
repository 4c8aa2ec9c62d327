package models

import (
	"time"
)

// AggregateRubric is the derived per-criterion rollup of canonical reviews
// for one artifact type in one project.
type AggregateRubric struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	ProjectID        uint               `gorm:"not null;uniqueIndex:idx_aggregate_rubrics_project_type" json:"project_id"`
	ArtifactType     string             `gorm:"size:50;not null;uniqueIndex:idx_aggregate_rubrics_project_type" json:"artifact_type"`
	CriteriaAverages map[string]float64 `gorm:"type:text;serializer:json" json:"criteria_averages"`
	OverallScore     float64            `gorm:"not null" json:"overall_score"`
	ReviewCount      int                `gorm:"not null" json:"review_count"`
	LastUpdated      time.Time          `gorm:"not null" json:"last_updated"`
}

// TableName specifies the table name for AggregateRubric model.
func (AggregateRubric) TableName() string {
	return "aggregate_rubrics"
}

// RubricCriterion is one scored line of a rubric evaluation.
type RubricCriterion struct {
	Name        string  `json:"name" yaml:"name" binding:"required,max=100"`
	Description string  `json:"description" yaml:"description"`
	Score       float64 `json:"score" yaml:"score" binding:"gte=0,lte=5"`
	Comment     string  `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// RubricEvaluation is one evaluator's structured assessment of an artifact type
// within a project.
type RubricEvaluation struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	ProjectID      uint              `gorm:"not null;uniqueIndex:idx_rubric_evaluations_project_type_evaluator" json:"project_id"`
	RubricType     string            `gorm:"size:50;not null;uniqueIndex:idx_rubric_evaluations_project_type_evaluator" json:"rubric_type"`
	EvaluatorID    uint              `gorm:"not null;uniqueIndex:idx_rubric_evaluations_project_type_evaluator" json:"evaluator_id"`
	Criteria       []RubricCriterion `gorm:"type:text;serializer:json" json:"criteria"`
	OverallScore   float64           `gorm:"not null" json:"overall_score"`
	GeneralComment string            `gorm:"type:text" json:"general_comment"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TableName specifies the table name for RubricEvaluation model.
func (RubricEvaluation) TableName() string {
	return "rubric_evaluations"
}

// GeneralComment is a user's free-text remark on one artifact type of a project.
type GeneralComment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_general_comments_user_project_type" json:"user_id"`
	ProjectID    uint      `gorm:"not null;uniqueIndex:idx_general_comments_user_project_type" json:"project_id"`
	ArtifactType string    `gorm:"size:50;not null;uniqueIndex:idx_general_comments_user_project_type" json:"artifact_type"`
	Comment      string    `gorm:"type:text" json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GeneralComment model.
func (GeneralComment) TableName() string {
	return "general_comments"
}
