package models

import (
	"time"
)

// Review is implemented by every review model.
type Review interface {
	Base() *ReviewBase
	// Scores returns the sub-criterion scores keyed by criterion name.
	// A nil value means the reviewer did not score that criterion.
	Scores() map[string]*float64
}

// ReviewBase holds the fields shared by all review kinds.
// There is at most one review per (artifact, reviewer).
type ReviewBase struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProjectID  uint      `gorm:"not null;index:,composite:project_reviewer" json:"project_id"`
	ArtifactID uint      `gorm:"not null;index:,unique,composite:artifact_reviewer" json:"artifact_id"`
	ReviewerID uint      `gorm:"not null;index:,unique,composite:artifact_reviewer;index:,composite:project_reviewer" json:"reviewer_id"`
	Rating     float64   `gorm:"not null" json:"rating"`
	Comment    string    `gorm:"type:text" json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Base returns the shared review fields.
func (b *ReviewBase) Base() *ReviewBase { return b }

// RequirementReview scores a requirement.
type RequirementReview struct {
	ReviewBase
	SyntaxScore          *float64 `json:"syntax_score"`
	CategorizationScore  *float64 `json:"categorization_score"`
	ScopeDefinitionScore *float64 `json:"scope_definition_score"`
	QuantificationScore  *float64 `json:"quantification_score"`
}

// TableName specifies the table name for RequirementReview model.
func (RequirementReview) TableName() string { return "requirement_reviews" }

func (r *RequirementReview) Scores() map[string]*float64 {
	return map[string]*float64{
		"syntaxScore":          r.SyntaxScore,
		"categorizationScore":  r.CategorizationScore,
		"scopeDefinitionScore": r.ScopeDefinitionScore,
		"quantificationScore":  r.QuantificationScore,
	}
}

// StoryReview scores a user story.
type StoryReview struct {
	ReviewBase
	StoryFormatScore        *float64 `json:"story_format_score"`
	FeatureCompletionScore  *float64 `json:"feature_completion_score"`
	AcceptanceCriteriaScore *float64 `json:"acceptance_criteria_score"`
}

// TableName specifies the table name for StoryReview model.
func (StoryReview) TableName() string { return "story_reviews" }

func (r *StoryReview) Scores() map[string]*float64 {
	return map[string]*float64{
		"storyFormatScore":        r.StoryFormatScore,
		"featureCompletionScore":  r.FeatureCompletionScore,
		"acceptanceCriteriaScore": r.AcceptanceCriteriaScore,
	}
}

// ActivityDiagramReview scores an activity diagram.
type ActivityDiagramReview struct {
	ReviewBase
	UMLSyntaxScore             *float64 `gorm:"column:uml_syntax_score" json:"uml_syntax_score"`
	ScenarioComprehensiveScore *float64 `json:"scenario_comprehensive_score"`
	GherkinAlignmentScore      *float64 `json:"gherkin_alignment_score"`
}

// TableName specifies the table name for ActivityDiagramReview model.
func (ActivityDiagramReview) TableName() string { return "activity_diagram_reviews" }

func (r *ActivityDiagramReview) Scores() map[string]*float64 {
	return map[string]*float64{
		"umlSyntaxScore":             r.UMLSyntaxScore,
		"scenarioComprehensiveScore": r.ScenarioComprehensiveScore,
		"gherkinAlignmentScore":      r.GherkinAlignmentScore,
	}
}

// UseCaseDiagramReview scores a use case diagram.
type UseCaseDiagramReview struct {
	ReviewBase
	UMLSyntaxScore            *float64 `gorm:"column:uml_syntax_score" json:"uml_syntax_score"`
	UseCasePackageScore       *float64 `json:"use_case_package_score"`
	GherkinSpecificationScore *float64 `json:"gherkin_specification_score"`
}

// TableName specifies the table name for UseCaseDiagramReview model.
func (UseCaseDiagramReview) TableName() string { return "use_case_diagram_reviews" }

func (r *UseCaseDiagramReview) Scores() map[string]*float64 {
	return map[string]*float64{
		"umlSyntaxScore":            r.UMLSyntaxScore,
		"useCasePackageScore":       r.UseCasePackageScore,
		"gherkinSpecificationScore": r.GherkinSpecificationScore,
	}
}

// SequenceDiagramReview scores a sequence diagram.
type SequenceDiagramReview struct {
	ReviewBase
	UMLCorrectnessScore *float64 `gorm:"column:uml_correctness_score" json:"uml_correctness_score"`
	MessageFlowScore    *float64 `json:"message_flow_score"`
	ReturnValuesScore   *float64 `json:"return_values_score"`
	CompletenessScore   *float64 `json:"completeness_score"`
}

// TableName specifies the table name for SequenceDiagramReview model.
func (SequenceDiagramReview) TableName() string { return "sequence_diagram_reviews" }

func (r *SequenceDiagramReview) Scores() map[string]*float64 {
	return map[string]*float64{
		"umlCorrectnessScore": r.UMLCorrectnessScore,
		"messageFlowScore":    r.MessageFlowScore,
		"returnValuesScore":   r.ReturnValuesScore,
		"completenessScore":   r.CompletenessScore,
	}
}

// ClassDiagramReview scores a class diagram.
type ClassDiagramReview struct {
	ReviewBase
	ClassStructureScore       *float64 `json:"class_structure_score"`
	RelationshipModelingScore *float64 `json:"relationship_modeling_score"`
	CompletenessScore         *float64 `json:"completeness_score"`
	ClarityScore              *float64 `json:"clarity_score"`
	DesignPrinciplesScore     *float64 `json:"design_principles_score"`
}

// TableName specifies the table name for ClassDiagramReview model.
func (ClassDiagramReview) TableName() string { return "class_diagram_reviews" }

func (r *ClassDiagramReview) Scores() map[string]*float64 {
	return map[string]*float64{
		"classStructureScore":       r.ClassStructureScore,
		"relationshipModelingScore": r.RelationshipModelingScore,
		"completenessScore":         r.CompletenessScore,
		"clarityScore":              r.ClarityScore,
		"designPrinciplesScore":     r.DesignPrinciplesScore,
	}
}

// DesignPatternReview scores a design pattern.
type DesignPatternReview struct {
	ReviewBase
	PatternSelectionScore *float64 `json:"pattern_selection_score"`
	ImplementationScore   *float64 `json:"implementation_score"`
	FlexibilityScore      *float64 `json:"flexibility_score"`
	ComplexityScore       *float64 `json:"complexity_score"`
	DocumentationScore    *float64 `json:"documentation_score"`
}

// TableName specifies the table name for DesignPatternReview model.
func (DesignPatternReview) TableName() string { return "design_pattern_reviews" }

func (r *DesignPatternReview) Scores() map[string]*float64 {
	return map[string]*float64{
		"patternSelectionScore": r.PatternSelectionScore,
		"implementationScore":   r.ImplementationScore,
		"flexibilityScore":      r.FlexibilityScore,
		"complexityScore":       r.ComplexityScore,
		"documentationScore":    r.DocumentationScore,
	}
}

// MockupReview scores a mockup.
type MockupReview struct {
	ReviewBase
	UIUXDesignScore       *float64 `gorm:"column:ui_ux_design_score" json:"ui_ux_design_score"`
	ConsistencyScore      *float64 `json:"consistency_score"`
	FlowScore             *float64 `json:"flow_score"`
	CompletenessScore     *float64 `json:"completeness_score"`
	UserFriendlinessScore *float64 `json:"user_friendliness_score"`
}

// TableName specifies the table name for MockupReview model.
func (MockupReview) TableName() string { return "mockup_reviews" }

func (r *MockupReview) Scores() map[string]*float64 {
	return map[string]*float64{
		"uiUxDesignScore":       r.UIUXDesignScore,
		"consistencyScore":      r.ConsistencyScore,
		"flowScore":             r.FlowScore,
		"completenessScore":     r.CompletenessScore,
		"userFriendlinessScore": r.UserFriendlinessScore,
	}
}
