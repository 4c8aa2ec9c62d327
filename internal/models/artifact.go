package models

import (
	"time"
)

// Artifact is implemented by every artifact model.
type Artifact interface {
	Base() *ArtifactBase
}

// ArtifactBase holds the identity shared by all artifact kinds.
// Seq is assigned once per project at creation and never reused.
type ArtifactBase struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index:,unique,composite:project_seq" json:"project_id"`
	Seq       int       `gorm:"not null;index:,unique,composite:project_seq" json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Base returns the shared artifact fields.
func (b *ArtifactBase) Base() *ArtifactBase { return b }

// DiagramContent holds the content shared by diagram-like artifacts.
type DiagramContent struct {
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Source      string `gorm:"type:text" json:"source"`
}

// Requirement types.
const (
	RequirementFunctional    = "Functional"
	RequirementNonFunctional = "NonFunctional"
	RequirementOther         = "Other"
)

// Requirement is a project requirement.
type Requirement struct {
	ArtifactBase
	Text           string `gorm:"type:text;not null" json:"text"`
	Description    string `gorm:"type:text" json:"description"`
	Type           string `gorm:"size:20;not null;index" json:"type"`
	UserPriority   string `gorm:"size:20" json:"user_priority"`
	SystemPriority string `gorm:"size:20" json:"system_priority"`
}

// TableName specifies the table name for Requirement model.
func (Requirement) TableName() string { return "requirements" }

// Story is a user story.
type Story struct {
	ArtifactBase
	Title              string `gorm:"size:255;not null" json:"title"`
	Text               string `gorm:"type:text;not null" json:"text"`
	AcceptanceCriteria string `gorm:"type:text" json:"acceptance_criteria"`
}

// TableName specifies the table name for Story model.
func (Story) TableName() string { return "stories" }

// ActivityDiagram is a UML activity diagram with its Gherkin scenario.
type ActivityDiagram struct {
	ArtifactBase
	DiagramContent
	Gherkin string `gorm:"type:text" json:"gherkin"`
}

// TableName specifies the table name for ActivityDiagram model.
func (ActivityDiagram) TableName() string { return "activity_diagrams" }

// UseCaseDiagram is a UML use case diagram.
type UseCaseDiagram struct {
	ArtifactBase
	DiagramContent
	Gherkin string `gorm:"type:text" json:"gherkin"`
}

// TableName specifies the table name for UseCaseDiagram model.
func (UseCaseDiagram) TableName() string { return "use_case_diagrams" }

// SequenceDiagram is a UML sequence diagram.
type SequenceDiagram struct {
	ArtifactBase
	DiagramContent
}

// TableName specifies the table name for SequenceDiagram model.
func (SequenceDiagram) TableName() string { return "sequence_diagrams" }

// ClassDiagram is a UML class diagram.
type ClassDiagram struct {
	ArtifactBase
	DiagramContent
}

// TableName specifies the table name for ClassDiagram model.
func (ClassDiagram) TableName() string { return "class_diagrams" }

// DesignPattern documents a design pattern applied in the project.
type DesignPattern struct {
	ArtifactBase
	DiagramContent
	Pattern string `gorm:"size:100" json:"pattern"`
}

// TableName specifies the table name for DesignPattern model.
func (DesignPattern) TableName() string { return "design_patterns" }

// Mockup is a UI mockup screen.
type Mockup struct {
	ArtifactBase
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"type:text" json:"image_url"`
	ParentID    *uint  `gorm:"index" json:"parent_id"`
}

// TableName specifies the table name for Mockup model.
func (Mockup) TableName() string { return "mockups" }
