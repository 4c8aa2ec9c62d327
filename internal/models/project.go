package models

import (
	"time"
)

// Project groups artifacts and the users allowed to review them.
type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Motto       string    `gorm:"size:255" json:"motto,omitempty"`
	CreatedByID uint      `gorm:"index" json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Project model.
func (Project) TableName() string {
	return "projects"
}

// ProjectMember grants a user access to a project.
type ProjectMember struct {
	ProjectID uint      `gorm:"primaryKey;autoIncrement:false" json:"project_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for ProjectMember model.
func (ProjectMember) TableName() string {
	return "project_members"
}
