package models

import (
	"time"
)

// User represents an account that can review artifacts.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:255" json:"email"`
	Role      string    `gorm:"size:50;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the Admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Role constants.
const (
	RoleAdmin      = "Admin"
	RoleTeamLead   = "TeamLead"
	RoleUser       = "User"
	RoleResearcher = "Researcher"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTeamLead, RoleUser, RoleResearcher:
		return true
	}
	return false
}
