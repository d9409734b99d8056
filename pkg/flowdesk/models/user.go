package models

import (
	"time"

	"gorm.io/gorm"
)

// Role represents a user's role within their organization
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
	RoleUser    Role = "USER"
)

// IsElevated reports whether the role carries administrative rights
// within the organization (OWNER or ADMIN).
func (r Role) IsElevated() bool {
	return r == RoleOwner || r == RoleAdmin
}

// User represents a platform user. Every user belongs to exactly one
// organization; cross-organization access does not exist in Flowdesk.
type User struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string         `json:"-"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Role           Role           `gorm:"type:varchar(20);default:'MEMBER'" json:"role"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	OrganizationID uint           `gorm:"not null;index" json:"organization_id"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}
