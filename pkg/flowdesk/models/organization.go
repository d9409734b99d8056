package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization represents a tenant. Users, entitlements, and SSO tokens
// are all scoped to an organization.
type Organization struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`             // Display name (e.g., "Acme Corp")
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"` // URL-safe identifier, unique across all orgs
	IsActive  bool           `gorm:"default:true" json:"is_active"`

	// Relationships
	Users        []User              `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
	Entitlements []ModuleEntitlement `gorm:"foreignKey:OrganizationID" json:"entitlements,omitempty"`
}
