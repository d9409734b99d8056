package models

import (
	"time"

	"gorm.io/gorm"
)

// ModuleType distinguishes modules shipped with the platform from
// separately purchased ones
type ModuleType string

const (
	ModuleTypeBuiltin  ModuleType = "builtin"
	ModuleTypeExternal ModuleType = "external"
)

// Module represents an independently deployed application integrated into
// the platform via SSO. The client credential pair is how the module
// authenticates itself back to the platform when verifying a token; the
// secret is never sent to browsers.
type Module struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"`
	Name      string         `gorm:"not null" json:"name"`
	URL       string         `json:"url"` // Base redirect target, may be empty until configured
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	Type      ModuleType     `gorm:"type:varchar(20);default:'builtin'" json:"type"`
	ClientID  string         `gorm:"uniqueIndex;not null" json:"client_id"`
	// SecretHash-free by design: this is a server-held high-entropy credential,
	// compared in constant time, not a user password.
	ClientSecret string `gorm:"not null" json:"-"`
}

// ModuleEntitlement records that an organization has purchased/activated an
// external module. Built-in modules do not need entitlements.
type ModuleEntitlement struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	OrganizationID uint           `gorm:"not null;uniqueIndex:idx_org_module" json:"organization_id"`
	ModuleID       uint           `gorm:"not null;uniqueIndex:idx_org_module" json:"module_id"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Module       Module       `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
}
