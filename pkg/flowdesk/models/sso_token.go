package models

import "time"

// SsoToken is the durable record of every issued SSO token. The signed
// string proves integrity; this row proves freshness and single use. Both
// must match for verification to succeed.
//
// No soft delete: expired rows are hard-deleted by the housekeeper.
type SsoToken struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	Token          string     `gorm:"uniqueIndex;not null" json:"-"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	OrganizationID uint       `gorm:"not null" json:"organization_id"`
	ModuleID       uint       `gorm:"not null" json:"module_id"`
	ExpiresAt      time.Time  `gorm:"not null;index" json:"expires_at"`
	IsUsed         bool       `gorm:"default:false" json:"is_used"`
	UsedAt         *time.Time `json:"used_at"`

	// Relationships
	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Module       Module       `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
}
