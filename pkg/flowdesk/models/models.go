package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: Organization must be migrated first as other models depend on it
func AllModels() []interface{} {
	return []interface{}{
		&Organization{},
		&User{},
		&Module{},
		&ModuleEntitlement{},
		&SsoToken{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
