package sso

import "github.com/flowdesk/flowdesk/pkg/flowdesk/models"

// ModulePermissions is what a module may let the delegated user do.
// A successfully verified token always grants read access.
type ModulePermissions struct {
	CanRead  bool `json:"can_read"`
	CanWrite bool `json:"can_write"`
	CanAdmin bool `json:"can_admin"`
}

// PermissionsForRole maps a platform role onto module permissions.
// Write access requires an elevated role; admin access is reserved for
// the organization owner.
func PermissionsForRole(role models.Role) ModulePermissions {
	return ModulePermissions{
		CanRead:  true,
		CanWrite: role.IsElevated(),
		CanAdmin: role == models.RoleOwner,
	}
}
