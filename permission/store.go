package permission

import (
	"context"

	"github.com/xraph/granary/id"
)

// Store defines persistence operations for permissions. Every read skips
// permissions whose status is deleted.
type Store interface {
	// CreatePermission persists a new permission.
	CreatePermission(ctx context.Context, p *Permission) error

	// GetPermission retrieves an active permission by ID.
	GetPermission(ctx context.Context, permID id.PermissionID) (*Permission, error)

	// GetPermissions returns the active allow and deny records for a name.
	GetPermissions(ctx context.Context, tenantID, grain, securableItem, name string) ([]*Permission, error)

	// DeletePermission marks a permission deleted.
	DeletePermission(ctx context.Context, permID id.PermissionID) error

	// ListPermissions returns active permissions matching the filter.
	ListPermissions(ctx context.Context, filter *ListFilter) ([]*Permission, error)

	// ListPermissionsByRole returns active permissions linked to a role.
	ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*Permission, error)
}
