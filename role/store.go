package role

import (
	"context"

	"github.com/xraph/granary/id"
)

// Store defines persistence operations for roles. Every read skips roles
// whose status is deleted.
type Store interface {
	// CreateRole persists a new role.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole retrieves an active role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByName retrieves an active role by its scoped name.
	GetRoleByName(ctx context.Context, tenantID, grain, securableItem, name string) (*Role, error)

	// UpdateRole persists changes to a role.
	UpdateRole(ctx context.Context, r *Role) error

	// DeleteRole marks a role deleted.
	DeleteRole(ctx context.Context, roleID id.RoleID) error

	// ListRoles returns active roles matching the filter.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)

	// ListRolePermissions returns permission IDs linked to a role.
	ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error)

	// AttachPermission links a permission to a role. Attaching twice is a no-op.
	AttachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error

	// DetachPermission removes a role to permission link.
	DetachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error

	// ListRolesForPrincipal returns active roles assigned directly to a user
	// principal.
	ListRolesForPrincipal(ctx context.Context, tenantID, principalID string) ([]*Role, error)

	// ListRolesForGroup returns active roles assigned to a group.
	ListRolesForGroup(ctx context.Context, groupID id.GroupID) ([]*Role, error)
}
