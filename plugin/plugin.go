// Package plugin defines the granary plugin system. Plugins are told about
// resolutions and admin mutations and react to them with metrics, audit
// trails or cache warming.
//
// Each hook is its own interface, so a plugin implements only the events it
// needs.
package plugin

import (
	"context"

	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Resolution hooks
// ──────────────────────────────────────────────────

// BeforeResolve is called before a permission set is resolved.
// req is *granary.ResolveRequest, passed as any to avoid an import cycle.
type BeforeResolve interface {
	OnBeforeResolve(ctx context.Context, req any) error
}

// AfterResolve is called after a successful resolution, cached or not.
// result is *granary.ResolvedPermissionSet.
type AfterResolve interface {
	OnAfterResolve(ctx context.Context, req, result any) error
}

// ResolveFailed is called when a resolution returns an error.
type ResolveFailed interface {
	OnResolveFailed(ctx context.Context, req any, err error) error
}

// ──────────────────────────────────────────────────
// Role and permission hooks
// ──────────────────────────────────────────────────

type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID id.RoleID) error
}

type PermissionCreated interface {
	OnPermissionCreated(ctx context.Context, p *permission.Permission) error
}

type PermissionDeleted interface {
	OnPermissionDeleted(ctx context.Context, permID id.PermissionID) error
}

// PermissionAttached is called after a permission is linked to a role.
type PermissionAttached interface {
	OnPermissionAttached(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error
}

// PermissionDetached is called after a role to permission link is removed.
type PermissionDetached interface {
	OnPermissionDetached(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error
}

// ──────────────────────────────────────────────────
// Assignment and group hooks
// ──────────────────────────────────────────────────

type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, a *assignment.Assignment) error
}

type RoleUnassigned interface {
	OnRoleUnassigned(ctx context.Context, a *assignment.Assignment) error
}

type GroupCreated interface {
	OnGroupCreated(ctx context.Context, g *group.Group) error
}

type GroupDeleted interface {
	OnGroupDeleted(ctx context.Context, groupID id.GroupID) error
}

type GroupMemberAdded interface {
	OnGroupMemberAdded(ctx context.Context, m *group.Member) error
}

type GroupMemberRemoved interface {
	OnGroupMemberRemoved(ctx context.Context, groupID id.GroupID, kind group.MemberKind, memberID string) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
