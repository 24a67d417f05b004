package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
)

// entry pairs a hook with the owning plugin's name for logging.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered plugins and dispatches lifecycle events.
// Plugins are sorted into per-hook slices at registration time, so emitting
// only visits plugins that implement the hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeResolve      []entry[BeforeResolve]
	afterResolve       []entry[AfterResolve]
	resolveFailed      []entry[ResolveFailed]
	roleCreated        []entry[RoleCreated]
	roleDeleted        []entry[RoleDeleted]
	permissionCreated  []entry[PermissionCreated]
	permissionDeleted  []entry[PermissionDeleted]
	permissionAttached []entry[PermissionAttached]
	permissionDetached []entry[PermissionDetached]
	roleAssigned       []entry[RoleAssigned]
	roleUnassigned     []entry[RoleUnassigned]
	groupCreated       []entry[GroupCreated]
	groupDeleted       []entry[GroupDeleted]
	memberAdded        []entry[GroupMemberAdded]
	memberRemoved      []entry[GroupMemberRemoved]
	shutdown           []entry[Shutdown]
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// cache appends p to hooks when p implements H.
func cache[H any](hooks *[]entry[H], name string, p Plugin) {
	if h, ok := p.(H); ok {
		*hooks = append(*hooks, entry[H]{name: name, hook: h})
	}
}

// Register adds a plugin. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	cache(&r.beforeResolve, name, p)
	cache(&r.afterResolve, name, p)
	cache(&r.resolveFailed, name, p)
	cache(&r.roleCreated, name, p)
	cache(&r.roleDeleted, name, p)
	cache(&r.permissionCreated, name, p)
	cache(&r.permissionDeleted, name, p)
	cache(&r.permissionAttached, name, p)
	cache(&r.permissionDetached, name, p)
	cache(&r.roleAssigned, name, p)
	cache(&r.roleUnassigned, name, p)
	cache(&r.groupCreated, name, p)
	cache(&r.groupDeleted, name, p)
	cache(&r.memberAdded, name, p)
	cache(&r.memberRemoved, name, p)
	cache(&r.shutdown, name, p)
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// emit calls fn for every entry and logs hook failures. A failing hook never
// interrupts the caller.
func emit[H any](r *Registry, hookName string, hooks []entry[H], fn func(H) error) {
	for _, e := range hooks {
		if err := fn(e.hook); err != nil {
			r.logHookError(hookName, e.name, err)
		}
	}
}

func (r *Registry) EmitBeforeResolve(ctx context.Context, req any) {
	emit(r, "OnBeforeResolve", r.beforeResolve, func(h BeforeResolve) error {
		return h.OnBeforeResolve(ctx, req)
	})
}

func (r *Registry) EmitAfterResolve(ctx context.Context, req, result any) {
	emit(r, "OnAfterResolve", r.afterResolve, func(h AfterResolve) error {
		return h.OnAfterResolve(ctx, req, result)
	})
}

func (r *Registry) EmitResolveFailed(ctx context.Context, req any, resolveErr error) {
	emit(r, "OnResolveFailed", r.resolveFailed, func(h ResolveFailed) error {
		return h.OnResolveFailed(ctx, req, resolveErr)
	})
}

func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	emit(r, "OnRoleCreated", r.roleCreated, func(h RoleCreated) error {
		return h.OnRoleCreated(ctx, rl)
	})
}

func (r *Registry) EmitRoleDeleted(ctx context.Context, roleID id.RoleID) {
	emit(r, "OnRoleDeleted", r.roleDeleted, func(h RoleDeleted) error {
		return h.OnRoleDeleted(ctx, roleID)
	})
}

func (r *Registry) EmitPermissionCreated(ctx context.Context, p *permission.Permission) {
	emit(r, "OnPermissionCreated", r.permissionCreated, func(h PermissionCreated) error {
		return h.OnPermissionCreated(ctx, p)
	})
}

func (r *Registry) EmitPermissionDeleted(ctx context.Context, permID id.PermissionID) {
	emit(r, "OnPermissionDeleted", r.permissionDeleted, func(h PermissionDeleted) error {
		return h.OnPermissionDeleted(ctx, permID)
	})
}

func (r *Registry) EmitPermissionAttached(ctx context.Context, roleID id.RoleID, permID id.PermissionID) {
	emit(r, "OnPermissionAttached", r.permissionAttached, func(h PermissionAttached) error {
		return h.OnPermissionAttached(ctx, roleID, permID)
	})
}

func (r *Registry) EmitPermissionDetached(ctx context.Context, roleID id.RoleID, permID id.PermissionID) {
	emit(r, "OnPermissionDetached", r.permissionDetached, func(h PermissionDetached) error {
		return h.OnPermissionDetached(ctx, roleID, permID)
	})
}

func (r *Registry) EmitRoleAssigned(ctx context.Context, a *assignment.Assignment) {
	emit(r, "OnRoleAssigned", r.roleAssigned, func(h RoleAssigned) error {
		return h.OnRoleAssigned(ctx, a)
	})
}

func (r *Registry) EmitRoleUnassigned(ctx context.Context, a *assignment.Assignment) {
	emit(r, "OnRoleUnassigned", r.roleUnassigned, func(h RoleUnassigned) error {
		return h.OnRoleUnassigned(ctx, a)
	})
}

func (r *Registry) EmitGroupCreated(ctx context.Context, g *group.Group) {
	emit(r, "OnGroupCreated", r.groupCreated, func(h GroupCreated) error {
		return h.OnGroupCreated(ctx, g)
	})
}

func (r *Registry) EmitGroupDeleted(ctx context.Context, groupID id.GroupID) {
	emit(r, "OnGroupDeleted", r.groupDeleted, func(h GroupDeleted) error {
		return h.OnGroupDeleted(ctx, groupID)
	})
}

func (r *Registry) EmitGroupMemberAdded(ctx context.Context, m *group.Member) {
	emit(r, "OnGroupMemberAdded", r.memberAdded, func(h GroupMemberAdded) error {
		return h.OnGroupMemberAdded(ctx, m)
	})
}

func (r *Registry) EmitGroupMemberRemoved(ctx context.Context, groupID id.GroupID, kind group.MemberKind, memberID string) {
	emit(r, "OnGroupMemberRemoved", r.memberRemoved, func(h GroupMemberRemoved) error {
		return h.OnGroupMemberRemoved(ctx, groupID, kind, memberID)
	})
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	emit(r, "OnShutdown", r.shutdown, func(h Shutdown) error {
		return h.OnShutdown(ctx)
	})
}

func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
