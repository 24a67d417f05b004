package granary

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
	"github.com/xraph/granary/store"
)

// RoleSource is the read view of the role store used during resolution.
// Implementations must exclude deleted roles.
type RoleSource interface {
	ListRolesForPrincipal(ctx context.Context, tenantID, principalID string) ([]*role.Role, error)
	ListRolesForGroup(ctx context.Context, groupID id.GroupID) ([]*role.Role, error)
	GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error)
}

// GroupSource is the read view of the group store used during resolution.
// Implementations must exclude deleted groups.
type GroupSource interface {
	ListGroupsForPrincipal(ctx context.Context, tenantID, principalID string) ([]id.GroupID, error)
	ListParentGroups(ctx context.Context, groupID id.GroupID) ([]id.GroupID, error)
}

// PermissionSource is the read view of the permission store used during
// resolution. Implementations must exclude deleted permissions.
type PermissionSource interface {
	ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*permission.Permission, error)
}

// Resolver computes effective permission sets. It holds no per-request
// state and is safe for concurrent use. It never writes to its sources.
type Resolver struct {
	roles  RoleSource
	groups GroupSource
	perms  PermissionSource

	maxRoleDepth int
	maxFetches   int
}

// NewResolver creates a resolver over the given sources.
func NewResolver(roles RoleSource, groups GroupSource, perms PermissionSource, cfg Config) *Resolver {
	return &Resolver{
		roles:        roles,
		groups:       groups,
		perms:        perms,
		maxRoleDepth: cfg.maxRoleDepth(),
		maxFetches:   cfg.maxConcurrentFetches(),
	}
}

// NewStoreResolver creates a resolver reading from a composite store.
func NewStoreResolver(s store.Store, cfg Config) *Resolver {
	return NewResolver(s, s, s, cfg)
}

// Resolve returns the effective permissions of principalID in grain. When
// securableItem is non-empty only that item's roles and permissions count.
// The tenant is read from ctx.
//
// A principal with no roles, or an unknown grain or item, yields an empty
// set. Errors are *ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, principalID, grain, securableItem string) (*ResolvedPermissionSet, error) {
	const op = "resolve"

	req, err := normalizeRequest(&ResolveRequest{PrincipalID: principalID, Grain: grain, SecurableItem: securableItem})
	if err != nil {
		return nil, &ResolutionError{Kind: KindInvalidArgument, Op: op, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, op, err)
	}
	tenantID := scopeFromContext(ctx).tenantID

	roles, groupIDs, err := r.roleClosure(ctx, tenantID, req)
	if err != nil {
		return nil, classify(ctx, op, err)
	}

	permsByRole := make([][]*permission.Permission, len(roles))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.maxFetches)
	for i, rl := range roles {
		eg.Go(func() error {
			perms, err := r.perms.ListPermissionsByRole(egctx, rl.ID)
			if err != nil {
				return fmt.Errorf("permissions of role %s: %w", rl.ID, err)
			}
			permsByRole[i] = perms
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, classify(ctx, op, err)
	}
	// A store that ignores ctx may finish after the caller gave up.
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, op, err)
	}

	set := merge(req.Grain, req.SecurableItem, roles, permsByRole)
	set.PrincipalID = req.PrincipalID
	set.Grain = req.Grain
	set.SecurableItem = req.SecurableItem
	set.GroupIDs = groupIDs
	return set, nil
}

// roleClosure returns the deduplicated, in-scope roles that apply to the
// principal (direct, through groups, and through role parents) sorted by
// ID, together with the expanded group IDs.
func (r *Resolver) roleClosure(ctx context.Context, tenantID string, req *ResolveRequest) ([]*role.Role, []id.GroupID, error) {
	var (
		direct   []*role.Role
		groupIDs []id.GroupID
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		direct, err = r.roles.ListRolesForPrincipal(egctx, tenantID, req.PrincipalID)
		if err != nil {
			return fmt.Errorf("roles of principal %q: %w", req.PrincipalID, err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		groupIDs, err = r.expand(egctx, tenantID, req.PrincipalID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	viaGroups := make([][]*role.Role, len(groupIDs))
	eg, egctx = errgroup.WithContext(ctx)
	eg.SetLimit(r.maxFetches)
	for i, gid := range groupIDs {
		eg.Go(func() error {
			rs, err := r.roles.ListRolesForGroup(egctx, gid)
			if err != nil {
				return fmt.Errorf("roles of group %s: %w", gid, err)
			}
			viaGroups[i] = rs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{})
	var closure []*role.Role
	add := func(rl *role.Role) {
		if _, ok := seen[rl.ID.String()]; ok {
			return
		}
		seen[rl.ID.String()] = struct{}{}
		closure = append(closure, rl)
	}
	usable := func(rl *role.Role) bool {
		return rl != nil && rl.Status.IsActive() && (tenantID == "" || rl.TenantID == tenantID)
	}

	walked := make(map[string]struct{})
	assigned := slices.Concat(append([][]*role.Role{direct}, viaGroups...)...)
	for _, rl := range assigned {
		if !usable(rl) {
			continue
		}
		if rl.InScope(req.Grain, req.SecurableItem) {
			add(rl)
		}
		if err := r.walkParents(ctx, rl, req, walked, usable, add); err != nil {
			return nil, nil, err
		}
	}

	slices.SortFunc(closure, func(a, b *role.Role) int { return id.Compare(a.ID, b.ID) })
	return closure, groupIDs, nil
}

// walkParents follows the parent chain of rl and adds every in-scope
// ancestor. Out-of-scope parents are walked through but not added. The walk
// stops at a role already walked, a missing or unusable parent, or the
// depth limit.
func (r *Resolver) walkParents(ctx context.Context, rl *role.Role, req *ResolveRequest, walked map[string]struct{}, usable func(*role.Role) bool, add func(*role.Role)) error {
	if _, ok := walked[rl.ID.String()]; ok {
		return nil
	}
	walked[rl.ID.String()] = struct{}{}

	current := rl
	for depth := 0; current.ParentID != nil && depth < r.maxRoleDepth; depth++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := walked[current.ParentID.String()]; ok {
			return nil
		}
		parent, err := r.roles.GetRole(ctx, *current.ParentID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parent role %s: %w", *current.ParentID, err)
		}
		if !usable(parent) || parent.Grain != req.Grain {
			return nil
		}
		walked[parent.ID.String()] = struct{}{}
		if parent.InScope(req.Grain, req.SecurableItem) {
			add(parent)
		}
		current = parent
	}
	return nil
}

// normalizeRequest trims and validates a request, returning a copy.
func normalizeRequest(req *ResolveRequest) (*ResolveRequest, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	out := &ResolveRequest{
		PrincipalID:   strings.TrimSpace(req.PrincipalID),
		Grain:         strings.TrimSpace(req.Grain),
		SecurableItem: strings.TrimSpace(req.SecurableItem),
	}
	if out.PrincipalID == "" {
		return nil, errors.New("principal id is required")
	}
	if out.Grain == "" {
		return nil, errors.New("grain is required")
	}
	return out, nil
}

// classify wraps err as a ResolutionError. Caller cancellation maps to
// KindCancelled; a passed deadline and every store failure map to
// KindStoreUnavailable.
func classify(ctx context.Context, op string, err error) error {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re
	}
	if errors.Is(ctx.Err(), context.Canceled) || (ctx.Err() == nil && errors.Is(err, context.Canceled)) {
		return &ResolutionError{Kind: KindCancelled, Op: op, Err: err}
	}
	return &ResolutionError{Kind: KindStoreUnavailable, Op: op, Err: err}
}
