// Package memory provides an in-memory implementation of the granary
// composite store. It is intended for tests, development and the
// seed-driven CLI.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/entity"
	"github.com/xraph/granary/grain"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
	"github.com/xraph/granary/securableitem"
	"github.com/xraph/granary/store"
)

var _ store.Store = (*Store)(nil)

// Store is a thread-safe in-memory store for all granary entities.
type Store struct {
	mu sync.RWMutex

	grains          map[string]*grain.Grain
	items           map[string]*securableitem.SecurableItem
	roles           map[string]*role.Role
	permissions     map[string]*permission.Permission
	rolePermissions map[string]map[string]struct{} // roleID -> set of permIDs
	groups          map[string]*group.Group
	members         map[string]*group.Member
	assignments     map[string]*assignment.Assignment
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		grains:          make(map[string]*grain.Grain),
		items:           make(map[string]*securableitem.SecurableItem),
		roles:           make(map[string]*role.Role),
		permissions:     make(map[string]*permission.Permission),
		rolePermissions: make(map[string]map[string]struct{}),
		groups:          make(map[string]*group.Group),
		members:         make(map[string]*group.Member),
		assignments:     make(map[string]*assignment.Assignment),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Grain Store
// ──────────────────────────────────────────────────

func (s *Store) CreateGrain(_ context.Context, g *grain.Grain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.grains {
		if existing.Status.IsActive() && existing.TenantID == g.TenantID && existing.Name == g.Name {
			return fmt.Errorf("grain %q: %w", g.Name, store.ErrDuplicate)
		}
	}
	s.grains[g.ID.String()] = copyGrain(g)
	return nil
}

func (s *Store) GetGrain(_ context.Context, grainID id.GrainID) (*grain.Grain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grains[grainID.String()]
	if !ok || !g.Status.IsActive() {
		return nil, fmt.Errorf("grain %s: %w", grainID, store.ErrNotFound)
	}
	return copyGrain(g), nil
}

func (s *Store) GetGrainByName(_ context.Context, tenantID, name string) (*grain.Grain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.grains {
		if g.Status.IsActive() && g.TenantID == tenantID && g.Name == name {
			return copyGrain(g), nil
		}
	}
	return nil, fmt.Errorf("grain %q: %w", name, store.ErrNotFound)
}

func (s *Store) ListGrains(_ context.Context, filter *grain.ListFilter) ([]*grain.Grain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*grain.Grain, 0, len(s.grains))
	for _, g := range s.grains {
		if filter != nil {
			if filter.TenantID != "" && g.TenantID != filter.TenantID {
				continue
			}
			if !filter.IncludeDeleted && !g.Status.IsActive() {
				continue
			}
		} else if !g.Status.IsActive() {
			continue
		}
		result = append(result, copyGrain(g))
	}
	slices.SortFunc(result, func(a, b *grain.Grain) int { return cmp.Compare(a.Name, b.Name) })
	var p pagOpts
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	return applyPagination(result, p), nil
}

func (s *Store) DeleteGrain(_ context.Context, grainID id.GrainID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grains[grainID.String()]
	if !ok || !g.Status.IsActive() {
		return fmt.Errorf("grain %s: %w", grainID, store.ErrNotFound)
	}
	g.Status = entity.StatusDeleted
	return nil
}

// ──────────────────────────────────────────────────
// SecurableItem Store
// ──────────────────────────────────────────────────

func (s *Store) CreateSecurableItem(_ context.Context, si *securableitem.SecurableItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.Status.IsActive() && existing.TenantID == si.TenantID &&
			existing.Grain == si.Grain && existing.Name == si.Name {
			return fmt.Errorf("securable item %s/%s: %w", si.Grain, si.Name, store.ErrDuplicate)
		}
	}
	s.items[si.ID.String()] = copyItem(si)
	return nil
}

func (s *Store) GetSecurableItem(_ context.Context, itemID id.SecurableItemID) (*securableitem.SecurableItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	si, ok := s.items[itemID.String()]
	if !ok || !si.Status.IsActive() {
		return nil, fmt.Errorf("securable item %s: %w", itemID, store.ErrNotFound)
	}
	return copyItem(si), nil
}

func (s *Store) GetSecurableItemByName(_ context.Context, tenantID, grainName, name string) (*securableitem.SecurableItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, si := range s.items {
		if si.Status.IsActive() && si.TenantID == tenantID && si.Grain == grainName && si.Name == name {
			return copyItem(si), nil
		}
	}
	return nil, fmt.Errorf("securable item %s/%s: %w", grainName, name, store.ErrNotFound)
}

func (s *Store) ListSecurableItems(_ context.Context, filter *securableitem.ListFilter) ([]*securableitem.SecurableItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*securableitem.SecurableItem, 0, len(s.items))
	var p pagOpts
	for _, si := range s.items {
		if !si.Status.IsActive() {
			continue
		}
		if filter != nil {
			if filter.TenantID != "" && si.TenantID != filter.TenantID {
				continue
			}
			if filter.Grain != "" && si.Grain != filter.Grain {
				continue
			}
			if filter.ParentID != nil && (si.ParentID == nil || si.ParentID.String() != filter.ParentID.String()) {
				continue
			}
		}
		result = append(result, copyItem(si))
	}
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	slices.SortFunc(result, func(a, b *securableitem.SecurableItem) int {
		return cmp.Or(cmp.Compare(a.Grain, b.Grain), cmp.Compare(a.Name, b.Name))
	})
	return applyPagination(result, p), nil
}

func (s *Store) DeleteSecurableItem(_ context.Context, itemID id.SecurableItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	si, ok := s.items[itemID.String()]
	if !ok || !si.Status.IsActive() {
		return fmt.Errorf("securable item %s: %w", itemID, store.ErrNotFound)
	}
	si.Status = entity.StatusDeleted
	return nil
}

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.roles {
		if existing.Status.IsActive() && existing.TenantID == r.TenantID && existing.Grain == r.Grain &&
			existing.SecurableItem == r.SecurableItem && existing.Name == r.Name {
			return fmt.Errorf("role %q: %w", r.Name, store.ErrDuplicate)
		}
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok || !r.Status.IsActive() {
		return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, tenantID, grainName, securableItem, name string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.Status.IsActive() && r.TenantID == tenantID && r.Grain == grainName &&
			r.SecurableItem == securableItem && r.Name == name {
			return copyRole(r), nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.roles[r.ID.String()]
	if !ok || !existing.Status.IsActive() {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) DeleteRole(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[roleID.String()]
	if !ok || !r.Status.IsActive() {
		return fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	r.Status = entity.StatusDeleted
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*role.Role, 0, len(s.roles))
	var p pagOpts
	for _, r := range s.roles {
		if !r.Status.IsActive() {
			continue
		}
		if filter != nil {
			if filter.TenantID != "" && r.TenantID != filter.TenantID {
				continue
			}
			if filter.Grain != "" && r.Grain != filter.Grain {
				continue
			}
			if filter.SecurableItem != "" && r.SecurableItem != filter.SecurableItem {
				continue
			}
			if filter.Name != "" && !strings.EqualFold(r.Name, filter.Name) {
				continue
			}
		}
		result = append(result, copyRole(r))
	}
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	slices.SortFunc(result, func(a, b *role.Role) int { return id.Compare(a.ID, b.ID) })
	return applyPagination(result, p), nil
}

func (s *Store) ListRolePermissions(_ context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms := s.rolePermissions[roleID.String()]
	result := make([]id.PermissionID, 0, len(perms))
	for pid := range perms {
		parsed, err := id.ParsePermissionID(pid)
		if err == nil {
			result = append(result, parsed)
		}
	}
	slices.SortFunc(result, id.Compare)
	return result, nil
}

func (s *Store) AttachPermission(_ context.Context, roleID id.RoleID, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk := roleID.String()
	if s.rolePermissions[rk] == nil {
		s.rolePermissions[rk] = make(map[string]struct{})
	}
	s.rolePermissions[rk][permID.String()] = struct{}{}
	return nil
}

func (s *Store) DetachPermission(_ context.Context, roleID id.RoleID, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	perms, ok := s.rolePermissions[roleID.String()]
	if !ok {
		return fmt.Errorf("role %s permission %s: %w", roleID, permID, store.ErrNotFound)
	}
	if _, ok := perms[permID.String()]; !ok {
		return fmt.Errorf("role %s permission %s: %w", roleID, permID, store.ErrNotFound)
	}
	delete(perms, permID.String())
	return nil
}

func (s *Store) ListRolesForPrincipal(_ context.Context, tenantID, principalID string) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rolesAssignedLocked(tenantID, assignment.PrincipalUser, principalID), nil
}

// ListRolesForGroup only returns assignments made in the group's own tenant.
func (s *Store) ListRolesForGroup(_ context.Context, groupID id.GroupID) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID.String()]
	if !ok {
		return nil, nil
	}
	return s.rolesAssignedLocked(g.TenantID, assignment.PrincipalGroup, groupID.String()), nil
}

// rolesAssignedLocked returns active roles assigned to a principal. An empty
// tenantID matches any tenant. Caller must hold s.mu.
func (s *Store) rolesAssignedLocked(tenantID string, kind assignment.PrincipalKind, principalID string) []*role.Role {
	seen := make(map[string]struct{})
	var result []*role.Role
	for _, a := range s.assignments {
		if a.PrincipalKind != kind || a.PrincipalID != principalID {
			continue
		}
		if tenantID != "" && a.TenantID != tenantID {
			continue
		}
		rk := a.RoleID.String()
		if _, dup := seen[rk]; dup {
			continue
		}
		r, ok := s.roles[rk]
		if !ok || !r.Status.IsActive() || r.TenantID != a.TenantID {
			continue
		}
		seen[rk] = struct{}{}
		result = append(result, copyRole(r))
	}
	slices.SortFunc(result, func(a, b *role.Role) int { return id.Compare(a.ID, b.ID) })
	return result
}

// ──────────────────────────────────────────────────
// Permission Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(_ context.Context, p *permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.permissions {
		if existing.Status.IsActive() && existing.TenantID == p.TenantID && existing.Key() == p.Key() &&
			existing.Action == p.Action {
			return fmt.Errorf("permission %s (%s): %w", p.Key(), p.Action, store.ErrDuplicate)
		}
	}
	s.permissions[p.ID.String()] = copyPermission(p)
	return nil
}

func (s *Store) GetPermission(_ context.Context, permID id.PermissionID) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permID.String()]
	if !ok || !p.Status.IsActive() {
		return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}
	return copyPermission(p), nil
}

func (s *Store) GetPermissions(_ context.Context, tenantID, grainName, securableItem, name string) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := permission.Key{Grain: grainName, SecurableItem: securableItem, Name: name}
	var result []*permission.Permission
	for _, p := range s.permissions {
		if p.Status.IsActive() && p.TenantID == tenantID && p.Key() == key {
			result = append(result, copyPermission(p))
		}
	}
	slices.SortFunc(result, func(a, b *permission.Permission) int { return cmp.Compare(a.Action, b.Action) })
	return result, nil
}

func (s *Store) DeletePermission(_ context.Context, permID id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.permissions[permID.String()]
	if !ok || !p.Status.IsActive() {
		return fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}
	p.Status = entity.StatusDeleted
	return nil
}

func (s *Store) ListPermissions(_ context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*permission.Permission, 0, len(s.permissions))
	var p pagOpts
	for _, perm := range s.permissions {
		if !perm.Status.IsActive() {
			continue
		}
		if filter != nil {
			if filter.TenantID != "" && perm.TenantID != filter.TenantID {
				continue
			}
			if filter.Grain != "" && perm.Grain != filter.Grain {
				continue
			}
			if filter.SecurableItem != "" && perm.SecurableItem != filter.SecurableItem {
				continue
			}
			if filter.Name != "" && perm.Name != filter.Name {
				continue
			}
			if filter.Action != "" && perm.Action != filter.Action {
				continue
			}
		}
		result = append(result, copyPermission(perm))
	}
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	slices.SortFunc(result, comparePermissions)
	return applyPagination(result, p), nil
}

func (s *Store) ListPermissionsByRole(_ context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms := s.rolePermissions[roleID.String()]
	result := make([]*permission.Permission, 0, len(perms))
	for pid := range perms {
		p, ok := s.permissions[pid]
		if ok && p.Status.IsActive() {
			result = append(result, copyPermission(p))
		}
	}
	slices.SortFunc(result, comparePermissions)
	return result, nil
}

// ──────────────────────────────────────────────────
// Group Store
// ──────────────────────────────────────────────────

func (s *Store) CreateGroup(_ context.Context, g *group.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.groups {
		if existing.Status.IsActive() && existing.TenantID == g.TenantID && existing.Name == g.Name {
			return fmt.Errorf("group %q: %w", g.Name, store.ErrDuplicate)
		}
	}
	s.groups[g.ID.String()] = copyGroup(g)
	return nil
}

func (s *Store) GetGroup(_ context.Context, groupID id.GroupID) (*group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID.String()]
	if !ok || !g.Status.IsActive() {
		return nil, fmt.Errorf("group %s: %w", groupID, store.ErrNotFound)
	}
	return copyGroup(g), nil
}

func (s *Store) GetGroupByName(_ context.Context, tenantID, name string) (*group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.groups {
		if g.Status.IsActive() && g.TenantID == tenantID && g.Name == name {
			return copyGroup(g), nil
		}
	}
	return nil, fmt.Errorf("group %q: %w", name, store.ErrNotFound)
}

func (s *Store) ListGroups(_ context.Context, filter *group.ListFilter) ([]*group.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*group.Group, 0, len(s.groups))
	var p pagOpts
	for _, g := range s.groups {
		if !g.Status.IsActive() {
			continue
		}
		if filter != nil {
			if filter.TenantID != "" && g.TenantID != filter.TenantID {
				continue
			}
			if filter.Type != "" && g.Type != filter.Type {
				continue
			}
			if filter.Search != "" && !strings.Contains(strings.ToLower(g.Name), strings.ToLower(filter.Search)) {
				continue
			}
		}
		result = append(result, copyGroup(g))
	}
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	slices.SortFunc(result, func(a, b *group.Group) int { return cmp.Compare(a.Name, b.Name) })
	return applyPagination(result, p), nil
}

func (s *Store) DeleteGroup(_ context.Context, groupID id.GroupID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID.String()]
	if !ok || !g.Status.IsActive() {
		return fmt.Errorf("group %s: %w", groupID, store.ErrNotFound)
	}
	g.Status = entity.StatusDeleted
	return nil
}

func (s *Store) AddMember(_ context.Context, m *group.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.GroupID.String() == m.GroupID.String() && existing.MemberKind == m.MemberKind &&
			existing.MemberID == m.MemberID {
			return fmt.Errorf("group %s member %s: %w", m.GroupID, m.MemberID, store.ErrDuplicate)
		}
	}
	c := *m
	s.members[m.ID.String()] = &c
	return nil
}

func (s *Store) RemoveMember(_ context.Context, groupID id.GroupID, kind group.MemberKind, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, m := range s.members {
		if m.GroupID.String() == groupID.String() && m.MemberKind == kind && m.MemberID == memberID {
			delete(s.members, k)
			return nil
		}
	}
	return fmt.Errorf("group %s member %s: %w", groupID, memberID, store.ErrNotFound)
}

func (s *Store) ListMembers(_ context.Context, groupID id.GroupID) ([]*group.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*group.Member
	for _, m := range s.members {
		if m.GroupID.String() == groupID.String() {
			c := *m
			result = append(result, &c)
		}
	}
	slices.SortFunc(result, func(a, b *group.Member) int {
		return cmp.Or(cmp.Compare(a.MemberKind, b.MemberKind), cmp.Compare(a.MemberID, b.MemberID))
	})
	return result, nil
}

func (s *Store) ListGroupsForPrincipal(_ context.Context, tenantID, principalID string) ([]id.GroupID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.containingGroupsLocked(tenantID, group.MemberUser, principalID), nil
}

// ListParentGroups only returns parents in the child group's tenant.
func (s *Store) ListParentGroups(_ context.Context, groupID id.GroupID) ([]id.GroupID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	child, ok := s.groups[groupID.String()]
	if !ok {
		return nil, nil
	}
	return s.containingGroupsLocked(child.TenantID, group.MemberGroup, groupID.String()), nil
}

// containingGroupsLocked returns active groups with a direct membership for
// (kind, memberID). An empty tenantID matches any tenant. Caller must hold s.mu.
func (s *Store) containingGroupsLocked(tenantID string, kind group.MemberKind, memberID string) []id.GroupID {
	var result []id.GroupID
	for _, m := range s.members {
		if m.MemberKind != kind || m.MemberID != memberID {
			continue
		}
		if tenantID != "" && m.TenantID != tenantID {
			continue
		}
		g, ok := s.groups[m.GroupID.String()]
		if !ok || !g.Status.IsActive() || g.TenantID != m.TenantID {
			continue
		}
		result = append(result, m.GroupID)
	}
	slices.SortFunc(result, id.Compare)
	return slices.CompactFunc(result, func(a, b id.GroupID) bool { return a.String() == b.String() })
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(_ context.Context, a *assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.assignments {
		if existing.RoleID.String() == a.RoleID.String() && existing.PrincipalKind == a.PrincipalKind &&
			existing.PrincipalID == a.PrincipalID {
			return fmt.Errorf("assignment of %s to %s: %w", a.RoleID, a.PrincipalID, store.ErrDuplicate)
		}
	}
	c := *a
	s.assignments[a.ID.String()] = &c
	return nil
}

func (s *Store) GetAssignment(_ context.Context, assID id.AssignmentID) (*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assID.String()]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", assID, store.ErrNotFound)
	}
	c := *a
	return &c, nil
}

func (s *Store) DeleteAssignment(_ context.Context, assID id.AssignmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assignments[assID.String()]; !ok {
		return fmt.Errorf("assignment %s: %w", assID, store.ErrNotFound)
	}
	delete(s.assignments, assID.String())
	return nil
}

func (s *Store) ListAssignments(_ context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*assignment.Assignment, 0, len(s.assignments))
	var p pagOpts
	for _, a := range s.assignments {
		if filter != nil {
			if filter.TenantID != "" && a.TenantID != filter.TenantID {
				continue
			}
			if filter.PrincipalKind != "" && a.PrincipalKind != filter.PrincipalKind {
				continue
			}
			if filter.PrincipalID != "" && a.PrincipalID != filter.PrincipalID {
				continue
			}
			if filter.RoleID != nil && a.RoleID.String() != filter.RoleID.String() {
				continue
			}
		}
		c := *a
		result = append(result, &c)
	}
	if filter != nil {
		p = pagOpts{limit: filter.Limit, offset: filter.Offset}
	}
	slices.SortFunc(result, func(a, b *assignment.Assignment) int { return id.Compare(a.ID, b.ID) })
	return applyPagination(result, p), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyGrain(g *grain.Grain) *grain.Grain {
	c := *g
	c.RequiredWriteScopes = slices.Clone(g.RequiredWriteScopes)
	return &c
}

func copyItem(si *securableitem.SecurableItem) *securableitem.SecurableItem {
	c := *si
	if si.ParentID != nil {
		pid := *si.ParentID
		c.ParentID = &pid
	}
	return &c
}

func copyRole(r *role.Role) *role.Role {
	c := *r
	if r.ParentID != nil {
		pid := *r.ParentID
		c.ParentID = &pid
	}
	return &c
}

func copyPermission(p *permission.Permission) *permission.Permission {
	c := *p
	return &c
}

func copyGroup(g *group.Group) *group.Group {
	c := *g
	return &c
}

func comparePermissions(a, b *permission.Permission) int {
	return cmp.Or(
		cmp.Compare(a.Key().String(), b.Key().String()),
		cmp.Compare(a.Action, b.Action),
	)
}

type pagOpts struct{ limit, offset int }

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 {
		if p.offset >= len(items) {
			return nil
		}
		items = items[p.offset:]
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
