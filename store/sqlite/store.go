// Package sqlite provides a SQLite implementation of the granary composite
// store for single-node and embedded deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

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

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

const active = string(entity.StatusActive)

// Store is a SQLite implementation of the composite granary store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("granary/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("granary/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ──────────────────────────────────────────────────
// Grain operations
// ──────────────────────────────────────────────────

func (s *Store) CreateGrain(ctx context.Context, g *grain.Grain) error {
	m, err := grainToModel(g)
	if err != nil {
		return err
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return wrapWrite("create grain", g.Name, err)
	}
	return nil
}

func (s *Store) GetGrain(ctx context.Context, grainID id.GrainID) (*grain.Grain, error) {
	m := new(grainModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", grainID.String()).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("grain", grainID.String(), err)
	}
	return grainFromModel(m)
}

func (s *Store) GetGrainByName(ctx context.Context, tenantID, name string) (*grain.Grain, error) {
	m := new(grainModel)
	err := s.sdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Where("name = ?", name).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("grain", name, err)
	}
	return grainFromModel(m)
}

func (s *Store) ListGrains(ctx context.Context, filter *grain.ListFilter) ([]*grain.Grain, error) {
	var models []grainModel
	q := s.sdb.NewSelect(&models).OrderExpr("name ASC")
	if filter == nil || !filter.IncludeDeleted {
		q = q.Where("status = ?", active)
	}
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/sqlite: list grains: %w", err)
	}
	result := make([]*grain.Grain, len(models))
	for i := range models {
		g, err := grainFromModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = g
	}
	return result, nil
}

func (s *Store) DeleteGrain(ctx context.Context, grainID id.GrainID) error {
	m := new(grainModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", grainID.String()).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return wrapRead("grain", grainID.String(), err)
	}
	m.Status = string(entity.StatusDeleted)
	m.UpdatedAt = time.Now().UTC()
	if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("granary/sqlite: delete grain: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Securable item operations
// ──────────────────────────────────────────────────

func (s *Store) CreateSecurableItem(ctx context.Context, si *securableitem.SecurableItem) error {
	if _, err := s.sdb.NewInsert(securableItemToModel(si)).Exec(ctx); err != nil {
		return wrapWrite("create securable item", si.Grain+"/"+si.Name, err)
	}
	return nil
}

func (s *Store) GetSecurableItem(ctx context.Context, itemID id.SecurableItemID) (*securableitem.SecurableItem, error) {
	m := new(securableItemModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", itemID.String()).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("securable item", itemID.String(), err)
	}
	return securableItemFromModel(m), nil
}

func (s *Store) GetSecurableItemByName(ctx context.Context, tenantID, grainName, name string) (*securableitem.SecurableItem, error) {
	m := new(securableItemModel)
	err := s.sdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Where("grain = ?", grainName).
		Where("name = ?", name).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("securable item", grainName+"/"+name, err)
	}
	return securableItemFromModel(m), nil
}

func (s *Store) ListSecurableItems(ctx context.Context, filter *securableitem.ListFilter) ([]*securableitem.SecurableItem, error) {
	var models []securableItemModel
	q := s.sdb.NewSelect(&models).
		Where("status = ?", active).
		OrderExpr("grain ASC, name ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Grain != "" {
			q = q.Where("grain = ?", filter.Grain)
		}
		if filter.ParentID != nil {
			q = q.Where("parent_id = ?", filter.ParentID.String())
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/sqlite: list securable items: %w", err)
	}
	result := make([]*securableitem.SecurableItem, len(models))
	for i := range models {
		result[i] = securableItemFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteSecurableItem(ctx context.Context, itemID id.SecurableItemID) error {
	m := new(securableItemModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", itemID.String()).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return wrapRead("securable item", itemID.String(), err)
	}
	m.Status = string(entity.StatusDeleted)
	m.UpdatedAt = time.Now().UTC()
	if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("granary/sqlite: delete securable item: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	if _, err := s.sdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		return wrapWrite("create role", r.Name, err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", roleID.String()).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("role", roleID.String(), err)
	}
	return roleFromModel(m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, tenantID, grainName, securableItem, name string) (*role.Role, error) {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Where("grain = ?", grainName).
		Where("securable_item = ?", securableItem).
		Where("name = ?", name).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("role", name, err)
	}
	return roleFromModel(m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	if _, err := s.GetRole(ctx, r.ID); err != nil {
		return err
	}
	if _, err := s.sdb.NewUpdate(roleToModel(r)).WherePK().Exec(ctx); err != nil {
		return wrapWrite("update role", r.Name, err)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	m := new(roleModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", roleID.String()).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return wrapRead("role", roleID.String(), err)
	}
	m.Status = string(entity.StatusDeleted)
	m.UpdatedAt = time.Now().UTC()
	if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("granary/sqlite: delete role: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	q := s.sdb.NewSelect(&models).
		Where("status = ?", active).
		OrderExpr("id ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Grain != "" {
			q = q.Where("grain = ?", filter.Grain)
		}
		if filter.SecurableItem != "" {
			q = q.Where("securable_item = ?", filter.SecurableItem)
		}
		if filter.Name != "" {
			q = q.Where("LOWER(name) = LOWER(?)", filter.Name)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/sqlite: list roles: %w", err)
	}
	return rolesFromModels(models), nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	var models []rolePermissionModel
	err := s.sdb.NewSelect(&models).
		Where("role_id = ?", roleID.String()).
		OrderExpr("permission_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/sqlite: list role permissions: %w", err)
	}
	result := make([]id.PermissionID, 0, len(models))
	for _, m := range models {
		if pid, err := id.ParsePermissionID(m.PermissionID); err == nil {
			result = append(result, pid)
		}
	}
	return result, nil
}

func (s *Store) AttachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error {
	m := &rolePermissionModel{
		RoleID:       roleID.String(),
		PermissionID: permID.String(),
	}
	_, err := s.sdb.NewInsert(m).
		OnConflict("(role_id, permission_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("granary/sqlite: attach permission: %w", err)
	}
	return nil
}

func (s *Store) DetachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error {
	res, err := s.sdb.NewDelete((*rolePermissionModel)(nil)).
		Where("role_id = ?", roleID.String()).
		Where("permission_id = ?", permID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("granary/sqlite: detach permission: %w", err)
	}
	return requireAffected(res, fmt.Errorf("role %s permission %s: %w", roleID, permID, store.ErrNotFound))
}

func (s *Store) ListRolesForPrincipal(ctx context.Context, tenantID, principalID string) ([]*role.Role, error) {
	var models []roleModel
	err := s.sdb.NewSelect(&models).
		Join("JOIN", "granary_assignments AS a", "a.role_id = granary_roles.id AND a.tenant_id = granary_roles.tenant_id").
		Where("a.tenant_id = ?", tenantID).
		Where("a.principal_kind = ?", string(assignment.PrincipalUser)).
		Where("a.principal_id = ?", principalID).
		Where("granary_roles.status = ?", active).
		OrderExpr("granary_roles.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/sqlite: list roles for principal: %w", err)
	}
	return rolesFromModels(models), nil
}

func (s *Store) ListRolesForGroup(ctx context.Context, groupID id.GroupID) ([]*role.Role, error) {
	var models []roleModel
	err := s.sdb.NewSelect(&models).
		Join("JOIN", "granary_assignments AS a", "a.role_id = granary_roles.id AND a.tenant_id = granary_roles.tenant_id").
		Where("a.tenant_id = (SELECT g.tenant_id FROM granary_groups AS g WHERE g.id = ?)", groupID.String()).
		Where("a.principal_kind = ?", string(assignment.PrincipalGroup)).
		Where("a.principal_id = ?", groupID.String()).
		Where("granary_roles.status = ?", active).
		OrderExpr("granary_roles.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/sqlite: list roles for group: %w", err)
	}
	return rolesFromModels(models), nil
}

func rolesFromModels(models []roleModel) []*role.Role {
	result := make([]*role.Role, len(models))
	for i := range models {
		result[i] = roleFromModel(&models[i])
	}
	return result
}

// ──────────────────────────────────────────────────
// Permission operations
// ──────────────────────────────────────────────────

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	if _, err := s.sdb.NewInsert(permissionToModel(p)).Exec(ctx); err != nil {
		return wrapWrite("create permission", p.Key().String(), err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	m := new(permissionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", permID.String()).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("permission", permID.String(), err)
	}
	return permissionFromModel(m), nil
}

func (s *Store) GetPermissions(ctx context.Context, tenantID, grainName, securableItem, name string) ([]*permission.Permission, error) {
	var models []permissionModel
	err := s.sdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		Where("grain = ?", grainName).
		Where("securable_item = ?", securableItem).
		Where("name = ?", name).
		Where("status = ?", active).
		OrderExpr("action ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/sqlite: get permissions: %w", err)
	}
	return permissionsFromModels(models), nil
}

func (s *Store) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	m := new(permissionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", permID.String()).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return wrapRead("permission", permID.String(), err)
	}
	m.Status = string(entity.StatusDeleted)
	m.UpdatedAt = time.Now().UTC()
	if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("granary/sqlite: delete permission: %w", err)
	}
	return nil
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	q := s.sdb.NewSelect(&models).
		Where("status = ?", active).
		OrderExpr("grain ASC, securable_item ASC, name ASC, action ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Grain != "" {
			q = q.Where("grain = ?", filter.Grain)
		}
		if filter.SecurableItem != "" {
			q = q.Where("securable_item = ?", filter.SecurableItem)
		}
		if filter.Name != "" {
			q = q.Where("name = ?", filter.Name)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", string(filter.Action))
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/sqlite: list permissions: %w", err)
	}
	return permissionsFromModels(models), nil
}

func (s *Store) ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	var models []permissionModel
	err := s.sdb.NewSelect(&models).
		Join("JOIN", "granary_role_permissions AS rp", "rp.permission_id = granary_permissions.id").
		Where("rp.role_id = ?", roleID.String()).
		Where("granary_permissions.status = ?", active).
		OrderExpr("granary_permissions.grain ASC, granary_permissions.securable_item ASC, granary_permissions.name ASC, granary_permissions.action ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/sqlite: list permissions by role: %w", err)
	}
	return permissionsFromModels(models), nil
}

func permissionsFromModels(models []permissionModel) []*permission.Permission {
	result := make([]*permission.Permission, len(models))
	for i := range models {
		result[i] = permissionFromModel(&models[i])
	}
	return result
}

// ──────────────────────────────────────────────────
// Group operations
// ──────────────────────────────────────────────────

func (s *Store) CreateGroup(ctx context.Context, g *group.Group) error {
	if _, err := s.sdb.NewInsert(groupToModel(g)).Exec(ctx); err != nil {
		return wrapWrite("create group", g.Name, err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID id.GroupID) (*group.Group, error) {
	m := new(groupModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", groupID.String()).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("group", groupID.String(), err)
	}
	return groupFromModel(m), nil
}

func (s *Store) GetGroupByName(ctx context.Context, tenantID, name string) (*group.Group, error) {
	m := new(groupModel)
	err := s.sdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Where("name = ?", name).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("group", name, err)
	}
	return groupFromModel(m), nil
}

func (s *Store) ListGroups(ctx context.Context, filter *group.ListFilter) ([]*group.Group, error) {
	var models []groupModel
	q := s.sdb.NewSelect(&models).
		Where("status = ?", active).
		OrderExpr("name ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.Type != "" {
			q = q.Where("type = ?", string(filter.Type))
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/sqlite: list groups: %w", err)
	}
	result := make([]*group.Group, len(models))
	for i := range models {
		result[i] = groupFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID id.GroupID) error {
	m := new(groupModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", groupID.String()).
		Where("status = ?", active).
		Scan(ctx)
	if err != nil {
		return wrapRead("group", groupID.String(), err)
	}
	m.Status = string(entity.StatusDeleted)
	m.UpdatedAt = time.Now().UTC()
	if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("granary/sqlite: delete group: %w", err)
	}
	return nil
}

func (s *Store) AddMember(ctx context.Context, m *group.Member) error {
	if _, err := s.sdb.NewInsert(memberToModel(m)).Exec(ctx); err != nil {
		return wrapWrite("add group member", m.MemberID, err)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID id.GroupID, kind group.MemberKind, memberID string) error {
	res, err := s.sdb.NewDelete((*memberModel)(nil)).
		Where("group_id = ?", groupID.String()).
		Where("member_kind = ?", string(kind)).
		Where("member_id = ?", memberID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("granary/sqlite: remove group member: %w", err)
	}
	return requireAffected(res, fmt.Errorf("group %s member %s: %w", groupID, memberID, store.ErrNotFound))
}

func (s *Store) ListMembers(ctx context.Context, groupID id.GroupID) ([]*group.Member, error) {
	var models []memberModel
	err := s.sdb.NewSelect(&models).
		Where("group_id = ?", groupID.String()).
		OrderExpr("member_kind ASC, member_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/sqlite: list group members: %w", err)
	}
	result := make([]*group.Member, len(models))
	for i := range models {
		result[i] = memberFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListGroupsForPrincipal(ctx context.Context, tenantID, principalID string) ([]id.GroupID, error) {
	var models []groupModel
	err := s.sdb.NewSelect(&models).
		Join("JOIN", "granary_group_members AS gm", "gm.group_id = granary_groups.id AND gm.tenant_id = granary_groups.tenant_id").
		Where("gm.tenant_id = ?", tenantID).
		Where("gm.member_kind = ?", string(group.MemberUser)).
		Where("gm.member_id = ?", principalID).
		Where("granary_groups.status = ?", active).
		OrderExpr("granary_groups.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/sqlite: list groups for principal: %w", err)
	}
	return groupIDs(models), nil
}

func (s *Store) ListParentGroups(ctx context.Context, groupID id.GroupID) ([]id.GroupID, error) {
	var models []groupModel
	err := s.sdb.NewSelect(&models).
		Join("JOIN", "granary_group_members AS gm", "gm.group_id = granary_groups.id AND gm.tenant_id = granary_groups.tenant_id").
		Where("gm.tenant_id = (SELECT c.tenant_id FROM granary_groups AS c WHERE c.id = ?)", groupID.String()).
		Where("gm.member_kind = ?", string(group.MemberGroup)).
		Where("gm.member_id = ?", groupID.String()).
		Where("granary_groups.status = ?", active).
		OrderExpr("granary_groups.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/sqlite: list parent groups: %w", err)
	}
	return groupIDs(models), nil
}

func groupIDs(models []groupModel) []id.GroupID {
	result := make([]id.GroupID, 0, len(models))
	for _, m := range models {
		if gid, err := id.ParseGroupID(m.ID); err == nil {
			result = append(result, gid)
		}
	}
	return result
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	if _, err := s.sdb.NewInsert(assignmentToModel(a)).Exec(ctx); err != nil {
		return wrapWrite("create assignment", a.PrincipalID, err)
	}
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, assID id.AssignmentID) (*assignment.Assignment, error) {
	m := new(assignmentModel)
	if err := s.sdb.NewSelect(m).Where("id = ?", assID.String()).Scan(ctx); err != nil {
		return nil, wrapRead("assignment", assID.String(), err)
	}
	return assignmentFromModel(m), nil
}

func (s *Store) DeleteAssignment(ctx context.Context, assID id.AssignmentID) error {
	res, err := s.sdb.NewDelete((*assignmentModel)(nil)).
		Where("id = ?", assID.String()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("granary/sqlite: delete assignment: %w", err)
	}
	return requireAffected(res, fmt.Errorf("assignment %s: %w", assID, store.ErrNotFound))
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	q := s.sdb.NewSelect(&models).OrderExpr("id ASC")
	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where("tenant_id = ?", filter.TenantID)
		}
		if filter.RoleID != nil {
			q = q.Where("role_id = ?", filter.RoleID.String())
		}
		if filter.PrincipalKind != "" {
			q = q.Where("principal_kind = ?", string(filter.PrincipalKind))
		}
		if filter.PrincipalID != "" {
			q = q.Where("principal_id = ?", filter.PrincipalID)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/sqlite: list assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Error helpers
// ──────────────────────────────────────────────────

// requireAffected returns missing when res reports no affected rows.
func requireAffected(res interface{ RowsAffected() (int64, error) }, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("granary/sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

func wrapRead(kind, key string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, key, store.ErrNotFound)
	}
	return fmt.Errorf("granary/sqlite: get %s: %w", kind, err)
}

// isUniqueViolation matches SQLite unique constraint failures.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func wrapWrite(op, key string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s %q: %w", op, key, store.ErrDuplicate)
	}
	return fmt.Errorf("granary/sqlite: %s: %w", op, err)
}
