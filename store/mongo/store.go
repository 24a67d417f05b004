// Package mongo provides a MongoDB implementation of the granary composite
// store. Joins are resolved in two round trips using $in lookups.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

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

// Collection name constants.
const (
	colGrains          = "granary_grains"
	colSecurableItems  = "granary_securable_items"
	colRoles           = "granary_roles"
	colPermissions     = "granary_permissions"
	colRolePermissions = "granary_role_permissions"
	colGroups          = "granary_groups"
	colGroupMembers    = "granary_group_members"
	colAssignments     = "granary_assignments"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

const active = string(entity.StatusActive)

// Store is a MongoDB implementation of the composite granary store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all granary collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("granary/mongo: migrate %s indexes: %w", col, err)
		}
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

func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// activeUnique builds a unique index that only covers active documents, so
// soft-deleted names can be reused.
func activeUnique(keys ...string) mongod.IndexModel {
	d := make(bson.D, len(keys))
	for i, k := range keys {
		d[i] = bson.E{Key: k, Value: 1}
	}
	return mongod.IndexModel{
		Keys: d,
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": active}),
	}
}

// migrationIndexes returns the index definitions for all granary collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colGrains: {
			activeUnique("tenant_id", "name"),
		},
		colSecurableItems: {
			activeUnique("tenant_id", "grain", "name"),
			{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		},
		colRoles: {
			activeUnique("tenant_id", "grain", "securable_item", "name"),
			{Keys: bson.D{{Key: "parent_id", Value: 1}}},
		},
		colPermissions: {
			activeUnique("tenant_id", "grain", "securable_item", "name", "action"),
		},
		colRolePermissions: {
			{
				Keys:    bson.D{{Key: "role_id", Value: 1}, {Key: "permission_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "permission_id", Value: 1}}},
		},
		colGroups: {
			activeUnique("tenant_id", "name"),
		},
		colGroupMembers: {
			{
				Keys: bson.D{
					{Key: "group_id", Value: 1},
					{Key: "member_kind", Value: 1},
					{Key: "member_id", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "member_kind", Value: 1}, {Key: "member_id", Value: 1}}},
		},
		colAssignments: {
			{
				Keys: bson.D{
					{Key: "role_id", Value: 1},
					{Key: "principal_kind", Value: 1},
					{Key: "principal_id", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "principal_kind", Value: 1},
				{Key: "principal_id", Value: 1},
			}},
		},
	}
}

// ──────────────────────────────────────────────────
// Grain operations
// ──────────────────────────────────────────────────

func (s *Store) CreateGrain(ctx context.Context, g *grain.Grain) error {
	if _, err := s.mdb.NewInsert(grainToModel(g)).Exec(ctx); err != nil {
		return wrapWrite("create grain", g.Name, err)
	}
	return nil
}

func (s *Store) GetGrain(ctx context.Context, grainID id.GrainID) (*grain.Grain, error) {
	var m grainModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": grainID.String(), "status": active}).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("grain", grainID.String(), err)
	}
	return grainFromModel(&m), nil
}

func (s *Store) GetGrainByName(ctx context.Context, tenantID, name string) (*grain.Grain, error) {
	var m grainModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID, "name": name, "status": active}).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("grain", name, err)
	}
	return grainFromModel(&m), nil
}

func (s *Store) ListGrains(ctx context.Context, filter *grain.ListFilter) ([]*grain.Grain, error) {
	var models []grainModel
	f := bson.M{}
	if filter == nil || !filter.IncludeDeleted {
		f["status"] = active
	}
	q := s.mdb.NewFind(&models).Sort(bson.D{{Key: "name", Value: 1}})
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/mongo: list grains: %w", err)
	}
	result := make([]*grain.Grain, len(models))
	for i := range models {
		result[i] = grainFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteGrain(ctx context.Context, grainID id.GrainID) error {
	var m grainModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": grainID.String(), "status": active}).
		Scan(ctx)
	if err != nil {
		return wrapRead("grain", grainID.String(), err)
	}
	m.Status = string(entity.StatusDeleted)
	m.UpdatedAt = now()
	if _, err := s.mdb.NewUpdate(&m).Filter(bson.M{"_id": m.ID}).Exec(ctx); err != nil {
		return fmt.Errorf("granary/mongo: delete grain: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Securable item operations
// ──────────────────────────────────────────────────

func (s *Store) CreateSecurableItem(ctx context.Context, si *securableitem.SecurableItem) error {
	if _, err := s.mdb.NewInsert(securableItemToModel(si)).Exec(ctx); err != nil {
		return wrapWrite("create securable item", si.Grain+"/"+si.Name, err)
	}
	return nil
}

func (s *Store) GetSecurableItem(ctx context.Context, itemID id.SecurableItemID) (*securableitem.SecurableItem, error) {
	var m securableItemModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": itemID.String(), "status": active}).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("securable item", itemID.String(), err)
	}
	return securableItemFromModel(&m), nil
}

func (s *Store) GetSecurableItemByName(ctx context.Context, tenantID, grainName, name string) (*securableitem.SecurableItem, error) {
	var m securableItemModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID, "grain": grainName, "name": name, "status": active}).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("securable item", grainName+"/"+name, err)
	}
	return securableItemFromModel(&m), nil
}

func (s *Store) ListSecurableItems(ctx context.Context, filter *securableitem.ListFilter) ([]*securableitem.SecurableItem, error) {
	var models []securableItemModel
	f := bson.M{"status": active}
	q := s.mdb.NewFind(&models).Sort(bson.D{{Key: "grain", Value: 1}, {Key: "name", Value: 1}})
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Grain != "" {
			f["grain"] = filter.Grain
		}
		if filter.ParentID != nil {
			f["parent_id"] = filter.ParentID.String()
		}
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/mongo: list securable items: %w", err)
	}
	result := make([]*securableitem.SecurableItem, len(models))
	for i := range models {
		result[i] = securableItemFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteSecurableItem(ctx context.Context, itemID id.SecurableItemID) error {
	var m securableItemModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": itemID.String(), "status": active}).
		Scan(ctx)
	if err != nil {
		return wrapRead("securable item", itemID.String(), err)
	}
	m.Status = string(entity.StatusDeleted)
	m.UpdatedAt = now()
	if _, err := s.mdb.NewUpdate(&m).Filter(bson.M{"_id": m.ID}).Exec(ctx); err != nil {
		return fmt.Errorf("granary/mongo: delete securable item: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Role operations
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	if _, err := s.mdb.NewInsert(roleToModel(r)).Exec(ctx); err != nil {
		return wrapWrite("create role", r.Name, err)
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String(), "status": active}).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("role", roleID.String(), err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) GetRoleByName(ctx context.Context, tenantID, grainName, securableItem, name string) (*role.Role, error) {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{
			"tenant_id":      tenantID,
			"grain":          grainName,
			"securable_item": securableItem,
			"name":           name,
			"status":         active,
		}).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("role", name, err)
	}
	return roleFromModel(&m), nil
}

func (s *Store) UpdateRole(ctx context.Context, r *role.Role) error {
	m := roleToModel(r)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID, "status": active}).
		Exec(ctx)
	if err != nil {
		return wrapWrite("update role", r.Name, err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	var m roleModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": roleID.String(), "status": active}).
		Scan(ctx)
	if err != nil {
		return wrapRead("role", roleID.String(), err)
	}
	m.Status = string(entity.StatusDeleted)
	m.UpdatedAt = now()
	if _, err := s.mdb.NewUpdate(&m).Filter(bson.M{"_id": m.ID}).Exec(ctx); err != nil {
		return fmt.Errorf("granary/mongo: delete role: %w", err)
	}
	return nil
}

func (s *Store) ListRoles(ctx context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	var models []roleModel
	f := bson.M{"status": active}
	q := s.mdb.NewFind(&models).Sort(bson.D{{Key: "_id", Value: 1}})
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Grain != "" {
			f["grain"] = filter.Grain
		}
		if filter.SecurableItem != "" {
			f["securable_item"] = filter.SecurableItem
		}
		if filter.Name != "" {
			f["name"] = bson.M{"$regex": "^" + regexp.QuoteMeta(filter.Name) + "$", "$options": "i"}
		}
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/mongo: list roles: %w", err)
	}
	return rolesFromModels(models), nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	var models []rolePermissionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"role_id": roleID.String()}).
		Sort(bson.D{{Key: "permission_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/mongo: list role permissions: %w", err)
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
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("granary/mongo: attach permission: %w", err)
	}
	return nil
}

func (s *Store) DetachPermission(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error {
	res, err := s.mdb.NewDelete((*rolePermissionModel)(nil)).
		Filter(bson.M{"role_id": roleID.String(), "permission_id": permID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("granary/mongo: detach permission: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("role %s permission %s: %w", roleID, permID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListRolesForPrincipal(ctx context.Context, tenantID, principalID string) ([]*role.Role, error) {
	return s.rolesAssignedTo(ctx, tenantID, assignment.PrincipalUser, principalID)
}

// ListRolesForGroup only returns assignments made in the group's own tenant.
func (s *Store) ListRolesForGroup(ctx context.Context, groupID id.GroupID) ([]*role.Role, error) {
	tenantID, ok, err := s.groupTenant(ctx, groupID)
	if err != nil || !ok {
		return nil, err
	}
	return s.rolesAssignedTo(ctx, tenantID, assignment.PrincipalGroup, groupID.String())
}

func (s *Store) rolesAssignedTo(ctx context.Context, tenantID string, kind assignment.PrincipalKind, principalID string) ([]*role.Role, error) {
	var assignments []assignmentModel
	err := s.mdb.NewFind(&assignments).
		Filter(bson.M{
			"tenant_id":      tenantID,
			"principal_kind": string(kind),
			"principal_id":   principalID,
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/mongo: list assignments for roles: %w", err)
	}
	if len(assignments) == 0 {
		return nil, nil
	}
	roleIDs := make([]string, len(assignments))
	for i, a := range assignments {
		roleIDs[i] = a.RoleID
	}
	var models []roleModel
	err = s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$in": roleIDs}, "tenant_id": tenantID, "status": active}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/mongo: list assigned roles: %w", err)
	}
	return rolesFromModels(models), nil
}

// groupTenant returns the tenant of a group whatever its status. ok is
// false when the group does not exist.
func (s *Store) groupTenant(ctx context.Context, groupID id.GroupID) (string, bool, error) {
	var m groupModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": groupID.String()}).Scan(ctx)
	if isNoDocuments(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("granary/mongo: get group %s: %w", groupID, err)
	}
	return m.TenantID, true, nil
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

var permissionSort = bson.D{
	{Key: "grain", Value: 1},
	{Key: "securable_item", Value: 1},
	{Key: "name", Value: 1},
	{Key: "action", Value: 1},
}

func (s *Store) CreatePermission(ctx context.Context, p *permission.Permission) error {
	if _, err := s.mdb.NewInsert(permissionToModel(p)).Exec(ctx); err != nil {
		return wrapWrite("create permission", p.Key().String(), err)
	}
	return nil
}

func (s *Store) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": permID.String(), "status": active}).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("permission", permID.String(), err)
	}
	return permissionFromModel(&m), nil
}

func (s *Store) GetPermissions(ctx context.Context, tenantID, grainName, securableItem, name string) ([]*permission.Permission, error) {
	var models []permissionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"tenant_id":      tenantID,
			"grain":          grainName,
			"securable_item": securableItem,
			"name":           name,
			"status":         active,
		}).
		Sort(bson.D{{Key: "action", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/mongo: get permissions: %w", err)
	}
	return permissionsFromModels(models), nil
}

func (s *Store) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	var m permissionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": permID.String(), "status": active}).
		Scan(ctx)
	if err != nil {
		return wrapRead("permission", permID.String(), err)
	}
	m.Status = string(entity.StatusDeleted)
	m.UpdatedAt = now()
	if _, err := s.mdb.NewUpdate(&m).Filter(bson.M{"_id": m.ID}).Exec(ctx); err != nil {
		return fmt.Errorf("granary/mongo: delete permission: %w", err)
	}
	return nil
}

func (s *Store) ListPermissions(ctx context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	var models []permissionModel
	f := bson.M{"status": active}
	q := s.mdb.NewFind(&models).Sort(permissionSort)
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Grain != "" {
			f["grain"] = filter.Grain
		}
		if filter.SecurableItem != "" {
			f["securable_item"] = filter.SecurableItem
		}
		if filter.Name != "" {
			f["name"] = filter.Name
		}
		if filter.Action != "" {
			f["action"] = string(filter.Action)
		}
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/mongo: list permissions: %w", err)
	}
	return permissionsFromModels(models), nil
}

func (s *Store) ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	var links []rolePermissionModel
	if err := s.mdb.NewFind(&links).Filter(bson.M{"role_id": roleID.String()}).Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/mongo: list role permission links: %w", err)
	}
	if len(links) == 0 {
		return nil, nil
	}
	permIDs := make([]string, len(links))
	for i, l := range links {
		permIDs[i] = l.PermissionID
	}
	var models []permissionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$in": permIDs}, "status": active}).
		Sort(permissionSort).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/mongo: list permissions by role: %w", err)
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
	if _, err := s.mdb.NewInsert(groupToModel(g)).Exec(ctx); err != nil {
		return wrapWrite("create group", g.Name, err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID id.GroupID) (*group.Group, error) {
	var m groupModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": groupID.String(), "status": active}).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("group", groupID.String(), err)
	}
	return groupFromModel(&m), nil
}

func (s *Store) GetGroupByName(ctx context.Context, tenantID, name string) (*group.Group, error) {
	var m groupModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID, "name": name, "status": active}).
		Scan(ctx)
	if err != nil {
		return nil, wrapRead("group", name, err)
	}
	return groupFromModel(&m), nil
}

func (s *Store) ListGroups(ctx context.Context, filter *group.ListFilter) ([]*group.Group, error) {
	var models []groupModel
	f := bson.M{"status": active}
	q := s.mdb.NewFind(&models).Sort(bson.D{{Key: "name", Value: 1}})
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.Type != "" {
			f["type"] = string(filter.Type)
		}
		if filter.Search != "" {
			f["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
		}
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/mongo: list groups: %w", err)
	}
	result := make([]*group.Group, len(models))
	for i := range models {
		result[i] = groupFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID id.GroupID) error {
	var m groupModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": groupID.String(), "status": active}).
		Scan(ctx)
	if err != nil {
		return wrapRead("group", groupID.String(), err)
	}
	m.Status = string(entity.StatusDeleted)
	m.UpdatedAt = now()
	if _, err := s.mdb.NewUpdate(&m).Filter(bson.M{"_id": m.ID}).Exec(ctx); err != nil {
		return fmt.Errorf("granary/mongo: delete group: %w", err)
	}
	return nil
}

func (s *Store) AddMember(ctx context.Context, m *group.Member) error {
	if _, err := s.mdb.NewInsert(memberToModel(m)).Exec(ctx); err != nil {
		return wrapWrite("add group member", m.MemberID, err)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID id.GroupID, kind group.MemberKind, memberID string) error {
	res, err := s.mdb.NewDelete((*memberModel)(nil)).
		Filter(bson.M{
			"group_id":    groupID.String(),
			"member_kind": string(kind),
			"member_id":   memberID,
		}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("granary/mongo: remove group member: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("group %s member %s: %w", groupID, memberID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListMembers(ctx context.Context, groupID id.GroupID) ([]*group.Member, error) {
	var models []memberModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"group_id": groupID.String()}).
		Sort(bson.D{{Key: "member_kind", Value: 1}, {Key: "member_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/mongo: list group members: %w", err)
	}
	result := make([]*group.Member, len(models))
	for i := range models {
		result[i] = memberFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) ListGroupsForPrincipal(ctx context.Context, tenantID, principalID string) ([]id.GroupID, error) {
	return s.activeGroupsContaining(ctx, tenantID, group.MemberUser, principalID)
}

// ListParentGroups only returns parents in the child group's tenant.
func (s *Store) ListParentGroups(ctx context.Context, groupID id.GroupID) ([]id.GroupID, error) {
	tenantID, ok, err := s.groupTenant(ctx, groupID)
	if err != nil || !ok {
		return nil, err
	}
	return s.activeGroupsContaining(ctx, tenantID, group.MemberGroup, groupID.String())
}

func (s *Store) activeGroupsContaining(ctx context.Context, tenantID string, kind group.MemberKind, memberID string) ([]id.GroupID, error) {
	var members []memberModel
	err := s.mdb.NewFind(&members).
		Filter(bson.M{
			"tenant_id":   tenantID,
			"member_kind": string(kind),
			"member_id":   memberID,
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/mongo: list memberships: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	groupIDs := make([]string, len(members))
	for i, m := range members {
		groupIDs[i] = m.GroupID
	}
	var models []groupModel
	err = s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$in": groupIDs}, "tenant_id": tenantID, "status": active}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("granary/mongo: list member groups: %w", err)
	}
	result := make([]id.GroupID, 0, len(models))
	for _, m := range models {
		if gid, err := id.ParseGroupID(m.ID); err == nil {
			result = append(result, gid)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Assignment operations
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	if _, err := s.mdb.NewInsert(assignmentToModel(a)).Exec(ctx); err != nil {
		return wrapWrite("create assignment", a.PrincipalID, err)
	}
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, assID id.AssignmentID) (*assignment.Assignment, error) {
	var m assignmentModel
	if err := s.mdb.NewFind(&m).Filter(bson.M{"_id": assID.String()}).Scan(ctx); err != nil {
		return nil, wrapRead("assignment", assID.String(), err)
	}
	return assignmentFromModel(&m), nil
}

func (s *Store) DeleteAssignment(ctx context.Context, assID id.AssignmentID) error {
	res, err := s.mdb.NewDelete((*assignmentModel)(nil)).
		Filter(bson.M{"_id": assID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("granary/mongo: delete assignment: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("assignment %s: %w", assID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListAssignments(ctx context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	var models []assignmentModel
	f := bson.M{}
	q := s.mdb.NewFind(&models).Sort(bson.D{{Key: "_id", Value: 1}})
	if filter != nil {
		if filter.TenantID != "" {
			f["tenant_id"] = filter.TenantID
		}
		if filter.RoleID != nil {
			f["role_id"] = filter.RoleID.String()
		}
		if filter.PrincipalKind != "" {
			f["principal_kind"] = string(filter.PrincipalKind)
		}
		if filter.PrincipalID != "" {
			f["principal_id"] = filter.PrincipalID
		}
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("granary/mongo: list assignments: %w", err)
	}
	result := make([]*assignment.Assignment, len(models))
	for i := range models {
		result[i] = assignmentFromModel(&models[i])
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func wrapRead(kind, key string, err error) error {
	if isNoDocuments(err) {
		return fmt.Errorf("%s %s: %w", kind, key, store.ErrNotFound)
	}
	return fmt.Errorf("granary/mongo: get %s: %w", kind, err)
}

func wrapWrite(op, key string, err error) error {
	if mongod.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %q: %w", op, key, store.ErrDuplicate)
	}
	return fmt.Errorf("granary/mongo: %s: %w", op, err)
}
