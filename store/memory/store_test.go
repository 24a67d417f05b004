package memory

import (
	"context"
	"errors"
	"testing"

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

func TestGrainCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	g := &grain.Grain{ID: id.NewGrainID(), TenantID: "t1", Name: "app", Status: entity.StatusActive}
	if err := s.CreateGrain(ctx, g); err != nil {
		t.Fatal(err)
	}
	dup := &grain.Grain{ID: id.NewGrainID(), TenantID: "t1", Name: "app"}
	if err := s.CreateGrain(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	other := &grain.Grain{ID: id.NewGrainID(), TenantID: "t2", Name: "app"}
	if err := s.CreateGrain(ctx, other); err != nil {
		t.Fatalf("same name in another tenant should be allowed: %v", err)
	}

	got, err := s.GetGrainByName(ctx, "t1", "app")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != g.ID {
		t.Fatal("name lookup mismatch")
	}

	if err := s.DeleteGrain(ctx, g.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetGrain(ctx, g.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	list, _ := s.ListGrains(ctx, &grain.ListFilter{TenantID: "t1"})
	if len(list) != 0 {
		t.Fatalf("expected deleted grain to be hidden, got %d", len(list))
	}
	list, _ = s.ListGrains(ctx, &grain.ListFilter{TenantID: "t1", IncludeDeleted: true})
	if len(list) != 1 || list[0].Status != entity.StatusDeleted {
		t.Fatalf("expected one deleted grain, got %+v", list)
	}
	if err := s.DeleteGrain(ctx, g.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected second delete to fail with ErrNotFound, got %v", err)
	}
}

func TestSecurableItemCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	parent := &securableitem.SecurableItem{ID: id.NewSecurableItemID(), TenantID: "t1", Grain: "app", Name: "patientsafety"}
	child := &securableitem.SecurableItem{ID: id.NewSecurableItemID(), TenantID: "t1", Grain: "app", Name: "reports", ParentID: &parent.ID}
	for _, si := range []*securableitem.SecurableItem{parent, child} {
		if err := s.CreateSecurableItem(ctx, si); err != nil {
			t.Fatal(err)
		}
	}
	dup := &securableitem.SecurableItem{ID: id.NewSecurableItemID(), TenantID: "t1", Grain: "app", Name: "reports"}
	if err := s.CreateSecurableItem(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	children, err := s.ListSecurableItems(ctx, &securableitem.ListFilter{TenantID: "t1", ParentID: &parent.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 || children[0].Name != "reports" {
		t.Fatalf("expected reports child, got %+v", children)
	}

	got, err := s.GetSecurableItemByName(ctx, "t1", "app", "patientsafety")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != parent.ID {
		t.Fatal("name lookup mismatch")
	}
}

func TestRoleCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Grain: "app", SecurableItem: "patientsafety", Name: "editor"}
	if err := s.CreateRole(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRoleByName(ctx, "t1", "app", "patientsafety", "editor")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != r.ID {
		t.Fatal("name lookup mismatch")
	}

	r.DisplayName = "Editor"
	if err := s.UpdateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetRole(ctx, r.ID)
	if got.DisplayName != "Editor" {
		t.Fatal("update failed")
	}

	list, _ := s.ListRoles(ctx, &role.ListFilter{TenantID: "t1", Grain: "app"})
	if len(list) != 1 {
		t.Fatalf("expected 1 role, got %d", len(list))
	}

	if err := s.DeleteRole(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRole(ctx, r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.UpdateRole(ctx, r); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected update of deleted role to fail, got %v", err)
	}
}

func TestPermissionIdentityAllowsAllowAndDeny(t *testing.T) {
	ctx := context.Background()
	s := New()

	allow := &permission.Permission{ID: id.NewPermissionID(), TenantID: "t1", Grain: "app", SecurableItem: "ps", Name: "edit", Action: permission.ActionAllow}
	deny := &permission.Permission{ID: id.NewPermissionID(), TenantID: "t1", Grain: "app", SecurableItem: "ps", Name: "edit", Action: permission.ActionDeny}
	if err := s.CreatePermission(ctx, allow); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePermission(ctx, deny); err != nil {
		t.Fatalf("deny with the same name should be a distinct permission: %v", err)
	}
	again := &permission.Permission{ID: id.NewPermissionID(), TenantID: "t1", Grain: "app", SecurableItem: "ps", Name: "edit", Action: permission.ActionAllow}
	if err := s.CreatePermission(ctx, again); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	both, err := s.GetPermissions(ctx, "t1", "app", "ps", "edit")
	if err != nil {
		t.Fatal(err)
	}
	if len(both) != 2 {
		t.Fatalf("expected allow and deny, got %d", len(both))
	}

	if err := s.DeletePermission(ctx, deny.ID); err != nil {
		t.Fatal(err)
	}
	both, _ = s.GetPermissions(ctx, "t1", "app", "ps", "edit")
	if len(both) != 1 || both[0].Action != permission.ActionAllow {
		t.Fatalf("expected only the allow to remain, got %+v", both)
	}
}

func TestRolePermissionLinks(t *testing.T) {
	ctx := context.Background()
	s := New()

	rid := id.NewRoleID()
	if err := s.CreateRole(ctx, &role.Role{ID: rid, TenantID: "t1", Grain: "app", SecurableItem: "ps", Name: "viewer"}); err != nil {
		t.Fatal(err)
	}
	view := &permission.Permission{ID: id.NewPermissionID(), TenantID: "t1", Grain: "app", SecurableItem: "ps", Name: "view", Action: permission.ActionAllow}
	gone := &permission.Permission{ID: id.NewPermissionID(), TenantID: "t1", Grain: "app", SecurableItem: "ps", Name: "old", Action: permission.ActionAllow}
	for _, p := range []*permission.Permission{view, gone} {
		if err := s.CreatePermission(ctx, p); err != nil {
			t.Fatal(err)
		}
		if err := s.AttachPermission(ctx, rid, p.ID); err != nil {
			t.Fatal(err)
		}
	}
	// Attaching twice is idempotent.
	if err := s.AttachPermission(ctx, rid, view.ID); err != nil {
		t.Fatal(err)
	}
	ids, _ := s.ListRolePermissions(ctx, rid)
	if len(ids) != 2 {
		t.Fatalf("expected 2 links, got %d", len(ids))
	}

	if err := s.DeletePermission(ctx, gone.ID); err != nil {
		t.Fatal(err)
	}
	perms, _ := s.ListPermissionsByRole(ctx, rid)
	if len(perms) != 1 || perms[0].Name != "view" {
		t.Fatalf("expected deleted permission to be filtered, got %+v", perms)
	}

	if err := s.DetachPermission(ctx, rid, view.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DetachPermission(ctx, rid, view.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound detaching twice, got %v", err)
	}
}

func TestRolesForPrincipalAndGroup(t *testing.T) {
	ctx := context.Background()
	s := New()

	editor := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Grain: "app", SecurableItem: "ps", Name: "editor"}
	viewer := &role.Role{ID: id.NewRoleID(), TenantID: "t1", Grain: "app", SecurableItem: "ps", Name: "viewer"}
	for _, r := range []*role.Role{editor, viewer} {
		if err := s.CreateRole(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	readers := &group.Group{ID: id.NewGroupID(), TenantID: "t1", Name: "readers", Type: group.TypeCustom}
	if err := s.CreateGroup(ctx, readers); err != nil {
		t.Fatal(err)
	}
	gid := readers.ID
	mustAssign(t, s, editor.ID, assignment.PrincipalUser, "alice")
	mustAssign(t, s, viewer.ID, assignment.PrincipalGroup, gid.String())

	// An assignment recorded under another tenant is not followed.
	foreign := &role.Role{ID: id.NewRoleID(), TenantID: "t2", Grain: "app", SecurableItem: "ps", Name: "admin"}
	if err := s.CreateRole(ctx, foreign); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAssignment(ctx, &assignment.Assignment{
		ID: id.NewAssignmentID(), TenantID: "t2", RoleID: foreign.ID,
		PrincipalKind: assignment.PrincipalGroup, PrincipalID: gid.String(),
	}); err != nil {
		t.Fatal(err)
	}

	dup := &assignment.Assignment{ID: id.NewAssignmentID(), TenantID: "t1", RoleID: editor.ID, PrincipalKind: assignment.PrincipalUser, PrincipalID: "alice"}
	if err := s.CreateAssignment(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	direct, _ := s.ListRolesForPrincipal(ctx, "t1", "alice")
	if len(direct) != 1 || direct[0].Name != "editor" {
		t.Fatalf("expected editor, got %+v", direct)
	}
	if other, _ := s.ListRolesForPrincipal(ctx, "t2", "alice"); len(other) != 0 {
		t.Fatalf("expected tenant isolation, got %+v", other)
	}
	viaGroup, _ := s.ListRolesForGroup(ctx, gid)
	if len(viaGroup) != 1 || viaGroup[0].Name != "viewer" {
		t.Fatalf("expected viewer, got %+v", viaGroup)
	}

	if err := s.DeleteRole(ctx, editor.ID); err != nil {
		t.Fatal(err)
	}
	if direct, _ := s.ListRolesForPrincipal(ctx, "t1", "alice"); len(direct) != 0 {
		t.Fatalf("expected deleted role to be filtered, got %+v", direct)
	}
}

func TestGroupMembership(t *testing.T) {
	ctx := context.Background()
	s := New()

	readers := &group.Group{ID: id.NewGroupID(), TenantID: "t1", Name: "readers", Type: group.TypeCustom}
	staff := &group.Group{ID: id.NewGroupID(), TenantID: "t1", Name: "staff", Type: group.TypeCustom}
	for _, g := range []*group.Group{readers, staff} {
		if err := s.CreateGroup(ctx, g); err != nil {
			t.Fatal(err)
		}
	}
	mustAddMember(t, s, readers.ID, group.MemberUser, "alice")
	mustAddMember(t, s, staff.ID, group.MemberGroup, readers.ID.String())

	dup := &group.Member{ID: id.NewMemberID(), TenantID: "t1", GroupID: readers.ID, MemberKind: group.MemberUser, MemberID: "alice"}
	if err := s.AddMember(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	direct, _ := s.ListGroupsForPrincipal(ctx, "t1", "alice")
	if len(direct) != 1 || direct[0] != readers.ID {
		t.Fatalf("expected readers, got %v", direct)
	}
	foreign := &group.Group{ID: id.NewGroupID(), TenantID: "t2", Name: "foreign", Type: group.TypeCustom}
	if err := s.CreateGroup(ctx, foreign); err != nil {
		t.Fatal(err)
	}
	cross := &group.Member{ID: id.NewMemberID(), TenantID: "t2", GroupID: foreign.ID, MemberKind: group.MemberGroup, MemberID: readers.ID.String()}
	if err := s.AddMember(ctx, cross); err != nil {
		t.Fatal(err)
	}

	parents, _ := s.ListParentGroups(ctx, readers.ID)
	if len(parents) != 1 || parents[0] != staff.ID {
		t.Fatalf("expected only staff, got %v", parents)
	}

	if err := s.DeleteGroup(ctx, staff.ID); err != nil {
		t.Fatal(err)
	}
	if parents, _ := s.ListParentGroups(ctx, readers.ID); len(parents) != 0 {
		t.Fatalf("expected deleted parent to be filtered, got %v", parents)
	}

	if err := s.RemoveMember(ctx, readers.ID, group.MemberUser, "alice"); err != nil {
		t.Fatal(err)
	}
	if members, _ := s.ListMembers(ctx, readers.ID); len(members) != 0 {
		t.Fatalf("expected no members, got %d", len(members))
	}
	if err := s.RemoveMember(ctx, readers.ID, group.MemberUser, "alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPagination(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, name := range []string{"a", "b", "c", "d"} {
		if err := s.CreateGroup(ctx, &group.Group{ID: id.NewGroupID(), TenantID: "t1", Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	page, _ := s.ListGroups(ctx, &group.ListFilter{TenantID: "t1", Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].Name != "b" || page[1].Name != "c" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if past, _ := s.ListGroups(ctx, &group.ListFilter{TenantID: "t1", Offset: 10}); len(past) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(past))
	}
}

func mustAssign(t *testing.T, s *Store, roleID id.RoleID, kind assignment.PrincipalKind, principalID string) {
	t.Helper()
	a := &assignment.Assignment{ID: id.NewAssignmentID(), TenantID: "t1", RoleID: roleID, PrincipalKind: kind, PrincipalID: principalID}
	if err := s.CreateAssignment(context.Background(), a); err != nil {
		t.Fatal(err)
	}
}

func mustAddMember(t *testing.T, s *Store, groupID id.GroupID, kind group.MemberKind, memberID string) {
	t.Helper()
	m := &group.Member{ID: id.NewMemberID(), TenantID: "t1", GroupID: groupID, MemberKind: kind, MemberID: memberID}
	if err := s.AddMember(context.Background(), m); err != nil {
		t.Fatal(err)
	}
}
