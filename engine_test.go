package granary_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/xraph/granary"
	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/cache"
	"github.com/xraph/granary/grain"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
	"github.com/xraph/granary/securableitem"
	"github.com/xraph/granary/store"
	"github.com/xraph/granary/store/memory"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) OnBeforeResolve(context.Context, any) error { r.add("before"); return nil }
func (r *recorder) OnAfterResolve(_ context.Context, _, result any) error {
	if set, ok := result.(*granary.ResolvedPermissionSet); ok && set.Cached {
		r.add("after:cached")
		return nil
	}
	r.add("after")
	return nil
}
func (r *recorder) OnResolveFailed(context.Context, any, error) error { r.add("failed"); return nil }
func (r *recorder) OnRoleAssigned(context.Context, *assignment.Assignment) error {
	r.add("assigned")
	return errors.New("audit sink offline")
}

func (r *recorder) has(ev string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, ev)
}

type env struct {
	t   *testing.T
	ctx context.Context
	eng *granary.Engine
	s   *memory.Store
	rec *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := memory.New()
	rec := &recorder{}
	eng, err := granary.NewEngine(
		granary.WithStore(s),
		granary.WithCache(cache.NewMemory()),
		granary.WithPlugin(rec),
	)
	if err != nil {
		t.Fatal(err)
	}
	e := &env{t: t, ctx: granary.WithTenant(context.Background(), "app", "t1"), eng: eng, s: s, rec: rec}
	e.must(eng.CreateGrain(e.ctx, &grain.Grain{Name: "app"}))
	e.must(eng.CreateSecurableItem(e.ctx, &securableitem.SecurableItem{Grain: "app", Name: "docs"}))
	return e
}

func (e *env) must(err error) {
	e.t.Helper()
	if err != nil {
		e.t.Fatal(err)
	}
}

func (e *env) role(name string, perms ...*permission.Permission) *role.Role {
	e.t.Helper()
	r := &role.Role{Grain: "app", SecurableItem: "docs", Name: name}
	e.must(e.eng.CreateRole(e.ctx, r))
	for _, p := range perms {
		e.must(e.eng.AttachPermission(e.ctx, r.ID, p.ID))
	}
	return r
}

func (e *env) perm(name string, action permission.Action) *permission.Permission {
	e.t.Helper()
	p := &permission.Permission{Grain: "app", SecurableItem: "docs", Name: name, Action: action}
	e.must(e.eng.CreatePermission(e.ctx, p))
	return p
}

func (e *env) resolve(principal string) *granary.ResolvedPermissionSet {
	e.t.Helper()
	set, err := e.eng.Resolve(e.ctx, &granary.ResolveRequest{PrincipalID: principal, Grain: "app", SecurableItem: "docs"})
	if err != nil {
		e.t.Fatal(err)
	}
	return set
}

func TestNewEngine_RequiresStore(t *testing.T) {
	if _, err := granary.NewEngine(); err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestEngine_ResolveCachesAndInvalidates(t *testing.T) {
	e := newEnv(t)
	editor := e.role("editor", e.perm("edit", permission.ActionAllow))

	if set := e.resolve("alice"); !set.Empty() || set.Cached {
		t.Fatalf("expected uncached empty set, got %+v", set)
	}
	if set := e.resolve("alice"); !set.Cached {
		t.Fatal("expected second resolution to hit the cache")
	}

	e.must(e.eng.AssignRole(e.ctx, &assignment.Assignment{RoleID: editor.ID, PrincipalID: "alice"}))
	set := e.resolve("alice")
	if set.Cached || !set.Has("edit") {
		t.Fatalf("assignment must invalidate the cache, got %+v", set)
	}
	if !e.rec.has("before") || !e.rec.has("after") || !e.rec.has("after:cached") || !e.rec.has("assigned") {
		t.Fatalf("missing plugin events: %v", e.rec.events)
	}
}

func TestEngine_ResolveInvalidEmitsFailure(t *testing.T) {
	e := newEnv(t)
	_, err := e.eng.Resolve(e.ctx, &granary.ResolveRequest{Grain: "app"})
	if !errors.Is(err, granary.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if !e.rec.has("failed") {
		t.Fatal("expected OnResolveFailed")
	}
}

func TestEngine_CheckAndEnforce(t *testing.T) {
	e := newEnv(t)
	readers := &group.Group{Name: "readers"}
	e.must(e.eng.CreateGroup(e.ctx, readers))
	e.must(e.eng.AddGroupMember(e.ctx, &group.Member{GroupID: readers.ID, MemberKind: group.MemberUser, MemberID: "alice"}))

	editor := e.role("editor", e.perm("edit", permission.ActionAllow))
	viewer := e.role("viewer", e.perm("view", permission.ActionAllow))
	blocked := e.role("blocked", e.perm("edit", permission.ActionDeny))
	e.must(e.eng.AssignRole(e.ctx, &assignment.Assignment{RoleID: editor.ID, PrincipalID: "alice"}))
	e.must(e.eng.AssignRole(e.ctx, &assignment.Assignment{RoleID: viewer.ID, PrincipalKind: assignment.PrincipalGroup, PrincipalID: readers.ID.String()}))

	check := func(name string) *granary.CheckResult {
		t.Helper()
		res, err := e.eng.Check(e.ctx, &granary.CheckRequest{PrincipalID: "alice", Grain: "app", SecurableItem: "docs", Permission: name})
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	if !check("edit").Allowed || !check("view").Allowed {
		t.Fatal("expected edit and view")
	}

	e.must(e.eng.AssignRole(e.ctx, &assignment.Assignment{RoleID: blocked.ID, PrincipalKind: assignment.PrincipalGroup, PrincipalID: readers.ID.String()}))
	res := check("edit")
	if res.Allowed || !res.Denied || len(res.RoleIDs) != 1 || res.RoleIDs[0] != blocked.ID {
		t.Fatalf("expected edit explicitly denied by blocked, got %+v", res)
	}

	err := e.eng.Enforce(e.ctx, &granary.CheckRequest{PrincipalID: "alice", Grain: "app", SecurableItem: "docs", Permission: "edit"})
	if !errors.Is(err, granary.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if err := e.eng.Enforce(e.ctx, &granary.CheckRequest{PrincipalID: "alice", Grain: "app", SecurableItem: "docs", Permission: "view"}); err != nil {
		t.Fatalf("expected view to pass, got %v", err)
	}
	if _, err := e.eng.Check(e.ctx, &granary.CheckRequest{PrincipalID: "alice", Grain: "app"}); !errors.Is(err, granary.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument without a permission name, got %v", err)
	}
}

func TestEngine_GroupCycleRejected(t *testing.T) {
	e := newEnv(t)
	a, b, c := &group.Group{Name: "a"}, &group.Group{Name: "b"}, &group.Group{Name: "c"}
	for _, g := range []*group.Group{a, b, c} {
		e.must(e.eng.CreateGroup(e.ctx, g))
	}
	nest := func(parent, child *group.Group) error {
		return e.eng.AddGroupMember(e.ctx, &group.Member{GroupID: parent.ID, MemberKind: group.MemberGroup, MemberID: child.ID.String()})
	}
	e.must(nest(b, a))
	e.must(nest(c, b))

	if err := nest(a, c); !errors.Is(err, granary.ErrCyclicGroupMembership) {
		t.Fatalf("expected ErrCyclicGroupMembership, got %v", err)
	}
	if err := nest(a, a); !errors.Is(err, granary.ErrCyclicGroupMembership) {
		t.Fatalf("expected self-membership to be rejected, got %v", err)
	}
	if err := nest(b, a); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestEngine_CrossTenantGroupsRejected(t *testing.T) {
	e := newEnv(t)
	home := &group.Group{Name: "home"}
	e.must(e.eng.CreateGroup(e.ctx, home))
	e.must(e.eng.AddGroupMember(e.ctx, &group.Member{GroupID: home.ID, MemberKind: group.MemberUser, MemberID: "alice"}))

	other := granary.WithTenant(context.Background(), "app", "t2")
	e.must(e.eng.CreateGrain(other, &grain.Grain{Name: "app"}))
	e.must(e.eng.CreateSecurableItem(other, &securableitem.SecurableItem{Grain: "app", Name: "docs"}))
	del := &permission.Permission{Grain: "app", SecurableItem: "docs", Name: "delete", Action: permission.ActionAllow}
	e.must(e.eng.CreatePermission(other, del))
	admin := &role.Role{Grain: "app", SecurableItem: "docs", Name: "admin"}
	e.must(e.eng.CreateRole(other, admin))
	e.must(e.eng.AttachPermission(other, admin.ID, del.ID))
	foreign := &group.Group{Name: "foreign"}
	e.must(e.eng.CreateGroup(other, foreign))
	e.must(e.eng.AssignRole(other, &assignment.Assignment{RoleID: admin.ID, PrincipalKind: assignment.PrincipalGroup, PrincipalID: foreign.ID.String()}))

	err := e.eng.AddGroupMember(other, &group.Member{GroupID: foreign.ID, MemberKind: group.MemberGroup, MemberID: home.ID.String()})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("nesting a t1 group into t2: expected ErrNotFound, got %v", err)
	}
	err = e.eng.AddGroupMember(other, &group.Member{GroupID: home.ID, MemberKind: group.MemberUser, MemberID: "mallory"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("adding to a t1 group from t2: expected ErrNotFound, got %v", err)
	}
	err = e.eng.AssignRole(other, &assignment.Assignment{RoleID: admin.ID, PrincipalKind: assignment.PrincipalGroup, PrincipalID: home.ID.String()})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("assigning a t2 role to a t1 group: expected ErrNotFound, got %v", err)
	}
	err = e.eng.AttachPermission(e.ctx, e.role("viewer").ID, del.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("attaching a t2 permission to a t1 role: expected ErrNotFound, got %v", err)
	}

	if set := e.resolve("alice"); !set.Empty() || len(set.GroupIDs) != 1 {
		t.Fatalf("alice must only see her own tenant, got %v groups=%v", set.Names(), set.GroupIDs)
	}
}

func TestEngine_ResolveReturnsCopies(t *testing.T) {
	e := newEnv(t)
	editor := e.role("editor", e.perm("edit", permission.ActionAllow))
	e.must(e.eng.AssignRole(e.ctx, &assignment.Assignment{RoleID: editor.ID, PrincipalID: "alice"}))

	first := e.resolve("alice")
	first.Permissions[0].Name = "tampered"
	first.Permissions[0].RoleIDs[0] = id.NewRoleID()
	first.RoleIDs = append(first.RoleIDs[:0], id.NewRoleID())

	second := e.resolve("alice")
	if !second.Cached {
		t.Fatal("expected a cache hit")
	}
	if !second.Has("edit") || second.Permissions[0].RoleIDs[0].String() != editor.ID.String() {
		t.Fatalf("cached entry was mutated through the first result: %+v", second)
	}
	second.Permissions = second.Permissions[:0]

	if third := e.resolve("alice"); !third.Has("edit") || third.RoleIDs[0].String() != editor.ID.String() {
		t.Fatalf("cached entry was mutated through a cache hit: %+v", third)
	}
}

func TestEngine_RoleValidation(t *testing.T) {
	e := newEnv(t)

	err := e.eng.CreateRole(e.ctx, &role.Role{Grain: "app", SecurableItem: "missing", Name: "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown securable item, got %v", err)
	}

	e.must(e.eng.CreateGrain(e.ctx, &grain.Grain{Name: "dos"}))
	e.must(e.eng.CreateSecurableItem(e.ctx, &securableitem.SecurableItem{Grain: "dos", Name: "docs"}))
	foreign := &permission.Permission{Grain: "dos", SecurableItem: "docs", Name: "purge"}
	e.must(e.eng.CreatePermission(e.ctx, foreign))
	r := e.role("r")
	if err := e.eng.AttachPermission(e.ctx, r.ID, foreign.ID); !errors.Is(err, granary.ErrRoleScopeMismatch) {
		t.Fatalf("expected ErrRoleScopeMismatch, got %v", err)
	}

	parent := e.role("parent")
	child := &role.Role{Grain: "app", SecurableItem: "docs", Name: "child", ParentID: &parent.ID}
	e.must(e.eng.CreateRole(e.ctx, child))
	if _, err := e.eng.SetRoleParent(e.ctx, parent.ID, &child.ID); !errors.Is(err, granary.ErrCyclicRoleInheritance) {
		t.Fatalf("expected ErrCyclicRoleInheritance, got %v", err)
	}
	if _, err := e.eng.SetRoleParent(e.ctx, parent.ID, &parent.ID); !errors.Is(err, granary.ErrCyclicRoleInheritance) {
		t.Fatalf("expected self-parent to be rejected, got %v", err)
	}
	updated, err := e.eng.SetRoleParent(e.ctx, child.ID, nil)
	if err != nil || updated.ParentID != nil {
		t.Fatalf("expected parent cleared, got %+v, %v", updated, err)
	}

	if err := e.eng.CreatePermission(e.ctx, &permission.Permission{Grain: "app", SecurableItem: "docs", Name: "x", Action: "maybe"}); !errors.Is(err, granary.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown action, got %v", err)
	}
}

func TestEngine_ClientWriteChecks(t *testing.T) {
	e := newEnv(t)
	e.must(e.eng.CreateGrain(e.ctx, &grain.Grain{Name: "dos", IsShared: true, RequiredWriteScopes: []string{"dos/datamarts.write"}}))

	reader := granary.WithClient(e.ctx, "client-a", []string{"dos/datamarts.read"})
	err := e.eng.CreateSecurableItem(reader, &securableitem.SecurableItem{Grain: "dos", Name: "datamarts"})
	if !errors.Is(err, granary.ErrGrainNotWritable) {
		t.Fatalf("expected ErrGrainNotWritable, got %v", err)
	}

	writer := granary.WithClient(e.ctx, "client-a", []string{"dos/datamarts.write"})
	si := &securableitem.SecurableItem{Grain: "dos", Name: "datamarts"}
	e.must(e.eng.CreateSecurableItem(writer, si))
	if si.ClientOwner != "client-a" {
		t.Fatalf("expected client-a to own the item, got %q", si.ClientOwner)
	}

	intruder := granary.WithClient(e.ctx, "client-b", []string{"dos/datamarts.write"})
	err = e.eng.CreateRole(intruder, &role.Role{Grain: "dos", SecurableItem: "datamarts", Name: "admin"})
	if !errors.Is(err, granary.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	e.must(e.eng.CreateRole(writer, &role.Role{Grain: "dos", SecurableItem: "datamarts", Name: "admin"}))
}

func TestEngine_DeleteStopsContributing(t *testing.T) {
	e := newEnv(t)
	edit := e.perm("edit", permission.ActionAllow)
	view := e.perm("view", permission.ActionAllow)
	editor := e.role("editor", edit, view)
	a := &assignment.Assignment{RoleID: editor.ID, PrincipalID: "alice"}
	e.must(e.eng.AssignRole(e.ctx, a))

	e.must(e.eng.DeletePermission(e.ctx, edit.ID))
	if got := e.resolve("alice").Names(); !slices.Equal(got, []string{"view"}) {
		t.Fatalf("expected [view], got %v", got)
	}
	e.must(e.eng.DetachPermission(e.ctx, editor.ID, view.ID))
	if set := e.resolve("alice"); !set.Empty() {
		t.Fatalf("expected empty after detach, got %v", set.Names())
	}
	e.must(e.eng.AttachPermission(e.ctx, editor.ID, view.ID))
	e.must(e.eng.UnassignRole(e.ctx, a.ID))
	if set := e.resolve("alice"); !set.Empty() {
		t.Fatalf("expected empty after unassign, got %v", set.Names())
	}
	if err := e.eng.UnassignRole(e.ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	e.must(e.eng.DeleteRole(e.ctx, editor.ID))
	if _, err := e.s.GetRole(e.ctx, editor.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted role to be hidden, got %v", err)
	}
}

func TestEngine_ExpandGroups(t *testing.T) {
	e := newEnv(t)
	team := &group.Group{Name: "team", Type: group.TypeDirectory, Source: "ad"}
	org := &group.Group{Name: "org"}
	e.must(e.eng.CreateGroup(e.ctx, team))
	e.must(e.eng.CreateGroup(e.ctx, org))
	e.must(e.eng.AddGroupMember(e.ctx, &group.Member{GroupID: team.ID, MemberKind: group.MemberUser, MemberID: "alice:ad"}))
	e.must(e.eng.AddGroupMember(e.ctx, &group.Member{GroupID: org.ID, MemberKind: group.MemberGroup, MemberID: team.ID.String()}))

	got, err := e.eng.ExpandGroups(e.ctx, "alice:ad")
	if err != nil {
		t.Fatal(err)
	}
	want := []id.GroupID{team.ID, org.ID}
	slices.SortFunc(want, id.Compare)
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	e.must(e.eng.RemoveGroupMember(e.ctx, org.ID, group.MemberGroup, team.ID.String()))
	got, err = e.eng.ExpandGroups(e.ctx, "alice:ad")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only team after removal, got %v", got)
	}
}
