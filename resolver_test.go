package granary

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
	"github.com/xraph/granary/store/memory"
)

const testTenant = "t1"

type fixture struct {
	t   *testing.T
	ctx context.Context
	s   *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		t:   t,
		ctx: WithTenant(context.Background(), "app", testTenant),
		s:   memory.New(),
	}
}

func (f *fixture) resolver() *Resolver {
	return NewStoreResolver(f.s, DefaultConfig())
}

func (f *fixture) perm(grain, item, name string, action permission.Action) *permission.Permission {
	f.t.Helper()
	p := &permission.Permission{
		ID: id.NewPermissionID(), TenantID: testTenant,
		Grain: grain, SecurableItem: item, Name: name, Action: action,
	}
	if err := f.s.CreatePermission(f.ctx, p); err != nil {
		f.t.Fatal(err)
	}
	return p
}

func (f *fixture) role(name, grain, item string, perms ...*permission.Permission) *role.Role {
	f.t.Helper()
	r := &role.Role{ID: id.NewRoleID(), TenantID: testTenant, Grain: grain, SecurableItem: item, Name: name}
	if err := f.s.CreateRole(f.ctx, r); err != nil {
		f.t.Fatal(err)
	}
	for _, p := range perms {
		if err := f.s.AttachPermission(f.ctx, r.ID, p.ID); err != nil {
			f.t.Fatal(err)
		}
	}
	return r
}

func (f *fixture) assign(r *role.Role, kind assignment.PrincipalKind, principalID string) {
	f.t.Helper()
	a := &assignment.Assignment{
		ID: id.NewAssignmentID(), TenantID: testTenant,
		RoleID: r.ID, PrincipalKind: kind, PrincipalID: principalID,
	}
	if err := f.s.CreateAssignment(f.ctx, a); err != nil {
		f.t.Fatal(err)
	}
}

func (f *fixture) group(name string) *group.Group {
	f.t.Helper()
	g := &group.Group{ID: id.NewGroupID(), TenantID: testTenant, Name: name, Type: group.TypeCustom}
	if err := f.s.CreateGroup(f.ctx, g); err != nil {
		f.t.Fatal(err)
	}
	return g
}

func (f *fixture) member(g *group.Group, kind group.MemberKind, memberID string) {
	f.t.Helper()
	m := &group.Member{ID: id.NewMemberID(), TenantID: testTenant, GroupID: g.ID, MemberKind: kind, MemberID: memberID}
	if err := f.s.AddMember(f.ctx, m); err != nil {
		f.t.Fatal(err)
	}
}

// aliceFixture builds the editor/readers/viewer scenario: alice holds editor
// directly and viewer through the readers group.
func aliceFixture(t *testing.T) (*fixture, *group.Group) {
	t.Helper()
	f := newFixture(t)
	editor := f.role("editor", "app", "docs", f.perm("app", "docs", "edit", permission.ActionAllow))
	viewer := f.role("viewer", "app", "docs", f.perm("app", "docs", "view", permission.ActionAllow))
	readers := f.group("readers")
	f.member(readers, group.MemberUser, "alice")
	f.assign(editor, assignment.PrincipalUser, "alice")
	f.assign(viewer, assignment.PrincipalGroup, readers.ID.String())
	return f, readers
}

func TestResolve_DirectAndGroupRoles(t *testing.T) {
	f, readers := aliceFixture(t)

	set, err := f.resolver().Resolve(f.ctx, "alice", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if got := set.Names(); !slices.Equal(got, []string{"edit", "view"}) {
		t.Fatalf("expected [edit view], got %v", got)
	}
	if len(set.RoleIDs) != 2 {
		t.Fatalf("expected 2 contributing roles, got %d", len(set.RoleIDs))
	}
	if len(set.GroupIDs) != 1 || set.GroupIDs[0] != readers.ID {
		t.Fatalf("expected readers group, got %v", set.GroupIDs)
	}
	if got := set.Strings(); !slices.Equal(got, []string{"app/docs.edit", "app/docs.view"}) {
		t.Fatalf("unexpected strings: %v", got)
	}
}

func TestResolve_GroupDenyRemovesDirectAllow(t *testing.T) {
	f, readers := aliceFixture(t)
	blocked := f.role("blocked", "app", "docs", f.perm("app", "docs", "edit", permission.ActionDeny))
	f.assign(blocked, assignment.PrincipalGroup, readers.ID.String())

	set, err := f.resolver().Resolve(f.ctx, "alice", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if got := set.Names(); !slices.Equal(got, []string{"view"}) {
		t.Fatalf("expected [view], got %v", got)
	}
	if set.Has("edit") {
		t.Fatal("edit must be removed by the deny")
	}
	if len(set.Denied) != 1 || set.Denied[0].Name != "edit" || set.Denied[0].RoleIDs[0] != blocked.ID {
		t.Fatalf("expected edit denied by blocked, got %+v", set.Denied)
	}
}

func TestResolve_DenyBeatsManyAllows(t *testing.T) {
	f := newFixture(t)
	allow := f.perm("app", "docs", "edit", permission.ActionAllow)
	for _, name := range []string{"a", "b", "c", "d"} {
		f.assign(f.role(name, "app", "docs", allow), assignment.PrincipalUser, "bob")
	}
	f.assign(f.role("deny", "app", "docs", f.perm("app", "docs", "edit", permission.ActionDeny)), assignment.PrincipalUser, "bob")

	set, err := f.resolver().Resolve(f.ctx, "bob", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if !set.Empty() {
		t.Fatalf("expected empty set, got %v", set.Names())
	}
}

func TestResolve_UnknownPrincipal(t *testing.T) {
	f, _ := aliceFixture(t)

	set, err := f.resolver().Resolve(f.ctx, "unknown-user", "app", "docs")
	if err != nil {
		t.Fatalf("unknown principal must not be an error: %v", err)
	}
	if !set.Empty() || len(set.RoleIDs) != 0 || len(set.GroupIDs) != 0 {
		t.Fatalf("expected empty set, got %+v", set)
	}
}

func TestResolve_UnknownScope(t *testing.T) {
	f, _ := aliceFixture(t)

	for _, tc := range []struct{ grain, item string }{
		{"dos", "docs"},
		{"app", "nothing"},
	} {
		set, err := f.resolver().Resolve(f.ctx, "alice", tc.grain, tc.item)
		if err != nil {
			t.Fatal(err)
		}
		if !set.Empty() {
			t.Fatalf("%s/%s: expected empty set, got %v", tc.grain, tc.item, set.Names())
		}
	}
}

func TestResolve_GrainWide(t *testing.T) {
	f, _ := aliceFixture(t)
	reports := f.role("reporter", "app", "reports", f.perm("app", "reports", "run", permission.ActionAllow))
	f.assign(reports, assignment.PrincipalUser, "alice")

	set, err := f.resolver().Resolve(f.ctx, "alice", "app", "")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"app/docs.edit", "app/docs.view", "app/reports.run"}
	if got := set.Strings(); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	scoped, err := f.resolver().Resolve(f.ctx, "alice", "app", "reports")
	if err != nil {
		t.Fatal(err)
	}
	if got := scoped.Strings(); !slices.Equal(got, []string{"app/reports.run"}) {
		t.Fatalf("expected only reports, got %v", got)
	}
}

func TestResolve_DenyInOtherItemDoesNotLeak(t *testing.T) {
	f, _ := aliceFixture(t)
	other := f.role("other", "app", "reports", f.perm("app", "reports", "edit", permission.ActionDeny))
	f.assign(other, assignment.PrincipalUser, "alice")

	set, err := f.resolver().Resolve(f.ctx, "alice", "app", "")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(set.Strings(), "app/docs.edit") {
		t.Fatalf("deny on reports.edit must not remove docs.edit: %v", set.Strings())
	}
}

func TestResolve_DeletedEntitiesIgnored(t *testing.T) {
	f := newFixture(t)
	view := f.perm("app", "docs", "view", permission.ActionAllow)
	edit := f.perm("app", "docs", "edit", permission.ActionAllow)
	live := f.role("live", "app", "docs", view, edit)
	gone := f.role("gone", "app", "docs", f.perm("app", "docs", "admin", permission.ActionAllow))
	f.assign(live, assignment.PrincipalUser, "carol")
	f.assign(gone, assignment.PrincipalUser, "carol")

	if err := f.s.DeleteRole(f.ctx, gone.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.s.DeletePermission(f.ctx, edit.ID); err != nil {
		t.Fatal(err)
	}

	set, err := f.resolver().Resolve(f.ctx, "carol", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if got := set.Names(); !slices.Equal(got, []string{"view"}) {
		t.Fatalf("expected [view], got %v", got)
	}
	if len(set.RoleIDs) != 1 || set.RoleIDs[0] != live.ID {
		t.Fatalf("expected only live role, got %v", set.RoleIDs)
	}
}

func TestResolve_DeletedGroupIgnored(t *testing.T) {
	f, readers := aliceFixture(t)
	if err := f.s.DeleteGroup(f.ctx, readers.ID); err != nil {
		t.Fatal(err)
	}

	set, err := f.resolver().Resolve(f.ctx, "alice", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if got := set.Names(); !slices.Equal(got, []string{"edit"}) {
		t.Fatalf("expected [edit], got %v", got)
	}
}

func TestResolve_ParentRoleInherited(t *testing.T) {
	f := newFixture(t)
	base := f.role("base", "app", "docs", f.perm("app", "docs", "view", permission.ActionAllow))
	child := f.role("child", "app", "docs", f.perm("app", "docs", "edit", permission.ActionAllow))
	child.ParentID = &base.ID
	if err := f.s.UpdateRole(f.ctx, child); err != nil {
		t.Fatal(err)
	}
	f.assign(child, assignment.PrincipalUser, "dave")

	set, err := f.resolver().Resolve(f.ctx, "dave", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if got := set.Names(); !slices.Equal(got, []string{"edit", "view"}) {
		t.Fatalf("expected [edit view], got %v", got)
	}
}

func TestResolve_ParentCycleTerminates(t *testing.T) {
	f := newFixture(t)
	a := f.role("a", "app", "docs", f.perm("app", "docs", "x", permission.ActionAllow))
	b := f.role("b", "app", "docs", f.perm("app", "docs", "y", permission.ActionAllow))
	a.ParentID, b.ParentID = &b.ID, &a.ID
	for _, r := range []*role.Role{a, b} {
		if err := f.s.UpdateRole(f.ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	f.assign(a, assignment.PrincipalUser, "erin")

	set, err := f.resolver().Resolve(f.ctx, "erin", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if got := set.Names(); !slices.Equal(got, []string{"x", "y"}) {
		t.Fatalf("expected [x y], got %v", got)
	}
}

func TestResolve_ParentChainThroughOtherItem(t *testing.T) {
	f := newFixture(t)
	grand := f.role("grand", "app", "docs", f.perm("app", "docs", "audit", permission.ActionAllow))
	mid := f.role("mid", "app", "reports", f.perm("app", "reports", "export", permission.ActionAllow))
	child := f.role("child", "app", "docs", f.perm("app", "docs", "edit", permission.ActionAllow))
	mid.ParentID = &grand.ID
	child.ParentID = &mid.ID
	for _, r := range []*role.Role{mid, child} {
		if err := f.s.UpdateRole(f.ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	f.assign(child, assignment.PrincipalUser, "bob")

	scoped, err := f.resolver().Resolve(f.ctx, "bob", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if got := scoped.Names(); !slices.Equal(got, []string{"audit", "edit"}) {
		t.Fatalf("expected [audit edit], got %v", got)
	}
	if slices.ContainsFunc(scoped.RoleIDs, func(r id.RoleID) bool { return r.String() == mid.ID.String() }) {
		t.Fatal("out-of-scope parent must not be listed as contributing")
	}

	wide, err := f.resolver().Resolve(f.ctx, "bob", "app", "")
	if err != nil {
		t.Fatal(err)
	}
	if got := wide.Strings(); !slices.Equal(got, []string{"app/docs.audit", "app/docs.edit", "app/reports.export"}) {
		t.Fatalf("unexpected grain-wide set %v", got)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	f, readers := aliceFixture(t)
	f.assign(f.role("blocked", "app", "docs", f.perm("app", "docs", "edit", permission.ActionDeny)),
		assignment.PrincipalGroup, readers.ID.String())

	first, err := f.resolver().Resolve(f.ctx, "alice", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.resolver().Resolve(f.ctx, "alice", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("resolutions differ:\n%+v\n%+v", first, second)
	}
}

func TestResolve_TenantIsolation(t *testing.T) {
	f, _ := aliceFixture(t)
	other := WithTenant(context.Background(), "app", "t2")

	set, err := f.resolver().Resolve(other, "alice", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if !set.Empty() {
		t.Fatalf("expected nothing in tenant t2, got %v", set.Names())
	}
}

func TestResolve_CrossTenantNestingIgnored(t *testing.T) {
	f := newFixture(t)
	reader := f.role("reader", "app", "docs", f.perm("app", "docs", "view", permission.ActionAllow))
	home := f.group("home")
	f.member(home, group.MemberUser, "alice")

	// A t2 group and role, with home nested into the t2 group. Stores keep
	// such rows scoped to the tenant that wrote them.
	foreign := &group.Group{ID: id.NewGroupID(), TenantID: "t2", Name: "foreign", Type: group.TypeCustom}
	if err := f.s.CreateGroup(f.ctx, foreign); err != nil {
		t.Fatal(err)
	}
	admin := &role.Role{ID: id.NewRoleID(), TenantID: "t2", Grain: "app", SecurableItem: "docs", Name: "admin"}
	if err := f.s.CreateRole(f.ctx, admin); err != nil {
		t.Fatal(err)
	}
	del := &permission.Permission{ID: id.NewPermissionID(), TenantID: "t2", Grain: "app", SecurableItem: "docs", Name: "delete", Action: permission.ActionAllow}
	if err := f.s.CreatePermission(f.ctx, del); err != nil {
		t.Fatal(err)
	}
	if err := f.s.AttachPermission(f.ctx, admin.ID, del.ID); err != nil {
		t.Fatal(err)
	}
	for _, a := range []*assignment.Assignment{
		{ID: id.NewAssignmentID(), TenantID: "t2", RoleID: admin.ID, PrincipalKind: assignment.PrincipalGroup, PrincipalID: foreign.ID.String()},
		{ID: id.NewAssignmentID(), TenantID: "t2", RoleID: admin.ID, PrincipalKind: assignment.PrincipalGroup, PrincipalID: home.ID.String()},
		{ID: id.NewAssignmentID(), TenantID: testTenant, RoleID: reader.ID, PrincipalKind: assignment.PrincipalGroup, PrincipalID: home.ID.String()},
	} {
		if err := f.s.CreateAssignment(f.ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	m := &group.Member{ID: id.NewMemberID(), TenantID: "t2", GroupID: foreign.ID, MemberKind: group.MemberGroup, MemberID: home.ID.String()}
	if err := f.s.AddMember(f.ctx, m); err != nil {
		t.Fatal(err)
	}

	set, err := f.resolver().Resolve(f.ctx, "alice", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if got := set.Names(); !slices.Equal(got, []string{"view"}) {
		t.Fatalf("expected [view], got %v", got)
	}
	if len(set.GroupIDs) != 1 || set.GroupIDs[0].String() != home.ID.String() {
		t.Fatalf("expected only home, got %v", set.GroupIDs)
	}
}

func TestResolve_InvalidArgument(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct{ principal, grain string }{
		{"", "app"},
		{"   ", "app"},
		{"alice", ""},
	} {
		_, err := f.resolver().Resolve(f.ctx, tc.principal, tc.grain, "docs")
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("(%q, %q): expected ErrInvalidArgument, got %v", tc.principal, tc.grain, err)
		}
		if KindOf(err) != KindInvalidArgument {
			t.Fatalf("expected kind invalid_argument, got %s", KindOf(err))
		}
	}
}

func TestParsePrincipalID(t *testing.T) {
	subject, provider := ParsePrincipalID("alice:windows")
	if subject != "alice" || provider != "windows" {
		t.Fatalf("got %q %q", subject, provider)
	}
	subject, provider = ParsePrincipalID("alice")
	if subject != "alice" || provider != "" {
		t.Fatalf("got %q %q", subject, provider)
	}
	if got := FormatPrincipalID("alice", "windows"); got != "alice:windows" {
		t.Fatalf("got %q", got)
	}
	if got := FormatPrincipalID("alice", ""); got != "alice" {
		t.Fatalf("got %q", got)
	}
}

// ──────────────────────────────────────────────────
// Group expansion
// ──────────────────────────────────────────────────

func TestExpandGroups_Nested(t *testing.T) {
	f := newFixture(t)
	team := f.group("team")
	dept := f.group("dept")
	org := f.group("org")
	f.member(team, group.MemberUser, "alice")
	f.member(dept, group.MemberGroup, team.ID.String())
	f.member(org, group.MemberGroup, dept.ID.String())
	f.group("unrelated")

	got, err := f.resolver().ExpandGroups(f.ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	want := []id.GroupID{team.ID, dept.ID, org.ID}
	slices.SortFunc(want, id.Compare)
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestExpandGroups_CycleTerminates(t *testing.T) {
	f := newFixture(t)
	a := f.group("a")
	b := f.group("b")
	c := f.group("c")
	f.member(a, group.MemberUser, "alice")
	f.member(b, group.MemberGroup, a.ID.String())
	f.member(c, group.MemberGroup, b.ID.String())
	f.member(a, group.MemberGroup, c.ID.String())

	r := f.resolver()
	ctx, cancel := context.WithTimeout(f.ctx, 5*time.Second)
	defer cancel()

	first, err := r.ExpandGroups(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 groups, got %v", first)
	}
	second, err := r.ExpandGroups(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(first, second) {
		t.Fatalf("expansion not deterministic: %v vs %v", first, second)
	}

	viewer := f.role("viewer", "app", "docs", f.perm("app", "docs", "view", permission.ActionAllow))
	f.assign(viewer, assignment.PrincipalGroup, c.ID.String())
	set, err := r.Resolve(ctx, "alice", "app", "docs")
	if err != nil {
		t.Fatal(err)
	}
	if !set.Has("view") {
		t.Fatalf("expected view through the cycle, got %v", set.Names())
	}
}

func TestExpandGroups_NoMemberships(t *testing.T) {
	f := newFixture(t)
	got, err := f.resolver().ExpandGroups(f.ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no groups, got %v", got)
	}
	if _, err := f.resolver().ExpandGroups(f.ctx, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

// ──────────────────────────────────────────────────
// Failure semantics
// ──────────────────────────────────────────────────

var errBackend = errors.New("connection refused")

// failingStore fails one read path.
type failingStore struct {
	*memory.Store
	failGroups bool
	failPerms  bool
}

func (s *failingStore) ListGroupsForPrincipal(ctx context.Context, tenantID, principalID string) ([]id.GroupID, error) {
	if s.failGroups {
		return nil, errBackend
	}
	return s.Store.ListGroupsForPrincipal(ctx, tenantID, principalID)
}

func (s *failingStore) ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	if s.failPerms {
		return nil, errBackend
	}
	return s.Store.ListPermissionsByRole(ctx, roleID)
}

// blockingStore blocks direct role lookups until ctx is done.
type blockingStore struct {
	*memory.Store
	entered chan struct{}
}

func (s *blockingStore) ListRolesForPrincipal(ctx context.Context, _, _ string) ([]*role.Role, error) {
	close(s.entered)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResolve_StoreUnavailable(t *testing.T) {
	f, _ := aliceFixture(t)
	for name, fs := range map[string]*failingStore{
		"groups":      {Store: f.s, failGroups: true},
		"permissions": {Store: f.s, failPerms: true},
	} {
		r := NewResolver(fs, fs, fs, DefaultConfig())
		set, err := r.Resolve(f.ctx, "alice", "app", "docs")
		if set != nil {
			t.Fatalf("%s: expected no partial result", name)
		}
		if !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("%s: expected ErrStoreUnavailable, got %v", name, err)
		}
		if !errors.Is(err, errBackend) {
			t.Fatalf("%s: expected cause to be preserved, got %v", name, err)
		}
	}
}

func TestResolve_Cancelled(t *testing.T) {
	f, _ := aliceFixture(t)

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()
	if _, err := f.resolver().Resolve(ctx, "alice", "app", "docs"); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled for a cancelled context, got %v", err)
	}

	bs := &blockingStore{Store: f.s, entered: make(chan struct{})}
	r := NewResolver(bs, bs, bs, DefaultConfig())
	ctx, cancel = context.WithCancel(f.ctx)
	go func() {
		<-bs.entered
		cancel()
	}()
	set, err := r.Resolve(ctx, "alice", "app", "docs")
	if set != nil || !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled mid-flight, got %v, %v", set, err)
	}
}

func TestResolve_DeadlineIsStoreUnavailable(t *testing.T) {
	f, _ := aliceFixture(t)
	bs := &blockingStore{Store: f.s, entered: make(chan struct{})}
	r := NewResolver(bs, bs, bs, DefaultConfig())

	ctx, cancel := context.WithTimeout(f.ctx, 20*time.Millisecond)
	defer cancel()
	_, err := r.Resolve(ctx, "alice", "app", "docs")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable on deadline, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause, got %v", err)
	}
}
