package granary

import (
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
)

func mergeInput() ([]*role.Role, [][]*permission.Permission) {
	p := func(name string, action permission.Action) *permission.Permission {
		return &permission.Permission{ID: id.NewPermissionID(), Grain: "app", SecurableItem: "docs", Name: name, Action: action}
	}
	editAllow := p("edit", permission.ActionAllow)
	viewAllow := p("view", permission.ActionAllow)
	editDeny := p("edit", permission.ActionDeny)
	share := p("share", permission.ActionAllow)
	foreign := &permission.Permission{ID: id.NewPermissionID(), Grain: "dos", SecurableItem: "docs", Name: "purge", Action: permission.ActionAllow}

	roles := make([]*role.Role, 5)
	for i := range roles {
		roles[i] = &role.Role{ID: id.NewRoleID(), Grain: "app", SecurableItem: "docs"}
	}
	perms := [][]*permission.Permission{
		{editAllow, viewAllow},
		{editDeny},
		{viewAllow, share},
		{share, foreign},
		{editAllow},
	}
	return roles, perms
}

func TestMerge_DenyOverridesAllow(t *testing.T) {
	roles, perms := mergeInput()
	set := merge("app", "docs", roles, perms)

	got := set.Names()
	if !reflect.DeepEqual(got, []string{"share", "view"}) {
		t.Fatalf("expected [share view], got %v", got)
	}
	if len(set.Denied) != 1 || set.Denied[0].Name != "edit" {
		t.Fatalf("expected edit denied, got %+v", set.Denied)
	}
	for _, ep := range set.Permissions {
		if ep.Name == "view" && len(ep.RoleIDs) != 2 {
			t.Fatalf("view should list both contributing roles, got %v", ep.RoleIDs)
		}
	}
}

func TestMerge_OrderIndependent(t *testing.T) {
	roles, perms := mergeInput()
	want := merge("app", "docs", roles, perms)

	rng := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		idx := rng.Perm(len(roles))
		shuffledRoles := make([]*role.Role, len(roles))
		shuffledPerms := make([][]*permission.Permission, len(perms))
		for i, j := range idx {
			shuffledRoles[i] = roles[j]
			ps := append([]*permission.Permission(nil), perms[j]...)
			rng.Shuffle(len(ps), func(a, b int) { ps[a], ps[b] = ps[b], ps[a] })
			shuffledPerms[i] = ps
		}
		got := merge("app", "docs", shuffledRoles, shuffledPerms)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("merge depends on order:\nwant %+v\ngot  %+v", want, got)
		}
	}
}

func TestMerge_Empty(t *testing.T) {
	set := merge("app", "docs", nil, nil)
	if !set.Empty() || set.Permissions == nil {
		t.Fatalf("expected empty, non-nil permissions, got %+v", set)
	}
}
