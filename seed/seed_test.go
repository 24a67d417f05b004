package seed_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xraph/granary"
	"github.com/xraph/granary/seed"
	"github.com/xraph/granary/store/memory"
)

const doc = `
grains:
  - name: app
    items:
      - name: docs
      - name: drafts
        parent: docs
roles:
  - grain: app
    item: docs
    name: editor
    parent: viewer
    allow: [edit]
  - grain: app
    item: docs
    name: viewer
    allow: [view]
  - grain: app
    item: docs
    name: restricted
    deny: [edit]
groups:
  - name: staff
    groups: [contractors]
  - name: contractors
    users: [bob]
assignments:
  - grain: app
    item: docs
    role: editor
    group: staff
  - grain: app
    item: docs
    role: restricted
    user: bob
  - grain: app
    item: docs
    role: viewer
    user: carol
`

func newEngine(t *testing.T) (*granary.Engine, context.Context) {
	t.Helper()
	eng, err := granary.NewEngine(granary.WithStore(memory.New()))
	if err != nil {
		t.Fatal(err)
	}
	return eng, granary.WithTenant(context.Background(), "app", "t1")
}

func TestLoad(t *testing.T) {
	eng, ctx := newEngine(t)

	res, err := seed.Load(ctx, eng, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := seed.Result{Grains: 1, Items: 2, Permissions: 3, Roles: 3, Groups: 2, Members: 2, Assignments: 3}
	if *res != want {
		t.Fatalf("result = %+v, want %+v", *res, want)
	}

	// bob inherits editor through contractors -> staff, but restricted denies edit.
	set, err := eng.Resolve(ctx, &granary.ResolveRequest{PrincipalID: "bob", Grain: "app", SecurableItem: "docs"})
	if err != nil {
		t.Fatal(err)
	}
	if !set.Has("view") {
		t.Fatalf("expected view via editor parent, got %v", set.Strings())
	}
	if set.Has("edit") {
		t.Fatal("expected edit to be denied")
	}

	set, err = eng.Resolve(ctx, &granary.ResolveRequest{PrincipalID: "carol", Grain: "app", SecurableItem: "docs"})
	if err != nil {
		t.Fatal(err)
	}
	if !set.Has("view") || set.Has("edit") {
		t.Fatalf("carol: unexpected set %v", set.Strings())
	}
}

func TestLoad_RejectsGroupCycle(t *testing.T) {
	eng, ctx := newEngine(t)
	_, err := seed.Load(ctx, eng, strings.NewReader(`
groups:
  - name: a
    groups: [b]
  - name: b
    groups: [a]
`))
	if !errors.Is(err, granary.ErrCyclicGroupMembership) {
		t.Fatalf("expected ErrCyclicGroupMembership, got %v", err)
	}
}

func TestLoad_UnknownReferences(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"role parent", `
grains: [{name: app, items: [{name: docs}]}]
roles: [{grain: app, item: docs, name: editor, parent: ghost}]
`},
		{"assignment role", `
assignments: [{grain: app, item: docs, role: ghost, user: alice}]
`},
		{"nested group", `
groups: [{name: staff, groups: [ghost]}]
`},
		{"no principal", `
grains: [{name: app, items: [{name: docs}]}]
roles: [{grain: app, item: docs, name: viewer}]
assignments: [{grain: app, item: docs, role: viewer}]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, ctx := newEngine(t)
			if _, err := seed.Load(ctx, eng, strings.NewReader(tt.doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	if _, err := seed.Parse(strings.NewReader("grains: [{name: app, colour: red}]")); err == nil {
		t.Fatal("expected unknown field error")
	}
	doc, err := seed.Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty document: %v", err)
	}
	if len(doc.Grains) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}
