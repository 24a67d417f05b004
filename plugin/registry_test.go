package plugin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/xraph/granary/group"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/role"
)

// testPlugin implements Plugin + RoleCreated + AfterResolve + GroupMemberAdded.
type testPlugin struct {
	roleCreated  int
	afterResolve int
	memberAdded  int
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	t.roleCreated++
	return nil
}

func (t *testPlugin) OnAfterResolve(_ context.Context, _, _ any) error {
	t.afterResolve++
	return nil
}

func (t *testPlugin) OnGroupMemberAdded(_ context.Context, _ *group.Member) error {
	t.memberAdded++
	return nil
}

// minimalPlugin implements no hooks.
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

type failingPlugin struct{}

func (f *failingPlugin) Name() string { return "failing" }

func (f *failingPlugin) OnRoleDeleted(_ context.Context, _ id.RoleID) error {
	return errors.New("boom")
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	reg.EmitRoleCreated(ctx, &role.Role{ID: id.NewRoleID(), Name: "editor"})
	reg.EmitAfterResolve(ctx, nil, nil)
	reg.EmitGroupMemberAdded(ctx, &group.Member{ID: id.NewMemberID()})
	if tp.roleCreated != 1 || tp.afterResolve != 1 || tp.memberAdded != 1 {
		t.Fatalf("unexpected dispatch counts: %+v", tp)
	}

	// Hooks with no listeners are no-ops.
	reg.EmitBeforeResolve(ctx, nil)
	reg.EmitResolveFailed(ctx, nil, errors.New("x"))
	reg.EmitRoleDeleted(ctx, id.NewRoleID())
	reg.EmitGroupMemberRemoved(ctx, id.NewGroupID(), group.MemberUser, "alice")
	reg.EmitShutdown(ctx)
}

func TestRegistryLogsHookErrors(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))
	reg.Register(&failingPlugin{})

	reg.EmitRoleDeleted(context.Background(), id.NewRoleID())

	out := buf.String()
	if !strings.Contains(out, "OnRoleDeleted") || !strings.Contains(out, "failing") {
		t.Fatalf("expected hook error to be logged, got %q", out)
	}
}
