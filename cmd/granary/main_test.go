package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/xraph/granary/extension"
)

const seedDoc = `
grains:
  - name: app
    items:
      - name: docs
roles:
  - grain: app
    item: docs
    name: viewer
    allow: [view]
groups:
  - name: staff
    groups: [interns]
  - name: interns
    users: [alice]
assignments:
  - grain: app
    item: docs
    role: viewer
    group: staff
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

func TestResolveCmd(t *testing.T) {
	seedPath := writeFile(t, "seed.yaml", seedDoc)
	out, err := run(t, "resolve", "--seed", seedPath, "--tenant", "t1", "--principal", "alice", "--grain", "app")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var set struct {
		Permissions []struct {
			Name string `json:"name"`
		} `json:"permissions"`
		GroupIDs []string `json:"group_ids"`
	}
	if err := json.Unmarshal(out.Bytes(), &set); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(set.Permissions) != 1 || set.Permissions[0].Name != "view" {
		t.Fatalf("unexpected permissions: %s", out)
	}
	if len(set.GroupIDs) != 2 {
		t.Fatalf("expected 2 groups, got %v", set.GroupIDs)
	}
}

func TestExpandGroupsCmd(t *testing.T) {
	seedPath := writeFile(t, "seed.yaml", seedDoc)
	cfgPath := writeFile(t, "granary.yaml", "tenant: t1\nseed: "+seedPath+"\n")

	out, err := run(t, "expand-groups", "--config", cfgPath, "--principal", "alice")
	if err != nil {
		t.Fatalf("expand-groups: %v", err)
	}
	var res struct {
		GroupIDs []string `json:"group_ids"`
	}
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.GroupIDs) != 2 {
		t.Fatalf("expected interns and staff, got %v", res.GroupIDs)
	}
}

func TestResolveCmd_RequiresSeed(t *testing.T) {
	if _, err := run(t, "resolve", "--principal", "alice", "--grain", "app"); err == nil {
		t.Fatal("expected error without --seed")
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "granary.yaml", `
log:
  level: debug
  format: json
granary:
  driver: memory
  cache_ttl: 30s
  enable_metrics: true
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Granary.CacheTTL.String() != "30s" || !cfg.Granary.EnableMetrics {
		t.Fatalf("unexpected granary config: %+v", cfg.Granary)
	}
	if cfg.Granary.MaxRoleDepth != 20 {
		t.Fatalf("expected default max role depth, got %d", cfg.Granary.MaxRoleDepth)
	}
	if _, err := newLogger(cfg.Log); err != nil {
		t.Fatal(err)
	}

	if _, err := loadConfig(writeFile(t, "bad.yaml", "unknown_key: 1\n")); err == nil {
		t.Fatal("expected unknown key error")
	}
	if _, err := newLogger(LogConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestServeStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	opts := &options{cfg: defaultConfig()}
	opts.cfg.Granary.Driver = extension.DriverPostgres
	st, err := opts.serveStore(ctx, logger)
	if err != nil {
		t.Fatalf("no seed: %v", err)
	}
	if st != nil {
		t.Fatal("expected the extension to build the store when no seed is set")
	}

	opts.cfg.Seed = writeFile(t, "seed.yaml", seedDoc)
	if _, err := opts.serveStore(ctx, logger); err == nil {
		t.Fatal("expected error seeding a postgres driver")
	}

	opts.cfg.Granary.Driver = extension.DriverMemory
	opts.cfg.Tenant = "t1"
	st, err = opts.serveStore(ctx, logger)
	if err != nil {
		t.Fatalf("memory seed: %v", err)
	}
	roles, err := st.ListRolesForPrincipal(ctx, "t1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 0 {
		t.Fatalf("alice has no direct roles, got %d", len(roles))
	}
	groups, err := st.ListGroupsForPrincipal(ctx, "t1", "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected alice in interns, got %v", groups)
	}
}
