package metrics_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/granary"
	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/cache"
	"github.com/xraph/granary/grain"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/plugin/metrics"
	"github.com/xraph/granary/role"
	"github.com/xraph/granary/securableitem"
	"github.com/xraph/granary/store/memory"
)

func TestPlugin_RecordsResolutions(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	eng, err := granary.NewEngine(
		granary.WithStore(memory.New()),
		granary.WithCache(cache.NewMemory()),
		granary.WithPlugin(m),
	)
	if err != nil {
		t.Fatal(err)
	}
	ctx := granary.WithTenant(context.Background(), "app", "t1")

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(eng.CreateGrain(ctx, &grain.Grain{Name: "app"}))
	must(eng.CreateSecurableItem(ctx, &securableitem.SecurableItem{Grain: "app", Name: "docs"}))
	p := &permission.Permission{Grain: "app", SecurableItem: "docs", Name: "view"}
	must(eng.CreatePermission(ctx, p))
	r := &role.Role{Grain: "app", SecurableItem: "docs", Name: "viewer"}
	must(eng.CreateRole(ctx, r))
	must(eng.AttachPermission(ctx, r.ID, p.ID))
	must(eng.AssignRole(ctx, &assignment.Assignment{RoleID: r.ID, PrincipalID: "alice"}))

	req := &granary.ResolveRequest{PrincipalID: "alice", Grain: "app", SecurableItem: "docs"}
	for range 3 {
		if _, err := eng.Resolve(ctx, req); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := eng.Resolve(ctx, &granary.ResolveRequest{Grain: "app"}); err == nil {
		t.Fatal("expected invalid argument")
	}

	expected := `
# HELP granary_resolutions_total Total number of permission set resolutions
# TYPE granary_resolutions_total counter
granary_resolutions_total{error_kind="",outcome="cached"} 2
granary_resolutions_total{error_kind="",outcome="resolved"} 1
granary_resolutions_total{error_kind="invalid_argument",outcome="failed"} 1
`
	if err := testutil.CollectAndCompare(m.ResolutionsTotal, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected resolution metrics: %v", err)
	}
	if got := testutil.ToFloat64(m.MutationsTotal.WithLabelValues("role_assigned")); got != 1 {
		t.Fatalf("expected 1 role_assigned mutation, got %v", got)
	}
	if got := testutil.ToFloat64(m.MutationsTotal.WithLabelValues("permission_attached")); got != 1 {
		t.Fatalf("expected 1 permission_attached mutation, got %v", got)
	}
	if count := testutil.CollectAndCount(m.ResolutionDuration); count != 1 {
		t.Fatalf("expected one duration series, got %d", count)
	}
}

func TestPlugin_Handler(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.MutationsTotal.WithLabelValues("group_created").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `granary_mutations_total{operation="group_created"} 1`) {
		t.Fatalf("metrics output missing mutation counter:\n%s", body)
	}
}
