package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xraph/forge"

	"github.com/xraph/granary"
	"github.com/xraph/granary/api"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/store/memory"
)

type server struct {
	t   *testing.T
	eng *granary.Engine
	h   http.Handler
}

func newServer(t *testing.T) *server {
	t.Helper()
	eng, err := granary.NewEngine(granary.WithStore(memory.New()))
	if err != nil {
		t.Fatal(err)
	}
	return &server{t: t, eng: eng, h: api.New(eng, forge.NewRouter()).Handler()}
}

func tenant(t string) context.Context {
	return forge.WithScope(context.Background(), forge.NewOrgScope("app", t))
}

func (s *server) group(ctx context.Context, name string) *group.Group {
	s.t.Helper()
	g := &group.Group{Name: name}
	if err := s.eng.CreateGroup(ctx, g); err != nil {
		s.t.Fatal(err)
	}
	return g
}

func (s *server) do(ctx context.Context, method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body)).WithContext(ctx)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func TestGroupRoutes_TenantIsolation(t *testing.T) {
	s := newServer(t)
	home := s.group(tenant("t1"), "home")
	foreign := s.group(tenant("t2"), "foreign")

	if rec := s.do(tenant("t2"), http.MethodGet, "/v1/groups/"+home.ID.String(), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get t1 group from t2: status %d, body %s", rec.Code, rec.Body)
	}

	body := `{"member_kind":"group","member_id":"` + home.ID.String() + `"}`
	if rec := s.do(tenant("t2"), http.MethodPost, "/v1/groups/"+foreign.ID.String()+"/members", body); rec.Code != http.StatusNotFound {
		t.Fatalf("nest t1 group into t2 group: status %d, body %s", rec.Code, rec.Body)
	}

	body = `{"member_kind":"user","member_id":"mallory"}`
	if rec := s.do(tenant("t2"), http.MethodPost, "/v1/groups/"+home.ID.String()+"/members", body); rec.Code != http.StatusNotFound {
		t.Fatalf("add member to t1 group from t2: status %d, body %s", rec.Code, rec.Body)
	}

	members, err := s.eng.Store().ListMembers(tenant("t1"), home.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 0 {
		t.Fatalf("expected no members in home, got %d", len(members))
	}
	parents, err := s.eng.Store().ListParentGroups(tenant("t1"), home.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(parents) != 0 {
		t.Fatalf("expected home to have no parents, got %v", parents)
	}
}

func TestGroupRoutes_ErrorMapping(t *testing.T) {
	s := newServer(t)
	ctx := tenant("t1")
	a := s.group(ctx, "a")
	b := s.group(ctx, "b")

	nest := func(parent, child *group.Group) int {
		body := `{"member_kind":"group","member_id":"` + child.ID.String() + `"}`
		return s.do(ctx, http.MethodPost, "/v1/groups/"+parent.ID.String()+"/members", body).Code
	}
	if code := nest(a, b); code >= 300 {
		t.Fatalf("nest b into a: status %d", code)
	}
	if code := nest(b, a); code != http.StatusBadRequest {
		t.Fatalf("cycle: expected 400, got %d", code)
	}
	if code := nest(a, b); code != http.StatusBadRequest {
		t.Fatalf("duplicate: expected 400, got %d", code)
	}
	if rec := s.do(ctx, http.MethodGet, "/v1/groups/not-an-id", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: expected 400, got %d", rec.Code)
	}
	if rec := s.do(ctx, http.MethodPost, "/v1/groups", `{"name":"a"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate name: expected 400, got %d", rec.Code)
	}
}
