package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/xraph/granary"
)

func req(principal, grain, si string) *granary.ResolveRequest {
	return &granary.ResolveRequest{PrincipalID: principal, Grain: grain, SecurableItem: si}
}

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	r := req("alice", "app", "ps")
	if _, ok := c.Get(ctx, "t1", r); ok {
		t.Fatal("expected cache miss")
	}

	c.Set(ctx, "t1", r, &granary.ResolvedPermissionSet{PrincipalID: "alice"})
	got, ok := c.Get(ctx, "t1", r)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.PrincipalID != "alice" {
		t.Fatalf("unexpected set: %+v", got)
	}
	if _, ok := c.Get(ctx, "t1", req("alice", "app", "")); ok {
		t.Fatal("grain-wide request must not share the item-scoped entry")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Millisecond))

	r := req("alice", "app", "ps")
	c.Set(ctx, "t1", r, &granary.ResolvedPermissionSet{})
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(ctx, "t1", r); ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateTenant(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "t1", req("alice", "app", "ps"), &granary.ResolvedPermissionSet{})
	c.Set(ctx, "t1", req("bob", "app", "ps"), &granary.ResolvedPermissionSet{})
	c.Set(ctx, "t2", req("alice", "app", "ps"), &granary.ResolvedPermissionSet{})
	c.Set(ctx, "t10", req("alice", "app", "ps"), &granary.ResolvedPermissionSet{})

	c.InvalidateTenant(ctx, "t1")

	if _, ok := c.Get(ctx, "t1", req("alice", "app", "ps")); ok {
		t.Fatal("t1 alice should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", req("bob", "app", "ps")); ok {
		t.Fatal("t1 bob should be invalidated")
	}
	if _, ok := c.Get(ctx, "t2", req("alice", "app", "ps")); !ok {
		t.Fatal("t2 should still be cached")
	}
	if _, ok := c.Get(ctx, "t10", req("alice", "app", "ps")); !ok {
		t.Fatal("t10 shares a string prefix with t1 and should still be cached")
	}
}

func TestMemoryCacheInvalidatePrincipal(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "t1", req("alice:windows", "app", "ps"), &granary.ResolvedPermissionSet{})
	c.Set(ctx, "t1", req("alice:windows", "dos", ""), &granary.ResolvedPermissionSet{})
	c.Set(ctx, "t1", req("alice", "app", "ps"), &granary.ResolvedPermissionSet{})

	c.InvalidatePrincipal(ctx, "t1", "alice:windows")

	if _, ok := c.Get(ctx, "t1", req("alice:windows", "app", "ps")); ok {
		t.Fatal("alice:windows app should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", req("alice:windows", "dos", "")); ok {
		t.Fatal("alice:windows dos should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", req("alice", "app", "ps")); !ok {
		t.Fatal("alice should still be cached")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	for i := range 5 {
		c.Set(ctx, "t1", req("u"+strconv.Itoa(i), "app", ""), &granary.ResolvedPermissionSet{})
	}
	if c.Len() > 2 {
		t.Fatalf("expected max 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get(ctx, "t1", req("u4", "app", "")); !ok {
		t.Fatal("most recent entry should survive eviction")
	}
}
