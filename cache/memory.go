// Package cache provides cache implementations for resolved permission sets.
package cache

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xraph/granary"
)

var _ granary.Cache = (*Memory)(nil)

// sep separates key parts. Principal IDs may contain ':' so a control
// character keeps prefixes unambiguous.
const sep = "\x1f"

// Memory is an in-process LRU cache with per-entry expiry.
type Memory struct {
	lru     *lru.LRU[string, *granary.ResolvedPermissionSet]
	ttl     time.Duration
	maxSize int
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates an in-memory cache. Defaults are 5 minutes and 10000
// entries.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{ttl: 5 * time.Minute, maxSize: 10000}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxSize <= 0 {
		m.maxSize = 10000
	}
	m.lru = lru.NewLRU[string, *granary.ResolvedPermissionSet](m.maxSize, nil, m.ttl)
	return m
}

// Get returns a cached set.
func (m *Memory) Get(_ context.Context, tenantID string, req *granary.ResolveRequest) (*granary.ResolvedPermissionSet, bool) {
	return m.lru.Get(cacheKey(tenantID, req))
}

// Set stores a set.
func (m *Memory) Set(_ context.Context, tenantID string, req *granary.ResolveRequest, set *granary.ResolvedPermissionSet) {
	m.lru.Add(cacheKey(tenantID, req), set)
}

// InvalidateTenant removes every entry for a tenant.
func (m *Memory) InvalidateTenant(_ context.Context, tenantID string) {
	m.removePrefix(tenantID + sep)
}

// InvalidatePrincipal removes every entry for one principal.
func (m *Memory) InvalidatePrincipal(_ context.Context, tenantID, principalID string) {
	m.removePrefix(tenantID + sep + principalID + sep)
}

// Len returns the number of live entries.
func (m *Memory) Len() int { return m.lru.Len() }

// Purge drops every entry.
func (m *Memory) Purge() { m.lru.Purge() }

func (m *Memory) removePrefix(prefix string) {
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
}

func cacheKey(tenantID string, req *granary.ResolveRequest) string {
	return strings.Join([]string{tenantID, req.PrincipalID, req.Grain, req.SecurableItem}, sep)
}
