package granary

import "context"

// Cache stores resolved permission sets. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns a cached set for req within tenantID.
	Get(ctx context.Context, tenantID string, req *ResolveRequest) (*ResolvedPermissionSet, bool)

	// Set stores a resolved set.
	Set(ctx context.Context, tenantID string, req *ResolveRequest, set *ResolvedPermissionSet)

	// InvalidateTenant drops every cached set for a tenant.
	InvalidateTenant(ctx context.Context, tenantID string)

	// InvalidatePrincipal drops every cached set for one principal.
	InvalidatePrincipal(ctx context.Context, tenantID, principalID string)
}
