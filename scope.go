package granary

import (
	"context"

	"github.com/xraph/forge"
)

type tenantScope struct {
	appID    string
	tenantID string
	actor    string
}

// scopeFromContext reads tenant scope from forge.Scope, falling back to the
// values set by WithTenant.
func scopeFromContext(ctx context.Context) tenantScope {
	actor := stringFromContext(ctx, ctxKeyActor)
	if actor == "" {
		actor = forge.UserIDFromContext(ctx)
	}
	if s, ok := forge.ScopeFrom(ctx); ok {
		return tenantScope{appID: s.AppID(), tenantID: s.OrgID(), actor: actor}
	}
	return tenantScope{
		appID:    stringFromContext(ctx, ctxKeyAppID),
		tenantID: stringFromContext(ctx, ctxKeyTenantID),
		actor:    actor,
	}
}

// TenantFromContext returns the tenant ID granary would use for ctx.
func TenantFromContext(ctx context.Context) string {
	return scopeFromContext(ctx).tenantID
}
