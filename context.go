package granary

import "context"

type contextKey int

const (
	ctxKeyAppID contextKey = iota
	ctxKeyTenantID
	ctxKeyActor
)

// WithTenant returns a context carrying app and tenant IDs. Use it when
// granary runs outside a forge app.
func WithTenant(ctx context.Context, appID, tenantID string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyAppID, appID)
	return context.WithValue(ctx, ctxKeyTenantID, tenantID)
}

// WithActor records who is performing admin mutations. The value lands in
// CreatedBy and ModifiedBy.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

type clientInfo struct {
	id     string
	scopes []string
}

type clientKey struct{}

// WithClient records the calling client and its scopes. Admin mutations
// made under such a context are checked against shared-grain write scopes
// and securable item ownership. Without it the caller is trusted.
func WithClient(ctx context.Context, clientID string, scopes []string) context.Context {
	return context.WithValue(ctx, clientKey{}, clientInfo{id: clientID, scopes: scopes})
}

func clientFromContext(ctx context.Context) (clientInfo, bool) {
	c, ok := ctx.Value(clientKey{}).(clientInfo)
	return c, ok
}
