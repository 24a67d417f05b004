package granary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/xraph/granary/id"
	"github.com/xraph/granary/plugin"
	"github.com/xraph/granary/store"
)

// Engine is the entry point for resolution and administration. It wraps a
// Resolver with caching and plugin hooks, and validates admin mutations
// before they reach the store.
type Engine struct {
	store    store.Store
	resolver *Resolver
	cache    Cache
	plugins  *plugin.Registry
	logger   *slog.Logger
	config   Config
}

// NewEngine creates an engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("granary: store is required")
	}
	e.resolver = NewStoreResolver(e.store, e.config)
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Resolver returns the engine's resolver, which bypasses cache and plugins.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Start verifies the store is reachable.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("granary: ping store: %w", err)
	}
	return nil
}

// Stop notifies plugins of shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// Resolve returns the effective permission set for req. This is the hot path.
func (e *Engine) Resolve(ctx context.Context, req *ResolveRequest) (*ResolvedPermissionSet, error) {
	start := time.Now()

	norm, err := normalizeRequest(req)
	if err != nil {
		rerr := &ResolutionError{Kind: KindInvalidArgument, Op: "resolve", Err: err}
		e.emitFailed(ctx, req, rerr)
		return nil, rerr
	}
	tenantID := scopeFromContext(ctx).tenantID

	// 1. Cache hit?
	if e.cacheEnabled() {
		if cached, ok := e.cache.Get(ctx, tenantID, norm); ok {
			out := cached.Clone()
			out.Cached = true
			out.EvalTimeNs = time.Since(start).Nanoseconds()
			if e.plugins != nil {
				e.plugins.EmitAfterResolve(ctx, norm, out)
			}
			return out, nil
		}
	}

	// 2. Plugin hook: before resolve.
	if e.plugins != nil {
		e.plugins.EmitBeforeResolve(ctx, norm)
	}

	// 3. Resolve.
	set, err := e.resolver.Resolve(ctx, norm.PrincipalID, norm.Grain, norm.SecurableItem)
	if err != nil {
		e.emitFailed(ctx, norm, err)
		return nil, err
	}
	set.EvalTimeNs = time.Since(start).Nanoseconds()

	// 4. Cache a private copy.
	if e.cacheEnabled() {
		e.cache.Set(ctx, tenantID, norm, set.Clone())
	}

	// 5. Plugin hook: after resolve.
	if e.plugins != nil {
		e.plugins.EmitAfterResolve(ctx, norm, set)
	}

	return set, nil
}

// ExpandGroups returns every group principalID belongs to in the context's
// tenant.
func (e *Engine) ExpandGroups(ctx context.Context, principalID string) ([]id.GroupID, error) {
	return e.resolver.ExpandGroups(ctx, principalID)
}

// CheckRequest asks whether a single permission is in effect.
type CheckRequest struct {
	PrincipalID   string `json:"principal_id"`
	Grain         string `json:"grain"`
	SecurableItem string `json:"securable_item"`
	Permission    string `json:"permission"`
}

// CheckResult is the outcome of Check.
type CheckResult struct {
	Allowed bool `json:"allowed"`
	// Denied is true when an explicit deny blocked the permission.
	Denied     bool        `json:"denied"`
	RoleIDs    []id.RoleID `json:"role_ids,omitempty"`
	EvalTimeNs int64       `json:"eval_time_ns"`
}

// Check resolves the principal's set and reports whether req.Permission is
// in effect.
func (e *Engine) Check(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	if req == nil || req.Permission == "" {
		return nil, &ResolutionError{Kind: KindInvalidArgument, Op: "check", Err: errors.New("permission is required")}
	}
	set, err := e.Resolve(ctx, &ResolveRequest{
		PrincipalID:   req.PrincipalID,
		Grain:         req.Grain,
		SecurableItem: req.SecurableItem,
	})
	if err != nil {
		return nil, err
	}

	res := &CheckResult{EvalTimeNs: set.EvalTimeNs}
	match := func(p EffectivePermission) bool {
		return p.Name == req.Permission && (req.SecurableItem == "" || p.SecurableItem == req.SecurableItem)
	}
	if i := slices.IndexFunc(set.Permissions, match); i >= 0 {
		res.Allowed = true
		res.RoleIDs = set.Permissions[i].RoleIDs
	} else if i := slices.IndexFunc(set.Denied, match); i >= 0 {
		res.Denied = true
		res.RoleIDs = set.Denied[i].RoleIDs
	}
	return res, nil
}

// Enforce returns an error wrapping ErrAccessDenied unless the permission is
// in effect.
func (e *Engine) Enforce(ctx context.Context, req *CheckRequest) error {
	res, err := e.Check(ctx, req)
	if err != nil {
		return fmt.Errorf("granary check: %w", err)
	}
	if !res.Allowed {
		reason := "not granted"
		if res.Denied {
			reason = "explicitly denied"
		}
		return fmt.Errorf("%w: %s/%s.%s %s", ErrAccessDenied, req.Grain, req.SecurableItem, req.Permission, reason)
	}
	return nil
}

// InvalidateTenant drops every cached set for the context's tenant.
func (e *Engine) InvalidateTenant(ctx context.Context) {
	if e.cacheEnabled() {
		e.cache.InvalidateTenant(ctx, scopeFromContext(ctx).tenantID)
	}
}

func (e *Engine) cacheEnabled() bool { return e.cache != nil && !e.config.DisableCache }

func (e *Engine) emitFailed(ctx context.Context, req *ResolveRequest, err error) {
	if e.plugins != nil {
		e.plugins.EmitResolveFailed(ctx, req, err)
	}
}
