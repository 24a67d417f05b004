package api

import (
	"context"
	"errors"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/granary"
	"github.com/xraph/granary/store"
)

// Headers identifying the calling client for shared-grain and ownership
// checks on admin routes.
const (
	HeaderClientID     = "X-Client-Id"
	HeaderClientScopes = "X-Client-Scopes"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, granary.ErrInvalidArgument),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, granary.ErrCyclicGroupMembership),
		errors.Is(err, granary.ErrCyclicRoleInheritance),
		errors.Is(err, granary.ErrRoleScopeMismatch):
		return forge.BadRequest(err.Error())
	case errors.Is(err, granary.ErrGrainNotWritable),
		errors.Is(err, granary.ErrNotOwner),
		errors.Is(err, granary.ErrAccessDenied):
		return forge.Forbidden(err.Error())
	}
	return err
}

// adminContext returns the request context, tagged with the calling client
// when the client headers are present.
func adminContext(ctx forge.Context) context.Context {
	c := ctx.Context()
	clientID := strings.TrimSpace(ctx.Request().Header.Get(HeaderClientID))
	if clientID == "" {
		return c
	}
	scopes := strings.FieldsFunc(ctx.Request().Header.Get(HeaderClientScopes), func(r rune) bool {
		return r == ',' || r == ' '
	})
	return granary.WithClient(c, clientID, scopes)
}

// sameTenant reports whether a record owned by tenantID is visible to the
// request's tenant.
func sameTenant(ctx forge.Context, tenantID string) bool {
	t := granary.TenantFromContext(ctx.Context())
	return t == "" || t == tenantID
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
