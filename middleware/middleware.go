// Package middleware provides Forge middleware that gates routes on granary
// permissions.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/xraph/granary"
)

// Permission names one permission within a grain and securable item.
type Permission struct {
	Grain         string
	SecurableItem string
	Name          string
}

// RequirePermission enforces a single permission for the Forge user on the
// request context.
func RequirePermission(eng *granary.Engine, grain, securableItem, name string) forge.Middleware {
	return RequireAll(eng, Permission{Grain: grain, SecurableItem: securableItem, Name: name})
}

// RequireAny allows the request if ANY of the permissions is in effect.
func RequireAny(eng *granary.Engine, perms ...Permission) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			principal := forge.UserIDFromContext(ctx.Context())
			if principal == "" {
				return denyResponse(ctx)
			}
			for _, p := range perms {
				result, err := eng.Check(ctx.Context(), checkRequest(principal, p))
				if err == nil && result.Allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if ALL permissions are in effect.
func RequireAll(eng *granary.Engine, perms ...Permission) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			principal := forge.UserIDFromContext(ctx.Context())
			if principal == "" {
				return denyResponse(ctx)
			}
			for _, p := range perms {
				if err := eng.Enforce(ctx.Context(), checkRequest(principal, p)); err != nil {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

func checkRequest(principal string, p Permission) *granary.CheckRequest {
	return &granary.CheckRequest{
		PrincipalID:   principal,
		Grain:         p.Grain,
		SecurableItem: p.SecurableItem,
		Permission:    p.Name,
	}
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
