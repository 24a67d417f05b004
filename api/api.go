// Package api exposes the granary engine over HTTP using Forge routing.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/granary"
)

// API wires all granary HTTP handlers together.
type API struct {
	eng    *granary.Engine
	router forge.Router
}

// New creates an API from an Engine and a Forge router.
func New(eng *granary.Engine, router forge.Router) *API {
	return &API{eng: eng, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("granary: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerResolveRoutes,
		a.registerGrainRoutes,
		a.registerRoleRoutes,
		a.registerPermissionRoutes,
		a.registerGroupRoutes,
		a.registerAssignmentRoutes,
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
