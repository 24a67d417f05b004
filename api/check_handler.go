package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/granary"
)

func (a *API) registerResolveRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("resolution"))

	if err := g.POST("/resolve", a.resolve,
		forge.WithSummary("Resolve permissions"),
		forge.WithDescription("Returns the effective permission set of a principal within a grain and securable item."),
		forge.WithOperationID("resolvePermissions"),
		forge.WithRequestSchema(ResolveRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Resolved permission set", &granary.ResolvedPermissionSet{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/check", a.check,
		forge.WithSummary("Permission check"),
		forge.WithDescription("Reports whether one permission is in effect for the principal."),
		forge.WithOperationID("checkPermission"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/enforce", a.enforce,
		forge.WithSummary("Enforce permission"),
		forge.WithDescription("Returns 200 if the permission is in effect, 403 otherwise."),
		forge.WithOperationID("enforcePermission"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/batch-check", a.batchCheck,
		forge.WithSummary("Batch permission check"),
		forge.WithDescription("Evaluates multiple permission checks in one request."),
		forge.WithOperationID("batchCheckPermissions"),
		forge.WithRequestSchema(BatchCheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch results", BatchCheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/principals/:principalId/permissions", a.principalPermissions,
		forge.WithSummary("Principal permissions"),
		forge.WithDescription("Resolves the permission set of the principal in the path."),
		forge.WithOperationID("getPrincipalPermissions"),
		forge.WithRequestSchema(PrincipalPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Resolved permission set", &granary.ResolvedPermissionSet{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/principals/:principalId/groups", a.principalGroups,
		forge.WithSummary("Principal groups"),
		forge.WithDescription("Lists every group the principal belongs to, directly or through nesting."),
		forge.WithOperationID("getPrincipalGroups"),
		forge.WithResponseSchema(http.StatusOK, "Group IDs", GroupsResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) resolve(ctx forge.Context, req *ResolveRequest) (*granary.ResolvedPermissionSet, error) {
	set, err := a.eng.Resolve(ctx.Context(), &granary.ResolveRequest{
		PrincipalID:   req.PrincipalID,
		Grain:         req.Grain,
		SecurableItem: req.SecurableItem,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return set, ctx.JSON(http.StatusOK, set)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	result, err := a.eng.Check(ctx.Context(), toCheckRequest(req))
	if err != nil {
		return nil, mapError(err)
	}
	resp := toCheckResponse(result)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	result, err := a.eng.Check(ctx.Context(), toCheckRequest(req))
	if err != nil {
		return nil, mapError(err)
	}
	resp := toCheckResponse(result)
	if !result.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) batchCheck(ctx forge.Context, req *BatchCheckRequest) (*BatchCheckResponse, error) {
	if len(req.Checks) == 0 {
		return nil, forge.BadRequest("checks cannot be empty")
	}

	results := make([]CheckResponse, len(req.Checks))
	for i := range req.Checks {
		result, err := a.eng.Check(ctx.Context(), toCheckRequest(&req.Checks[i]))
		if err != nil {
			return nil, mapError(err)
		}
		results[i] = *toCheckResponse(result)
	}

	resp := &BatchCheckResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) principalPermissions(ctx forge.Context, req *PrincipalPermissionsRequest) (*granary.ResolvedPermissionSet, error) {
	set, err := a.eng.Resolve(ctx.Context(), &granary.ResolveRequest{
		PrincipalID:   ctx.Param("principalId"),
		Grain:         req.Grain,
		SecurableItem: req.SecurableItem,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return set, ctx.JSON(http.StatusOK, set)
}

func (a *API) principalGroups(ctx forge.Context, _ *PrincipalGroupsRequest) (*GroupsResponse, error) {
	principalID := ctx.Param("principalId")
	groups, err := a.eng.ExpandGroups(ctx.Context(), principalID)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &GroupsResponse{PrincipalID: principalID, GroupIDs: idStrings(groups)}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toCheckRequest(r *CheckRequest) *granary.CheckRequest {
	return &granary.CheckRequest{
		PrincipalID:   r.PrincipalID,
		Grain:         r.Grain,
		SecurableItem: r.SecurableItem,
		Permission:    r.Permission,
	}
}
