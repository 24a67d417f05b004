package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/granary"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
)

func (a *API) registerPermissionRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("permissions"))

	if err := g.POST("/permissions", a.createPermission,
		forge.WithSummary("Create permission"),
		forge.WithDescription("Creates an allow or deny permission within a grain and securable item."),
		forge.WithOperationID("createPermission"),
		forge.WithRequestSchema(CreatePermissionRequest{}),
		forge.WithCreatedResponse(&permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions/:permissionId", a.getPermission,
		forge.WithSummary("Get permission"),
		forge.WithOperationID("getPermission"),
		forge.WithResponseSchema(http.StatusOK, "Permission details", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/permissions/:permissionId", a.deletePermission,
		forge.WithSummary("Delete permission"),
		forge.WithOperationID("deletePermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/permissions", a.listPermissions,
		forge.WithSummary("List permissions"),
		forge.WithOperationID("listPermissions"),
		forge.WithRequestSchema(ListPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Permission list", []*permission.Permission{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPermission(ctx forge.Context, req *CreatePermissionRequest) (*permission.Permission, error) {
	p := &permission.Permission{
		Grain:         req.Grain,
		SecurableItem: req.SecurableItem,
		Name:          req.Name,
		Action:        permission.Action(req.Action),
		Description:   req.Description,
	}
	if err := a.eng.CreatePermission(adminContext(ctx), p); err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPermission(ctx forge.Context, _ *GetPermissionRequest) (*permission.Permission, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	p, err := a.eng.Store().GetPermission(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(err)
	}
	if !sameTenant(ctx, p.TenantID) {
		return nil, forge.NotFound("permission not found")
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) deletePermission(ctx forge.Context, _ *GetPermissionRequest) (*struct{}, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	if err := a.eng.DeletePermission(adminContext(ctx), permID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPermissions(ctx forge.Context, req *ListPermissionsRequest) ([]*permission.Permission, error) {
	perms, err := a.eng.Store().ListPermissions(ctx.Context(), &permission.ListFilter{
		TenantID:      granary.TenantFromContext(ctx.Context()),
		Grain:         req.Grain,
		SecurableItem: req.SecurableItem,
		Name:          req.Name,
		Action:        permission.Action(req.Action),
		Limit:         defaultLimit(req.Limit),
		Offset:        req.Offset,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return perms, ctx.JSON(http.StatusOK, perms)
}
