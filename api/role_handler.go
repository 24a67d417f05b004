package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/granary"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/permission"
	"github.com/xraph/granary/role"
)

func (a *API) registerRoleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("roles"))

	if err := g.POST("/roles", a.createRole,
		forge.WithSummary("Create role"),
		forge.WithDescription("Creates a role scoped to a grain and securable item."),
		forge.WithOperationID("createRole"),
		forge.WithRequestSchema(CreateRoleRequest{}),
		forge.WithCreatedResponse(&role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:roleId", a.getRole,
		forge.WithSummary("Get role"),
		forge.WithDescription("Returns details of a specific role."),
		forge.WithOperationID("getRole"),
		forge.WithResponseSchema(http.StatusOK, "Role details", &role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/roles/:roleId/parent", a.setRoleParent,
		forge.WithSummary("Set role parent"),
		forge.WithDescription("Changes or clears the role a role inherits permissions from."),
		forge.WithOperationID("setRoleParent"),
		forge.WithRequestSchema(SetRoleParentRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated role", &role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/roles/:roleId", a.deleteRole,
		forge.WithSummary("Delete role"),
		forge.WithDescription("Deletes a role."),
		forge.WithOperationID("deleteRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles", a.listRoles,
		forge.WithSummary("List roles"),
		forge.WithDescription("Lists roles with optional filters."),
		forge.WithOperationID("listRoles"),
		forge.WithRequestSchema(ListRolesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role list", []*role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:roleId/permissions", a.listRolePermissions,
		forge.WithSummary("List role permissions"),
		forge.WithDescription("Returns the active permissions attached directly to a role."),
		forge.WithOperationID("listRolePermissions"),
		forge.WithResponseSchema(http.StatusOK, "Permission list", []*permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/roles/:roleId/permissions", a.attachPermissionToRole,
		forge.WithSummary("Attach permission to role"),
		forge.WithDescription("Attaches a permission to a role."),
		forge.WithOperationID("attachPermission"),
		forge.WithRequestSchema(AttachPermissionRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/roles/:roleId/permissions/:permissionId", a.detachPermissionFromRole,
		forge.WithSummary("Detach permission from role"),
		forge.WithDescription("Detaches a permission from a role."),
		forge.WithOperationID("detachPermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) createRole(ctx forge.Context, req *CreateRoleRequest) (*role.Role, error) {
	r := &role.Role{
		Grain:         req.Grain,
		SecurableItem: req.SecurableItem,
		Name:          req.Name,
		DisplayName:   req.DisplayName,
		Description:   req.Description,
	}

	if req.ParentID != "" {
		pid, err := id.ParseRoleID(req.ParentID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid parent_id: %v", err))
		}
		r.ParentID = &pid
	}

	if err := a.eng.CreateRole(adminContext(ctx), r); err != nil {
		return nil, mapError(err)
	}

	return r, ctx.JSON(http.StatusCreated, r)
}

func (a *API) getRole(ctx forge.Context, _ *GetRoleRequest) (*role.Role, error) {
	r, err := a.roleFromPath(ctx)
	if err != nil {
		return nil, err
	}
	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) setRoleParent(ctx forge.Context, req *SetRoleParentRequest) (*role.Role, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	var parentID *id.RoleID
	if req.ParentID != "" {
		pid, err := id.ParseRoleID(req.ParentID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid parent_id: %v", err))
		}
		parentID = &pid
	}

	r, err := a.eng.SetRoleParent(adminContext(ctx), roleID, parentID)
	if err != nil {
		return nil, mapError(err)
	}

	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) deleteRole(ctx forge.Context, _ *GetRoleRequest) (*struct{}, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	if err := a.eng.DeleteRole(adminContext(ctx), roleID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRoles(ctx forge.Context, req *ListRolesRequest) ([]*role.Role, error) {
	filter := &role.ListFilter{
		TenantID:      granary.TenantFromContext(ctx.Context()),
		Grain:         req.Grain,
		SecurableItem: req.SecurableItem,
		Name:          req.Name,
		Limit:         defaultLimit(req.Limit),
		Offset:        req.Offset,
	}

	roles, err := a.eng.Store().ListRoles(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return roles, ctx.JSON(http.StatusOK, roles)
}

func (a *API) listRolePermissions(ctx forge.Context, _ *GetRoleRequest) ([]*permission.Permission, error) {
	r, err := a.roleFromPath(ctx)
	if err != nil {
		return nil, err
	}

	perms, err := a.eng.Store().ListPermissionsByRole(ctx.Context(), r.ID)
	if err != nil {
		return nil, mapError(err)
	}

	return perms, ctx.JSON(http.StatusOK, perms)
}

func (a *API) attachPermissionToRole(ctx forge.Context, req *AttachPermissionRequest) (*struct{}, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	permID, err := id.ParsePermissionID(req.PermissionID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	if err := a.eng.AttachPermission(adminContext(ctx), roleID, permID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) detachPermissionFromRole(ctx forge.Context, _ *struct{}) (*struct{}, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}

	if err := a.eng.DetachPermission(adminContext(ctx), roleID, permID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) roleFromPath(ctx forge.Context) (*role.Role, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}

	r, err := a.eng.Store().GetRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}
	if !sameTenant(ctx, r.TenantID) {
		return nil, forge.NotFound("role not found")
	}
	return r, nil
}
