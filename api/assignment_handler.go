package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/granary"
	"github.com/xraph/granary/assignment"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/role"
)

func (a *API) registerAssignmentRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("assignments"))

	if err := g.POST("/assignments", a.assignRole,
		forge.WithSummary("Assign role"),
		forge.WithDescription("Assigns a role to a user principal or a group."),
		forge.WithOperationID("assignRole"),
		forge.WithRequestSchema(AssignRoleRequest{}),
		forge.WithCreatedResponse(&assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/assignments/:assignmentId", a.unassignRole,
		forge.WithSummary("Unassign role"),
		forge.WithDescription("Removes a role assignment."),
		forge.WithOperationID("unassignRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/assignments", a.listAssignments,
		forge.WithSummary("List assignments"),
		forge.WithOperationID("listAssignments"),
		forge.WithRequestSchema(ListAssignmentsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Assignment list", []*assignment.Assignment{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/principals/:principalId/roles", a.listPrincipalRoles,
		forge.WithSummary("List principal roles"),
		forge.WithDescription("Returns roles assigned directly to a user principal."),
		forge.WithOperationID("listPrincipalRoles"),
		forge.WithResponseSchema(http.StatusOK, "Roles", []*role.Role{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) assignRole(ctx forge.Context, req *AssignRoleRequest) (*assignment.Assignment, error) {
	roleID, err := id.ParseRoleID(req.RoleID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role_id: %v", err))
	}

	ass := &assignment.Assignment{
		RoleID:        roleID,
		PrincipalKind: assignment.PrincipalKind(req.PrincipalKind),
		PrincipalID:   req.PrincipalID,
	}
	if err := a.eng.AssignRole(adminContext(ctx), ass); err != nil {
		return nil, mapError(err)
	}

	return ass, ctx.JSON(http.StatusCreated, ass)
}

func (a *API) unassignRole(ctx forge.Context, _ *GetAssignmentRequest) (*struct{}, error) {
	assID, err := id.ParseAssignmentID(ctx.Param("assignmentId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid assignment ID: %v", err))
	}

	if err := a.eng.UnassignRole(adminContext(ctx), assID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listAssignments(ctx forge.Context, req *ListAssignmentsRequest) ([]*assignment.Assignment, error) {
	filter := &assignment.ListFilter{
		TenantID:      granary.TenantFromContext(ctx.Context()),
		PrincipalKind: assignment.PrincipalKind(req.PrincipalKind),
		PrincipalID:   req.PrincipalID,
		Limit:         defaultLimit(req.Limit),
		Offset:        req.Offset,
	}

	if req.RoleID != "" {
		rid, err := id.ParseRoleID(req.RoleID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid role_id: %v", err))
		}
		filter.RoleID = &rid
	}

	assignments, err := a.eng.Store().ListAssignments(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	return assignments, ctx.JSON(http.StatusOK, assignments)
}

func (a *API) listPrincipalRoles(ctx forge.Context, _ *PrincipalGroupsRequest) ([]*role.Role, error) {
	tenantID := granary.TenantFromContext(ctx.Context())
	roles, err := a.eng.Store().ListRolesForPrincipal(ctx.Context(), tenantID, ctx.Param("principalId"))
	if err != nil {
		return nil, mapError(err)
	}
	if roles == nil {
		roles = []*role.Role{}
	}

	return roles, ctx.JSON(http.StatusOK, roles)
}
