package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/granary"
	"github.com/xraph/granary/group"
	"github.com/xraph/granary/id"
)

func (a *API) registerGroupRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("groups"))

	if err := g.POST("/groups", a.createGroup,
		forge.WithSummary("Create group"),
		forge.WithDescription("Creates a custom or directory group."),
		forge.WithOperationID("createGroup"),
		forge.WithRequestSchema(CreateGroupRequest{}),
		forge.WithCreatedResponse(&group.Group{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/groups", a.listGroups,
		forge.WithSummary("List groups"),
		forge.WithOperationID("listGroups"),
		forge.WithRequestSchema(ListGroupsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Group list", []*group.Group{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/groups/:groupId", a.getGroup,
		forge.WithSummary("Get group"),
		forge.WithOperationID("getGroup"),
		forge.WithResponseSchema(http.StatusOK, "Group details", &group.Group{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/groups/:groupId", a.deleteGroup,
		forge.WithSummary("Delete group"),
		forge.WithOperationID("deleteGroup"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/groups/:groupId/members", a.listMembers,
		forge.WithSummary("List group members"),
		forge.WithOperationID("listGroupMembers"),
		forge.WithResponseSchema(http.StatusOK, "Member list", []*group.Member{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/groups/:groupId/members", a.addMember,
		forge.WithSummary("Add group member"),
		forge.WithDescription("Adds a user or a nested group. Membership cycles are rejected."),
		forge.WithOperationID("addGroupMember"),
		forge.WithRequestSchema(AddMemberRequest{}),
		forge.WithCreatedResponse(&group.Member{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/groups/:groupId/members/:memberKind/:memberId", a.removeMember,
		forge.WithSummary("Remove group member"),
		forge.WithOperationID("removeGroupMember"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) createGroup(ctx forge.Context, req *CreateGroupRequest) (*group.Group, error) {
	g := &group.Group{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Type:        group.Type(req.Type),
		Source:      req.Source,
	}
	if err := a.eng.CreateGroup(adminContext(ctx), g); err != nil {
		return nil, mapError(err)
	}

	return g, ctx.JSON(http.StatusCreated, g)
}

func (a *API) listGroups(ctx forge.Context, req *ListGroupsRequest) ([]*group.Group, error) {
	groups, err := a.eng.Store().ListGroups(ctx.Context(), &group.ListFilter{
		TenantID: granary.TenantFromContext(ctx.Context()),
		Type:     group.Type(req.Type),
		Search:   req.Search,
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return groups, ctx.JSON(http.StatusOK, groups)
}

func (a *API) getGroup(ctx forge.Context, _ *GetGroupRequest) (*group.Group, error) {
	g, err := a.groupFromPath(ctx)
	if err != nil {
		return nil, err
	}
	return g, ctx.JSON(http.StatusOK, g)
}

func (a *API) deleteGroup(ctx forge.Context, _ *GetGroupRequest) (*struct{}, error) {
	g, err := a.groupFromPath(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.eng.DeleteGroup(adminContext(ctx), g.ID); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listMembers(ctx forge.Context, _ *GetGroupRequest) ([]*group.Member, error) {
	g, err := a.groupFromPath(ctx)
	if err != nil {
		return nil, err
	}

	members, err := a.eng.Store().ListMembers(ctx.Context(), g.ID)
	if err != nil {
		return nil, mapError(err)
	}
	if members == nil {
		members = []*group.Member{}
	}

	return members, ctx.JSON(http.StatusOK, members)
}

func (a *API) addMember(ctx forge.Context, req *AddMemberRequest) (*group.Member, error) {
	g, err := a.groupFromPath(ctx)
	if err != nil {
		return nil, err
	}

	m := &group.Member{
		GroupID:    g.ID,
		MemberKind: group.MemberKind(req.MemberKind),
		MemberID:   req.MemberID,
	}
	if err := a.eng.AddGroupMember(adminContext(ctx), m); err != nil {
		return nil, mapError(err)
	}

	return m, ctx.JSON(http.StatusCreated, m)
}

func (a *API) removeMember(ctx forge.Context, _ *struct{}) (*struct{}, error) {
	g, err := a.groupFromPath(ctx)
	if err != nil {
		return nil, err
	}

	kind := group.MemberKind(ctx.Param("memberKind"))
	if !kind.Valid() {
		return nil, forge.BadRequest(fmt.Sprintf("invalid member kind %q", kind))
	}

	if err := a.eng.RemoveGroupMember(adminContext(ctx), g.ID, kind, ctx.Param("memberId")); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) groupFromPath(ctx forge.Context) (*group.Group, error) {
	groupID, err := id.ParseGroupID(ctx.Param("groupId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid group ID: %v", err))
	}

	g, err := a.eng.Store().GetGroup(ctx.Context(), groupID)
	if err != nil {
		return nil, mapError(err)
	}
	if !sameTenant(ctx, g.TenantID) {
		return nil, forge.NotFound("group not found")
	}
	return g, nil
}
