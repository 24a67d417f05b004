package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/granary"
	"github.com/xraph/granary/grain"
	"github.com/xraph/granary/id"
	"github.com/xraph/granary/securableitem"
)

func (a *API) registerGrainRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("grains"))

	if err := g.POST("/grains", a.createGrain,
		forge.WithSummary("Create grain"),
		forge.WithDescription("Creates a top-level grain. Shared grains only accept writes from clients holding a required scope."),
		forge.WithOperationID("createGrain"),
		forge.WithRequestSchema(CreateGrainRequest{}),
		forge.WithCreatedResponse(&grain.Grain{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/grains", a.listGrains,
		forge.WithSummary("List grains"),
		forge.WithOperationID("listGrains"),
		forge.WithRequestSchema(ListGrainsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Grain list", []*grain.Grain{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/grains/:grain", a.getGrain,
		forge.WithSummary("Get grain"),
		forge.WithOperationID("getGrain"),
		forge.WithResponseSchema(http.StatusOK, "Grain details", &grain.Grain{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/grains/:grain", a.deleteGrain,
		forge.WithSummary("Delete grain"),
		forge.WithOperationID("deleteGrain"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/grains/:grain/items", a.createSecurableItem,
		forge.WithSummary("Create securable item"),
		forge.WithDescription("Creates a securable item under a grain, owned by the calling client."),
		forge.WithOperationID("createSecurableItem"),
		forge.WithRequestSchema(CreateSecurableItemRequest{}),
		forge.WithCreatedResponse(&securableitem.SecurableItem{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/grains/:grain/items", a.listSecurableItems,
		forge.WithSummary("List securable items"),
		forge.WithOperationID("listSecurableItems"),
		forge.WithRequestSchema(ListSecurableItemsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Securable item list", []*securableitem.SecurableItem{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/grains/:grain/items/:item", a.getSecurableItem,
		forge.WithSummary("Get securable item"),
		forge.WithOperationID("getSecurableItem"),
		forge.WithResponseSchema(http.StatusOK, "Securable item details", &securableitem.SecurableItem{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE("/grains/:grain/items/:item", a.deleteSecurableItem,
		forge.WithSummary("Delete securable item"),
		forge.WithOperationID("deleteSecurableItem"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) createGrain(ctx forge.Context, req *CreateGrainRequest) (*grain.Grain, error) {
	g := &grain.Grain{
		Name:                req.Name,
		IsShared:            req.IsShared,
		RequiredWriteScopes: req.RequiredWriteScopes,
	}
	if err := a.eng.CreateGrain(adminContext(ctx), g); err != nil {
		return nil, mapError(err)
	}

	return g, ctx.JSON(http.StatusCreated, g)
}

func (a *API) listGrains(ctx forge.Context, req *ListGrainsRequest) ([]*grain.Grain, error) {
	grains, err := a.eng.Store().ListGrains(ctx.Context(), &grain.ListFilter{
		TenantID: granary.TenantFromContext(ctx.Context()),
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return grains, ctx.JSON(http.StatusOK, grains)
}

func (a *API) getGrain(ctx forge.Context, _ *GetGrainRequest) (*grain.Grain, error) {
	g, err := a.eng.Store().GetGrainByName(ctx.Context(), granary.TenantFromContext(ctx.Context()), ctx.Param("grain"))
	if err != nil {
		return nil, mapError(err)
	}

	return g, ctx.JSON(http.StatusOK, g)
}

func (a *API) deleteGrain(ctx forge.Context, _ *GetGrainRequest) (*struct{}, error) {
	if err := a.eng.DeleteGrain(adminContext(ctx), ctx.Param("grain")); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) createSecurableItem(ctx forge.Context, req *CreateSecurableItemRequest) (*securableitem.SecurableItem, error) {
	si := &securableitem.SecurableItem{
		Grain:       ctx.Param("grain"),
		Name:        req.Name,
		ClientOwner: req.ClientOwner,
	}

	if req.ParentID != "" {
		pid, err := id.ParseSecurableItemID(req.ParentID)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid parent_id: %v", err))
		}
		si.ParentID = &pid
	}

	if err := a.eng.CreateSecurableItem(adminContext(ctx), si); err != nil {
		return nil, mapError(err)
	}

	return si, ctx.JSON(http.StatusCreated, si)
}

func (a *API) listSecurableItems(ctx forge.Context, req *ListSecurableItemsRequest) ([]*securableitem.SecurableItem, error) {
	items, err := a.eng.Store().ListSecurableItems(ctx.Context(), &securableitem.ListFilter{
		TenantID: granary.TenantFromContext(ctx.Context()),
		Grain:    ctx.Param("grain"),
		Limit:    defaultLimit(req.Limit),
		Offset:   req.Offset,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return items, ctx.JSON(http.StatusOK, items)
}

func (a *API) getSecurableItem(ctx forge.Context, _ *GetSecurableItemRequest) (*securableitem.SecurableItem, error) {
	si, err := a.eng.Store().GetSecurableItemByName(ctx.Context(),
		granary.TenantFromContext(ctx.Context()), ctx.Param("grain"), ctx.Param("item"))
	if err != nil {
		return nil, mapError(err)
	}

	return si, ctx.JSON(http.StatusOK, si)
}

func (a *API) deleteSecurableItem(ctx forge.Context, _ *GetSecurableItemRequest) (*struct{}, error) {
	if err := a.eng.DeleteSecurableItem(adminContext(ctx), ctx.Param("grain"), ctx.Param("item")); err != nil {
		return nil, mapError(err)
	}

	return nil, ctx.NoContent(http.StatusNoContent)
}
