package items

import (
	"context"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/exceptions"
	"philcali.me/listsync/internal/routes"
	"philcali.me/listsync/internal/routes/lists"
	"philcali.me/listsync/internal/routes/util"
)

type ShoppingItemService struct {
	lists data.Repository[data.ShoppingListDTO, data.ShoppingListInputDTO]
	items data.Repository[data.ShoppingItemDTO, data.ShoppingItemInputDTO]
}

func NewRoute(
	lists data.Repository[data.ShoppingListDTO, data.ShoppingListInputDTO],
	items data.Repository[data.ShoppingItemDTO, data.ShoppingItemInputDTO],
) routes.Service {
	return &ShoppingItemService{
		lists: lists,
		items: items,
	}
}

func (si *ShoppingItemService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/lists/:listId/items":            util.AuthorizedRoute(si.ListShoppingItems),
		"POST:/lists/:listId/items":           util.AuthorizedRoute(si.CreateShoppingItem),
		"GET:/lists/:listId/items/:itemId":    util.AuthorizedRoute(si.GetShoppingItem),
		"PUT:/lists/:listId/items/:itemId":    util.AuthorizedRoute(si.UpdateShoppingItem),
		"DELETE:/lists/:listId/items/:itemId": util.AuthorizedRoute(si.DeleteShoppingItem),
	}
}

// getLive loads a live item that belongs to the list in the path.
func (si *ShoppingItemService) getLive(ctx context.Context, accountId string, listId string, itemId string) (data.ShoppingItemDTO, error) {
	item, err := si.items.Get(ctx, accountId, itemId)
	if err != nil {
		return item, err
	}
	if item.Deleted || item.ListRef != listId {
		return item, exceptions.NotFound("shoppingitem", itemId)
	}
	return item, nil
}

func (si *ShoppingItemService) ListShoppingItems(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	params, err := util.ParseQueryParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	accountId := util.AccountId(ctx)
	listId := routes.RequestParam(ctx, "listId")
	if _, err := lists.GetLive(ctx, si.lists, accountId, listId); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	params.Equals = map[string]string{"listRef": listId}
	page, err := si.items.List(ctx, accountId, params)
	return util.SerializeResponseOK(util.ConvertQueryResultsPartial(NewShoppingItem), util.LivePage(page), err)
}

func (si *ShoppingItemService) GetShoppingItem(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	item, err := si.getLive(ctx, util.AccountId(ctx), routes.RequestParam(ctx, "listId"), routes.RequestParam(ctx, "itemId"))
	return util.SerializeResponseOK(NewShoppingItem, item, err)
}

func (si *ShoppingItemService) CreateShoppingItem(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input, err := util.ParseBody[ShoppingItemInput](event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("name is required")
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("quantity cannot be negative")
	}
	accountId := util.AccountId(ctx)
	listId := routes.RequestParam(ctx, "listId")
	if _, err := lists.GetLive(ctx, si.lists, accountId, listId); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	created, err := si.items.Create(ctx, accountId, input.ToData(accountId, listId))
	return util.SerializeResponse(NewShoppingItem, created, err, 201)
}

func (si *ShoppingItemService) UpdateShoppingItem(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input, err := util.ParseBody[ShoppingItemInput](event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	accountId := util.AccountId(ctx)
	listId := routes.RequestParam(ctx, "listId")
	itemId := routes.RequestParam(ctx, "itemId")
	if _, err := si.getLive(ctx, accountId, listId, itemId); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	input.Id = nil
	updated, err := si.items.Update(ctx, accountId, itemId, input.ToData(accountId, listId))
	return util.SerializeResponseOK(NewShoppingItem, updated, err)
}

func (si *ShoppingItemService) DeleteShoppingItem(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	accountId := util.AccountId(ctx)
	listId := routes.RequestParam(ctx, "listId")
	itemId := routes.RequestParam(ctx, "itemId")
	if _, err := si.getLive(ctx, accountId, listId, itemId); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	deleted := true
	_, err := si.items.Update(ctx, accountId, itemId, data.ShoppingItemInputDTO{
		AccountId: &accountId,
		Deleted:   &deleted,
	})
	return util.SerializeResponseNoContent(err)
}
