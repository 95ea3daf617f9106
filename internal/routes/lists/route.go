package lists

import (
	"context"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/exceptions"
	"philcali.me/listsync/internal/routes"
	"philcali.me/listsync/internal/routes/util"
)

type ShoppingListService struct {
	data data.Repository[data.ShoppingListDTO, data.ShoppingListInputDTO]
}

func NewRoute(data data.Repository[data.ShoppingListDTO, data.ShoppingListInputDTO]) routes.Service {
	return &ShoppingListService{
		data: data,
	}
}

func (sl *ShoppingListService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/lists":            util.AuthorizedRoute(sl.ListShoppingLists),
		"GET:/lists/:listId":    util.AuthorizedRoute(sl.GetShoppingList),
		"POST:/lists":           util.AuthorizedRoute(sl.CreateShoppingList),
		"PUT:/lists/:listId":    util.AuthorizedRoute(sl.UpdateShoppingList),
		"DELETE:/lists/:listId": util.AuthorizedRoute(sl.DeleteShoppingList),
	}
}

// GetLive loads a list and hides tombstones behind NotFound.
func GetLive(ctx context.Context, repo data.Repository[data.ShoppingListDTO, data.ShoppingListInputDTO], accountId string, listId string) (data.ShoppingListDTO, error) {
	list, err := repo.Get(ctx, accountId, listId)
	if err != nil {
		return list, err
	}
	if list.Deleted {
		return list, exceptions.NotFound("shoppinglist", listId)
	}
	return list, nil
}

func (sl *ShoppingListService) ListShoppingLists(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	params, err := util.ParseQueryParams(event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	if logicalId, ok := event.QueryStringParameters["id"]; ok {
		params.Equals = map[string]string{"logicalId": logicalId}
	}
	page, err := sl.data.List(ctx, util.AccountId(ctx), params)
	return util.SerializeResponseOK(util.ConvertQueryResultsPartial(NewShoppingList), util.LivePage(page), err)
}

func (sl *ShoppingListService) GetShoppingList(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	list, err := GetLive(ctx, sl.data, util.AccountId(ctx), routes.RequestParam(ctx, "listId"))
	return util.SerializeResponseOK(NewShoppingList, list, err)
}

func (sl *ShoppingListService) CreateShoppingList(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input, err := util.ParseBody[ShoppingListInput](event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return events.APIGatewayV2HTTPResponse{}, exceptions.InvalidInput("name is required")
	}
	accountId := util.AccountId(ctx)
	created, err := sl.data.Create(ctx, accountId, input.ToData(accountId))
	return util.SerializeResponse(NewShoppingList, created, err, 201)
}

func (sl *ShoppingListService) UpdateShoppingList(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input, err := util.ParseBody[ShoppingListInput](event)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	accountId := util.AccountId(ctx)
	listId := routes.RequestParam(ctx, "listId")
	if _, err := GetLive(ctx, sl.data, accountId, listId); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	// The logical id is fixed at creation.
	input.Id = nil
	updated, err := sl.data.Update(ctx, accountId, listId, input.ToData(accountId))
	return util.SerializeResponseOK(NewShoppingList, updated, err)
}

// DeleteShoppingList tombstones the list. Records are never removed.
func (sl *ShoppingListService) DeleteShoppingList(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	accountId := util.AccountId(ctx)
	deleted := true
	_, err := sl.data.Update(ctx, accountId, routes.RequestParam(ctx, "listId"), data.ShoppingListInputDTO{
		AccountId: &accountId,
		Deleted:   &deleted,
	})
	return util.SerializeResponseNoContent(err)
}
