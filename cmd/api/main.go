package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"philcali.me/listsync/internal/config"
	itemData "philcali.me/listsync/internal/dynamodb/items"
	listData "philcali.me/listsync/internal/dynamodb/lists"
	"philcali.me/listsync/internal/dynamodb/token"
	"philcali.me/listsync/internal/logging"
	"philcali.me/listsync/internal/remote"
	"philcali.me/listsync/internal/routes"
	"philcali.me/listsync/internal/routes/items"
	"philcali.me/listsync/internal/routes/lists"
)

type App struct {
	Router *routes.Router
}

func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load(config.New(), "")
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel, "")
	settings := remote.SettingsFromConfig(cfg.Remote)
	client, _, err := remote.NewDynamoDBClient(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	marshaler := token.NewGCMWithSecret([]byte(settings.TokenSecret))
	shoppingLists := listData.NewShoppingListService(settings.TableName, client, marshaler)
	shoppingItems := itemData.NewShoppingItemService(settings.TableName, client, marshaler)
	return &App{
		Router: routes.NewRouter(
			lists.NewRoute(shoppingLists),
			items.NewRoute(shoppingLists, shoppingItems),
		),
	}, nil
}

func (app *App) HandleRequest(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return app.Router.Invoke(request, ctx), nil
}

func main() {
	app, err := NewApp(context.Background())
	if err != nil {
		panic(fmt.Sprintf("Failed to start API: %s", err))
	}
	lambda.Start(app.HandleRequest)
}
