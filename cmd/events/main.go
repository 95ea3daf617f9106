package main

import (
	"context"
	"fmt"

	lambdaEvents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"philcali.me/listsync/internal/config"
	"philcali.me/listsync/internal/dynamodb/lists"
	"philcali.me/listsync/internal/dynamodb/token"
	"philcali.me/listsync/internal/events"
	"philcali.me/listsync/internal/logging"
	"philcali.me/listsync/internal/remote"
	"philcali.me/listsync/internal/sns/services"
)

type App struct {
	Handlers []events.EventFilter
}

func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load(config.New(), "")
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.LogLevel, "")
	settings := remote.SettingsFromConfig(cfg.Remote)
	client, awsConfig, err := remote.NewDynamoDBClient(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	listData := lists.NewShoppingListService(cfg.Remote.TableName, client, token.NewGCMWithSecret([]byte(settings.TokenSecret)))
	handlers := []events.EventFilter{
		events.DefaultTouchListHandler(listData),
	}
	if cfg.TopicArn != "" {
		publisher := services.NewChangeSNSService(sns.NewFromConfig(awsConfig), cfg.TopicArn)
		handlers = append(handlers, events.DefaultChangeNotificationHandler(publisher))
	}
	return &App{Handlers: handlers}, nil
}

func (app *App) HandleRequest(ctx context.Context, event lambdaEvents.DynamoDBEvent) error {
	events.Dispatch(ctx, app.Handlers, event, nil)
	return nil
}

func main() {
	app, err := NewApp(context.Background())
	if err != nil {
		panic(fmt.Sprintf("Failed to start stream handler: %s", err))
	}
	lambda.Start(app.HandleRequest)
}
