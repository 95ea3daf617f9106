package remote

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"philcali.me/listsync/internal/config"
	"philcali.me/listsync/internal/dynamodb/items"
	"philcali.me/listsync/internal/dynamodb/lists"
	"philcali.me/listsync/internal/dynamodb/token"
	"philcali.me/listsync/internal/memdb"
)

type DynamoDBSettings struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyId     string
	SecretAccessKey string
	TokenSecret     string
}

// LoadAWSConfig resolves the default AWS configuration with any region and
// static credentials overrides applied.
func LoadAWSConfig(ctx context.Context, settings DynamoDBSettings) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if settings.Region != "" {
		opts = append(opts, awsconfig.WithRegion(settings.Region))
	}
	if settings.AccessKeyId != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			settings.AccessKeyId,
			settings.SecretAccessKey,
			"",
		)))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

func NewDynamoDBClient(ctx context.Context, settings DynamoDBSettings) (*dynamodb.Client, aws.Config, error) {
	cfg, err := LoadAWSConfig(ctx, settings)
	if err != nil {
		return nil, cfg, err
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if settings.Endpoint != "" {
			o.EndpointResolver = dynamodb.EndpointResolverFromURL(settings.Endpoint)
		}
	}), cfg, nil
}

func NewDynamoDBAdapter(ctx context.Context, settings DynamoDBSettings, singletonListId string, logger *slog.Logger) (*Adapter, error) {
	client, _, err := NewDynamoDBClient(ctx, settings)
	if err != nil {
		return nil, err
	}
	marshaler := token.NewGCMWithSecret([]byte(settings.TokenSecret))
	return NewAdapter(
		lists.NewShoppingListService(settings.TableName, client, marshaler),
		items.NewShoppingItemService(settings.TableName, client, marshaler),
		singletonListId,
		logger,
	), nil
}

// NewMemoryAdapter backs the adapter with in-process collections. The
// collections are returned so callers can inspect or fault them.
func NewMemoryAdapter(singletonListId string, logger *slog.Logger) (*Adapter, *memdb.Lists, *memdb.Items) {
	shoppingLists := memdb.NewShoppingLists()
	shoppingItems := memdb.NewShoppingItems()
	return NewAdapter(shoppingLists, shoppingItems, singletonListId, logger), shoppingLists, shoppingItems
}

func SettingsFromConfig(remote config.Remote) DynamoDBSettings {
	return DynamoDBSettings{
		TableName:       remote.TableName,
		Region:          remote.Region,
		Endpoint:        remote.Endpoint,
		AccessKeyId:     remote.AccessKeyId,
		SecretAccessKey: remote.SecretAccessKey,
		TokenSecret:     remote.TokenSecret,
	}
}
