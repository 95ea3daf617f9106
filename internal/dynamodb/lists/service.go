package lists

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/dynamodb/services"
	"philcali.me/listsync/internal/dynamodb/token"
)

const Name = "ShoppingList"

func NewShoppingListService(tableName string, client services.DynamoDBAPI, marshaler token.TokenMarshaler) data.Repository[data.ShoppingListDTO, data.ShoppingListInputDTO] {
	return &services.RepositoryDynamoDBService[data.ShoppingListDTO, data.ShoppingListInputDTO]{
		DynamoDB:       client,
		TableName:      tableName,
		TokenMarshaler: marshaler,
		Name:           Name,
		GetSK: func(sld data.ShoppingListDTO) string {
			return sld.SK
		},
		OnCreate: func(slid data.ShoppingListInputDTO, createTime time.Time, pk string, sk string) data.ShoppingListDTO {
			return slid.NewRecord(pk, sk, createTime)
		},
		OnUpdate: func(slid data.ShoppingListInputDTO, ub expression.UpdateBuilder) expression.UpdateBuilder {
			if slid.AccountId != nil {
				ub = ub.Set(expression.Name("accountId"), expression.Value(slid.AccountId))
			}
			if slid.Name != nil {
				ub = ub.Set(expression.Name("name"), expression.Value(slid.Name))
			}
			if slid.Archived != nil {
				ub = ub.Set(expression.Name("archived"), expression.Value(slid.Archived))
			}
			if slid.Deleted != nil {
				ub = ub.Set(expression.Name("deleted"), expression.Value(slid.Deleted))
			}
			return ub
		},
		Shim: func(pk, sk string) data.ShoppingListDTO {
			return data.ShoppingListDTO{PK: pk, SK: sk}
		},
	}
}
