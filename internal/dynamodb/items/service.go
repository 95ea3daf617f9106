package items

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/dynamodb/services"
	"philcali.me/listsync/internal/dynamodb/token"
)

const Name = "ShoppingItem"

func NewShoppingItemService(tableName string, client services.DynamoDBAPI, marshaler token.TokenMarshaler) data.Repository[data.ShoppingItemDTO, data.ShoppingItemInputDTO] {
	return &services.RepositoryDynamoDBService[data.ShoppingItemDTO, data.ShoppingItemInputDTO]{
		DynamoDB:       client,
		TableName:      tableName,
		TokenMarshaler: marshaler,
		Name:           Name,
		GetSK: func(sid data.ShoppingItemDTO) string {
			return sid.SK
		},
		OnCreate: func(siid data.ShoppingItemInputDTO, createTime time.Time, pk string, sk string) data.ShoppingItemDTO {
			return siid.NewRecord(pk, sk, createTime)
		},
		OnUpdate: func(siid data.ShoppingItemInputDTO, ub expression.UpdateBuilder) expression.UpdateBuilder {
			if siid.ListRef != nil {
				ub = ub.Set(expression.Name("listRef"), expression.Value(siid.ListRef))
			}
			if siid.AccountId != nil {
				ub = ub.Set(expression.Name("accountId"), expression.Value(siid.AccountId))
			}
			if siid.Name != nil {
				ub = ub.Set(expression.Name("name"), expression.Value(siid.Name))
			}
			if siid.Quantity != nil {
				ub = ub.Set(expression.Name("quantity"), expression.Value(siid.Quantity))
			}
			if siid.Category != nil {
				ub = ub.Set(expression.Name("category"), expression.Value(siid.Category))
			}
			if siid.Completed != nil {
				ub = ub.Set(expression.Name("completed"), expression.Value(siid.Completed))
			}
			if siid.Deleted != nil {
				ub = ub.Set(expression.Name("deleted"), expression.Value(siid.Deleted))
			}
			if siid.Position != nil {
				ub = ub.Set(expression.Name("position"), expression.Value(siid.Position))
			}
			if siid.PhotoURL != nil {
				ub = ub.Set(expression.Name("photoURL"), expression.Value(siid.PhotoURL))
			}
			return ub
		},
		Shim: func(pk, sk string) data.ShoppingItemDTO {
			return data.ShoppingItemDTO{PK: pk, SK: sk}
		},
	}
}
