package lists

import (
	"time"

	"philcali.me/listsync/internal/data"
)

type ShoppingListInput struct {
	Id       *string `json:"id,omitempty"`
	Name     *string `json:"name,omitempty"`
	Archived *bool   `json:"archived,omitempty"`
}

func (l *ShoppingListInput) ToData(accountId string) data.ShoppingListInputDTO {
	return data.ShoppingListInputDTO{
		LogicalId: l.Id,
		AccountId: &accountId,
		Name:      l.Name,
		Archived:  l.Archived,
	}
}

type ShoppingList struct {
	StorageId  string    `json:"storageId"`
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	Archived   bool      `json:"archived"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
}

func NewShoppingList(list data.ShoppingListDTO) ShoppingList {
	return ShoppingList{
		StorageId:  list.SK,
		Id:         list.LogicalId,
		Name:       list.Name,
		Archived:   list.Archived,
		CreateTime: list.CreateTime,
		UpdateTime: list.UpdateTime,
	}
}
