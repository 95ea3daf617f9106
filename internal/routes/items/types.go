package items

import (
	"time"

	"philcali.me/listsync/internal/data"
)

type ShoppingItemInput struct {
	Id        *string  `json:"id,omitempty"`
	Name      *string  `json:"name,omitempty"`
	Quantity  *float32 `json:"quantity,omitempty"`
	Category  *string  `json:"category,omitempty"`
	Completed *bool    `json:"completed,omitempty"`
	Position  *int     `json:"position,omitempty"`
	PhotoURL  *string  `json:"photoURL,omitempty"`
}

func (i *ShoppingItemInput) ToData(accountId string, listId string) data.ShoppingItemInputDTO {
	return data.ShoppingItemInputDTO{
		LogicalId: i.Id,
		ListRef:   &listId,
		AccountId: &accountId,
		Name:      i.Name,
		Quantity:  i.Quantity,
		Category:  i.Category,
		Completed: i.Completed,
		Position:  i.Position,
		PhotoURL:  i.PhotoURL,
	}
}

type ShoppingItem struct {
	StorageId  string    `json:"storageId"`
	Id         string    `json:"id"`
	ListId     string    `json:"listId"`
	Name       string    `json:"name"`
	Quantity   float32   `json:"quantity"`
	Category   string    `json:"category,omitempty"`
	Completed  bool      `json:"completed"`
	Position   int       `json:"position"`
	PhotoURL   *string   `json:"photoURL,omitempty"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
}

func NewShoppingItem(item data.ShoppingItemDTO) ShoppingItem {
	return ShoppingItem{
		StorageId:  item.SK,
		Id:         item.LogicalId,
		ListId:     item.ListRef,
		Name:       item.Name,
		Quantity:   item.Quantity,
		Category:   item.Category,
		Completed:  item.Completed,
		Position:   item.Position,
		PhotoURL:   item.PhotoURL,
		CreateTime: item.CreateTime,
		UpdateTime: item.UpdateTime,
	}
}
