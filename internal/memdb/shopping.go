package memdb

import (
	"time"

	"philcali.me/listsync/internal/data"
)

type Lists = Collection[data.ShoppingListDTO, data.ShoppingListInputDTO]

type Items = Collection[data.ShoppingItemDTO, data.ShoppingItemInputDTO]

func NewShoppingLists() *Lists {
	lists := NewCollection[data.ShoppingListDTO, data.ShoppingListInputDTO]("ShoppingList")
	lists.GetSK = func(sld data.ShoppingListDTO) string {
		return sld.SK
	}
	lists.OnCreate = func(slid data.ShoppingListInputDTO, createTime time.Time, pk string, sk string) data.ShoppingListDTO {
		return slid.NewRecord(pk, sk, createTime)
	}
	lists.OnUpdate = func(slid data.ShoppingListInputDTO, sld *data.ShoppingListDTO, updateTime time.Time) {
		slid.ApplyTo(sld)
		sld.UpdateTime = updateTime
	}
	return lists
}

func NewShoppingItems() *Items {
	items := NewCollection[data.ShoppingItemDTO, data.ShoppingItemInputDTO]("ShoppingItem")
	items.GetSK = func(sid data.ShoppingItemDTO) string {
		return sid.SK
	}
	items.OnCreate = func(siid data.ShoppingItemInputDTO, createTime time.Time, pk string, sk string) data.ShoppingItemDTO {
		return siid.NewRecord(pk, sk, createTime)
	}
	items.OnUpdate = func(siid data.ShoppingItemInputDTO, sid *data.ShoppingItemDTO, updateTime time.Time) {
		siid.ApplyTo(sid)
		sid.UpdateTime = updateTime
	}
	return items
}
