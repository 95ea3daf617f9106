// Package remote wraps the remote document collections with the write and
// failure policy the local-first sync layer relies on.
package remote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/exceptions"
)

const (
	KindList = "list"
	KindItem = "item"
)

// Receipt reports where a write landed. When Durable is false the write was
// deferred by a transient failure and Id is the record's logical id.
type Receipt struct {
	Id      string
	Durable bool
}

type Adapter struct {
	Lists           data.Repository[data.ShoppingListDTO, data.ShoppingListInputDTO]
	Items           data.Repository[data.ShoppingItemDTO, data.ShoppingItemInputDTO]
	SingletonListId string
	Logger          *slog.Logger
}

func NewAdapter(
	lists data.Repository[data.ShoppingListDTO, data.ShoppingListInputDTO],
	items data.Repository[data.ShoppingItemDTO, data.ShoppingItemInputDTO],
	singletonListId string,
	logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		Lists:           lists,
		Items:           items,
		SingletonListId: singletonListId,
		Logger:          logger,
	}
}

func _listSK(dto data.ShoppingListDTO) string {
	return dto.SK
}

func _itemSK(dto data.ShoppingItemDTO) string {
	return dto.SK
}

// settle applies the transient failure policy: the write is logged and
// reported as deferred instead of failing the caller.
func (a *Adapter) settle(kind string, logicalId string, storageId string, err error) (Receipt, error) {
	if err == nil {
		return Receipt{Id: storageId, Durable: true}, nil
	}
	if exceptions.IsUnavailable(err) {
		a.Logger.Warn("deferring remote write", "kind", kind, "logicalId", logicalId, "error", err)
		return Receipt{Id: logicalId, Durable: false}, nil
	}
	return Receipt{}, fmt.Errorf("remote %s %s: %w", kind, logicalId, err)
}

func _findByLogicalId[T interface{}, I interface{}](ctx context.Context, repo data.Repository[T, I], userId string, logicalId string) ([]T, error) {
	return data.ListAll(ctx, repo, userId, map[string]string{"logicalId": logicalId})
}

// _write updates the record addressed by its preferred id. A missing record
// is looked up by logical id and, when absent, created from the same input.
func _write[T interface{}, I interface{}](ctx context.Context, repo data.Repository[T, I], getSK func(T) string, userId string, ids data.Identifiers, input I) (string, error) {
	record, err := repo.Update(ctx, userId, ids.PreferredId(), input)
	if err == nil {
		return getSK(record), nil
	}
	if !exceptions.IsNotFound(err) {
		return "", err
	}
	found, err := _findByLogicalId(ctx, repo, userId, ids.LogicalId)
	if err != nil {
		return "", err
	}
	if len(found) > 0 {
		record, err = repo.Update(ctx, userId, getSK(found[0]), input)
		if err == nil || !exceptions.IsNotFound(err) {
			return getSK(record), err
		}
	}
	record, err = repo.Create(ctx, userId, input)
	if err != nil {
		return "", err
	}
	return getSK(record), nil
}

func (a *Adapter) listInput(userId string, list data.ShoppingList) data.ShoppingListInputDTO {
	input := data.NewListInput(list)
	input.AccountId = &userId
	return input
}

func (a *Adapter) itemInput(userId string, parent data.Identifiers, item data.ShoppingItem) data.ShoppingItemInputDTO {
	input := data.NewItemInput(item, parent.PreferredId())
	input.AccountId = &userId
	return input
}

// CreateList persists a new list. The singleton list is never created twice
// for the same account.
func (a *Adapter) CreateList(ctx context.Context, userId string, list data.ShoppingList) (Receipt, error) {
	if a.isSingleton(list) {
		return a.ensureList(ctx, userId, list)
	}
	record, err := a.Lists.Create(ctx, userId, a.listInput(userId, list))
	return a.settle(KindList, list.LogicalId, record.SK, err)
}

// ensureList writes the singleton under a storage id derived from the account
// and logical id, so a create racing with another device's fails as a
// conflict instead of adding a second record.
func (a *Adapter) ensureList(ctx context.Context, userId string, list data.ShoppingList) (Receipt, error) {
	found, err := _findByLogicalId(ctx, a.Lists, userId, list.LogicalId)
	if err != nil {
		return a.settle(KindList, list.LogicalId, "", err)
	}
	if len(found) > 0 {
		return Receipt{Id: found[0].SK, Durable: true}, nil
	}
	sk := SingletonStorageId(userId, list.LogicalId)
	input := a.listInput(userId, list)
	input.StorageId = &sk
	_, err = a.Lists.Create(ctx, userId, input)
	if exceptions.IsConflict(err) {
		a.Logger.Debug("singleton list already exists", "userId", userId, "logicalId", list.LogicalId)
		return Receipt{Id: sk, Durable: true}, nil
	}
	return a.settle(KindList, list.LogicalId, sk, err)
}

func SingletonStorageId(userId string, logicalId string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(userId+"/"+logicalId)).String()
}

func (a *Adapter) isSingleton(list data.ShoppingList) bool {
	return a.SingletonListId != "" && list.LogicalId == a.SingletonListId
}

// UpsertList writes the list whether or not the remote tier has seen it,
// which keeps repeated migrations from duplicating lists.
func (a *Adapter) UpsertList(ctx context.Context, userId string, list data.ShoppingList) (Receipt, error) {
	if a.isSingleton(list) && !list.Ids().HasStorageId() {
		receipt, err := a.ensureList(ctx, userId, list)
		if err != nil || !receipt.Durable {
			return receipt, err
		}
		list.StorageId = &receipt.Id
	}
	sk, err := _write(ctx, a.Lists, _listSK, userId, list.Ids(), a.listInput(userId, list))
	return a.settle(KindList, list.LogicalId, sk, err)
}

func (a *Adapter) UpdateList(ctx context.Context, userId string, list data.ShoppingList) (Receipt, error) {
	return a.UpsertList(ctx, userId, list)
}

func (a *Adapter) SoftDeleteList(ctx context.Context, userId string, list data.ShoppingList) (Receipt, error) {
	list.Deleted = true
	return a.UpsertList(ctx, userId, list)
}

func (a *Adapter) CreateItem(ctx context.Context, userId string, parent data.Identifiers, item data.ShoppingItem) (Receipt, error) {
	record, err := a.Items.Create(ctx, userId, a.itemInput(userId, parent, item))
	return a.settle(KindItem, item.LogicalId, record.SK, err)
}

func (a *Adapter) UpsertItem(ctx context.Context, userId string, parent data.Identifiers, item data.ShoppingItem) (Receipt, error) {
	sk, err := _write(ctx, a.Items, _itemSK, userId, item.Ids(), a.itemInput(userId, parent, item))
	return a.settle(KindItem, item.LogicalId, sk, err)
}

func (a *Adapter) UpdateItem(ctx context.Context, userId string, parent data.Identifiers, item data.ShoppingItem) (Receipt, error) {
	return a.UpsertItem(ctx, userId, parent, item)
}

func (a *Adapter) SoftDeleteItem(ctx context.Context, userId string, parent data.Identifiers, item data.ShoppingItem) (Receipt, error) {
	item.Deleted = true
	return a.UpsertItem(ctx, userId, parent, item)
}

// FetchAll rebuilds the account's live lists with their live items.
func (a *Adapter) FetchAll(ctx context.Context, userId string) ([]data.ShoppingList, error) {
	lists, err := a.FetchAllRecords(ctx, userId)
	if err != nil {
		return nil, err
	}
	return data.FilterLists(lists), nil
}

// FetchAllRecords is FetchAll with tombstones kept, so a deletion made on
// another device can win a merge. Items are queried by every reference a list
// may have been written under.
func (a *Adapter) FetchAllRecords(ctx context.Context, userId string) ([]data.ShoppingList, error) {
	records, err := data.ListAll(ctx, a.Lists, userId, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch lists: %w", err)
	}
	refs := make(map[string][]string)
	newest := make(map[string]data.ShoppingListDTO)
	var order []string
	for _, record := range records {
		refs[record.LogicalId] = append(refs[record.LogicalId], record.SK)
		current, ok := newest[record.LogicalId]
		if !ok {
			order = append(order, record.LogicalId)
		}
		if !ok || record.UpdateTime.After(current.UpdateTime) {
			newest[record.LogicalId] = record
		}
	}
	lists := make([]data.ShoppingList, 0, len(order))
	for _, logicalId := range order {
		list := data.NewShoppingList(newest[logicalId])
		items, err := a.fetchItems(ctx, userId, logicalId, refs[logicalId])
		if err != nil {
			return nil, err
		}
		list.Items = items
		lists = append(lists, list)
	}
	slices.SortStableFunc(lists, func(l, r data.ShoppingList) int {
		return l.CreatedAt.Compare(r.CreatedAt)
	})
	return lists, nil
}

func (a *Adapter) fetchItems(ctx context.Context, userId string, logicalId string, storageIds []string) ([]data.ShoppingItem, error) {
	references := append(slices.Clone(storageIds), logicalId)
	slices.Sort(references)
	references = slices.Compact(references)
	newest := make(map[string]data.ShoppingItemDTO)
	for _, ref := range references {
		records, err := data.ListAll(ctx, a.Items, userId, map[string]string{"listRef": ref})
		if err != nil {
			return nil, fmt.Errorf("fetch items of %s: %w", logicalId, err)
		}
		for _, record := range records {
			current, ok := newest[record.LogicalId]
			if !ok || record.UpdateTime.After(current.UpdateTime) {
				newest[record.LogicalId] = record
			}
		}
	}
	items := make([]data.ShoppingItem, 0, len(newest))
	for _, record := range newest {
		items = append(items, data.NewShoppingItem(record, logicalId))
	}
	slices.SortFunc(items, func(l, r data.ShoppingItem) int {
		if l.Position != r.Position {
			return l.Position - r.Position
		}
		return l.CreatedAt.Compare(r.CreatedAt)
	})
	return items, nil
}
