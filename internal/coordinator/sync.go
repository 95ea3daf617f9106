package coordinator

import (
	"context"
	"fmt"

	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/exceptions"
	"philcali.me/listsync/internal/remote"
)

type op int

const (
	opCreate op = iota
	opUpsert
	opDelete
)

// task names a record rather than carrying it. The record is read back from
// the scope's state when the task runs, so it always sends the latest local
// version along with any storage id an earlier task assigned.
type task struct {
	op     op
	listId string
	itemId string
}

func (t task) kind() string {
	if t.itemId == "" {
		return remote.KindList
	}
	return remote.KindItem
}

func (t task) logicalId() string {
	if t.itemId == "" {
		return t.listId
	}
	return t.itemId
}

// dispatch queues remote work behind everything else touching the same
// list. Guest scopes have no remote presence. Callers hold mu.
func (c *Coordinator) dispatch(scope data.IdentityScope, t task) {
	if scope.IsGuest() || c.remote == nil {
		return
	}
	c.queue.Enqueue(t.listId, func() {
		c.run(scope, t)
	})
}

// snapshot returns a copy of the raw state of scope. Callers hold mu.
func (c *Coordinator) snapshot(scope data.IdentityScope) []data.ShoppingList {
	if scope == c.scope {
		return data.CloneLists(c.lists)
	}
	return c.store.ReadRaw(scope)
}

func (c *Coordinator) lookup(scope data.IdentityScope, t task) (data.ShoppingList, data.ShoppingItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lists := c.snapshot(scope)
	index := data.FindList(lists, t.listId)
	if index < 0 {
		return data.ShoppingList{}, data.ShoppingItem{}, false
	}
	if t.itemId == "" {
		return lists[index], data.ShoppingItem{}, true
	}
	itemIndex := data.FindItem(lists[index].Items, t.itemId)
	if itemIndex < 0 {
		return data.ShoppingList{}, data.ShoppingItem{}, false
	}
	return lists[index], lists[index].Items[itemIndex], true
}

func (c *Coordinator) send(ctx context.Context, userId string, t task, list data.ShoppingList, item data.ShoppingItem) (remote.Receipt, error) {
	if t.itemId == "" {
		switch {
		case t.op == opDelete:
			return c.remote.SoftDeleteList(ctx, userId, list)
		case t.op == opCreate && !list.Ids().HasStorageId():
			return c.remote.CreateList(ctx, userId, list)
		default:
			return c.remote.UpsertList(ctx, userId, list)
		}
	}
	parent := list.Ids()
	switch {
	case t.op == opDelete:
		return c.remote.SoftDeleteItem(ctx, userId, parent, item)
	case t.op == opCreate && !item.Ids().HasStorageId():
		return c.remote.CreateItem(ctx, userId, parent, item)
	default:
		return c.remote.UpsertItem(ctx, userId, parent, item)
	}
}

// run performs one remote write. Dispatched work is not cancellable, so it
// runs on its own context.
func (c *Coordinator) run(scope data.IdentityScope, t task) {
	list, item, ok := c.lookup(scope, t)
	if !ok {
		c.logger.Debug("record vanished before remote write", "kind", t.kind(), "logicalId", t.logicalId())
		return
	}
	receipt, err := c.send(context.Background(), scope.UserId(), t, list, item)
	if err != nil {
		if exceptions.IsSurfaced(err) {
			c.onError(fmt.Errorf("sync %s %s: %w", t.kind(), t.logicalId(), err))
		} else {
			c.logger.Warn("remote write failed", "kind", t.kind(), "logicalId", t.logicalId(), "error", err)
		}
		c.writeBack(scope, t, remote.Receipt{})
		return
	}
	c.writeBack(scope, t, receipt)
}

// writeBack records the outcome of a remote write in the scope the mutation
// was issued in, whether or not that scope is still active.
func (c *Coordinator) writeBack(scope data.IdentityScope, t task, receipt remote.Receipt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lists := c.snapshot(scope)
	index := data.FindList(lists, t.listId)
	if index < 0 {
		return
	}
	var storageId **string
	var pending *bool
	if t.itemId == "" {
		storageId, pending = &lists[index].StorageId, &lists[index].PendingSync
	} else {
		itemIndex := data.FindItem(lists[index].Items, t.itemId)
		if itemIndex < 0 {
			return
		}
		storageId, pending = &lists[index].Items[itemIndex].StorageId, &lists[index].Items[itemIndex].PendingSync
	}
	changed := *pending != !receipt.Durable
	*pending = !receipt.Durable
	if receipt.Durable && receipt.Id != "" && (*storageId == nil || **storageId != receipt.Id) {
		id := receipt.Id
		*storageId = &id
		changed = true
	}
	if !changed {
		return
	}
	if scope == c.scope {
		c.lists = lists
	}
	c.store.Write(scope, lists)
}
