package coordinator

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/exceptions"
)

type ListChanges struct {
	Name     *string
	Archived *bool
}

type ItemInput struct {
	Name     string
	Quantity float32
	Category string
	PhotoURL *string
}

type ItemChanges struct {
	Name      *string
	Quantity  *float32
	Category  *string
	Completed *bool
	Position  *int
	PhotoURL  *string
}

// stamp never moves a timestamp backwards.
func (c *Coordinator) stamp(previous time.Time) time.Time {
	now := c.clock().UTC()
	if now.Before(previous) {
		return previous
	}
	return now
}

// mutate applies a change to a copy of the raw state, persists it, and
// dispatches the remote work it produced. It waits for any migration in
// progress so the write lands under the scope that is about to be active.
func (c *Coordinator) mutate(apply func(lists []data.ShoppingList, pending bool) ([]data.ShoppingList, []task, error)) ([]data.ShoppingList, error) {
	c.gate.Lock()
	defer c.gate.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	next, tasks, err := apply(data.CloneLists(c.lists), !c.scope.IsGuest() && c.remote != nil)
	if err != nil {
		return c.view(), err
	}
	c.lists = next
	// Failures are logged by the store; memory stays authoritative.
	c.store.Write(c.scope, next)
	for _, t := range tasks {
		c.dispatch(c.scope, t)
	}
	return c.view(), nil
}

func _liveList(lists []data.ShoppingList, listId string) (int, error) {
	index := slices.IndexFunc(lists, func(list data.ShoppingList) bool {
		return list.LogicalId == listId && !list.Deleted
	})
	if index < 0 {
		return index, exceptions.NotFound("list", listId)
	}
	return index, nil
}

func _liveItem(items []data.ShoppingItem, itemId string) (int, error) {
	index := slices.IndexFunc(items, func(item data.ShoppingItem) bool {
		return item.LogicalId == itemId && !item.Deleted
	})
	if index < 0 {
		return index, exceptions.NotFound("item", itemId)
	}
	return index, nil
}

func _requireName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", exceptions.InvalidInput("name is required")
	}
	return trimmed, nil
}

func (c *Coordinator) CreateList(name string) ([]data.ShoppingList, error) {
	name, err := _requireName(name)
	if err != nil {
		return c.Lists(), err
	}
	return c.mutate(func(lists []data.ShoppingList, pending bool) ([]data.ShoppingList, []task, error) {
		now := c.stamp(time.Time{})
		list := data.ShoppingList{
			LogicalId:   c.newId(),
			Name:        name,
			PendingSync: pending,
			CreatedAt:   now,
			UpdatedAt:   now,
			Items:       []data.ShoppingItem{},
		}
		return append(lists, list), []task{{op: opCreate, listId: list.LogicalId}}, nil
	})
}

func (c *Coordinator) UpdateList(listId string, changes ListChanges) ([]data.ShoppingList, error) {
	if changes.Name != nil {
		name, err := _requireName(*changes.Name)
		if err != nil {
			return c.Lists(), err
		}
		changes.Name = &name
	}
	return c.mutate(func(lists []data.ShoppingList, pending bool) ([]data.ShoppingList, []task, error) {
		index, err := _liveList(lists, listId)
		if err != nil {
			return nil, nil, err
		}
		list := &lists[index]
		if changes.Name != nil {
			list.Name = *changes.Name
		}
		if changes.Archived != nil {
			list.Archived = *changes.Archived
		}
		list.UpdatedAt = c.stamp(list.UpdatedAt)
		list.PendingSync = list.PendingSync || pending
		return lists, []task{{op: opUpsert, listId: listId}}, nil
	})
}

func (c *Coordinator) ArchiveList(listId string, archived bool) ([]data.ShoppingList, error) {
	return c.UpdateList(listId, ListChanges{Archived: &archived})
}

// DuplicateList copies a list and its live items under new logical ids.
func (c *Coordinator) DuplicateList(listId string) ([]data.ShoppingList, error) {
	return c.mutate(func(lists []data.ShoppingList, pending bool) ([]data.ShoppingList, []task, error) {
		index, err := _liveList(lists, listId)
		if err != nil {
			return nil, nil, err
		}
		source := lists[index]
		now := c.stamp(time.Time{})
		copied := data.ShoppingList{
			LogicalId:   c.newId(),
			Name:        fmt.Sprintf("%s (copy)", source.Name),
			PendingSync: pending,
			CreatedAt:   now,
			UpdatedAt:   now,
			Items:       []data.ShoppingItem{},
		}
		tasks := []task{{op: opCreate, listId: copied.LogicalId}}
		items := data.FilterLive(source.Items)
		slices.SortStableFunc(items, func(l, r data.ShoppingItem) int {
			return l.Position - r.Position
		})
		for position, item := range items {
			item.LogicalId = c.newId()
			item.StorageId = nil
			item.ListRef = copied.LogicalId
			item.Position = position
			item.PendingSync = pending
			item.CreatedAt = now
			item.UpdatedAt = now
			copied.Items = append(copied.Items, item)
			tasks = append(tasks, task{op: opCreate, listId: copied.LogicalId, itemId: item.LogicalId})
		}
		return append(lists, copied), tasks, nil
	})
}

func (c *Coordinator) DeleteList(listId string) ([]data.ShoppingList, error) {
	return c.mutate(func(lists []data.ShoppingList, pending bool) ([]data.ShoppingList, []task, error) {
		index, err := _liveList(lists, listId)
		if err != nil {
			return nil, nil, err
		}
		list := &lists[index]
		list.Deleted = true
		list.UpdatedAt = c.stamp(list.UpdatedAt)
		list.PendingSync = list.PendingSync || pending
		return lists, []task{{op: opDelete, listId: listId}}, nil
	})
}

// touch stamps an item and its list with the same time so the list is never
// older than any of its items.
func (c *Coordinator) touch(list *data.ShoppingList, item *data.ShoppingItem) {
	now := c.stamp(list.UpdatedAt)
	if now.Before(item.UpdatedAt) {
		now = item.UpdatedAt
	}
	item.UpdatedAt = now
	list.UpdatedAt = now
}

func (c *Coordinator) CreateItem(listId string, input ItemInput) ([]data.ShoppingList, error) {
	name, err := _requireName(input.Name)
	if err != nil {
		return c.Lists(), err
	}
	if input.Quantity < 0 {
		return c.Lists(), exceptions.InvalidInput("quantity cannot be negative")
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	return c.mutate(func(lists []data.ShoppingList, pending bool) ([]data.ShoppingList, []task, error) {
		index, err := _liveList(lists, listId)
		if err != nil {
			return nil, nil, err
		}
		list := &lists[index]
		item := data.ShoppingItem{
			LogicalId:   c.newId(),
			ListRef:     listId,
			Name:        name,
			Quantity:    input.Quantity,
			Category:    input.Category,
			Position:    data.NextPosition(list.Items),
			PhotoURL:    input.PhotoURL,
			PendingSync: pending,
		}
		c.touch(list, &item)
		item.CreatedAt = item.UpdatedAt
		list.Items = append(list.Items, item)
		return lists, []task{{op: opCreate, listId: listId, itemId: item.LogicalId}}, nil
	})
}

// UpdateItem patches an item. Moving an item to a position held by another
// live item swaps the two.
func (c *Coordinator) UpdateItem(listId string, itemId string, changes ItemChanges) ([]data.ShoppingList, error) {
	if changes.Name != nil {
		name, err := _requireName(*changes.Name)
		if err != nil {
			return c.Lists(), err
		}
		changes.Name = &name
	}
	if changes.Quantity != nil && *changes.Quantity < 0 {
		return c.Lists(), exceptions.InvalidInput("quantity cannot be negative")
	}
	return c.mutate(func(lists []data.ShoppingList, pending bool) ([]data.ShoppingList, []task, error) {
		index, err := _liveList(lists, listId)
		if err != nil {
			return nil, nil, err
		}
		list := &lists[index]
		itemIndex, err := _liveItem(list.Items, itemId)
		if err != nil {
			return nil, nil, err
		}
		item := &list.Items[itemIndex]
		tasks := []task{{op: opUpsert, listId: listId, itemId: itemId}}
		if changes.Position != nil && *changes.Position != item.Position {
			other := slices.IndexFunc(list.Items, func(candidate data.ShoppingItem) bool {
				return !candidate.Deleted && candidate.Position == *changes.Position
			})
			if other < 0 {
				return nil, nil, exceptions.InvalidInput(fmt.Sprintf("position %d is not held by a live item", *changes.Position))
			}
			list.Items[other].Position = item.Position
			list.Items[other].PendingSync = list.Items[other].PendingSync || pending
			c.touch(list, &list.Items[other])
			tasks = append(tasks, task{op: opUpsert, listId: listId, itemId: list.Items[other].LogicalId})
			item.Position = *changes.Position
		}
		if changes.Name != nil {
			item.Name = *changes.Name
		}
		if changes.Quantity != nil {
			item.Quantity = *changes.Quantity
		}
		if changes.Category != nil {
			item.Category = *changes.Category
		}
		if changes.Completed != nil {
			item.Completed = *changes.Completed
		}
		if changes.PhotoURL != nil {
			item.PhotoURL = changes.PhotoURL
		}
		item.PendingSync = item.PendingSync || pending
		c.touch(list, item)
		return lists, tasks, nil
	})
}

func (c *Coordinator) DeleteItem(listId string, itemId string) ([]data.ShoppingList, error) {
	return c.mutate(func(lists []data.ShoppingList, pending bool) ([]data.ShoppingList, []task, error) {
		index, err := _liveList(lists, listId)
		if err != nil {
			return nil, nil, err
		}
		list := &lists[index]
		itemIndex, err := _liveItem(list.Items, itemId)
		if err != nil {
			return nil, nil, err
		}
		item := &list.Items[itemIndex]
		item.Deleted = true
		item.PendingSync = item.PendingSync || pending
		c.touch(list, item)
		return lists, []task{{op: opDelete, listId: listId, itemId: itemId}}, nil
	})
}
