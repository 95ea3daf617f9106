package data

// CloneLists deep copies lists and their items so callers can hand out views
// without sharing backing arrays with the owner's state.
func CloneLists(lists []ShoppingList) []ShoppingList {
	if lists == nil {
		return []ShoppingList{}
	}
	out := make([]ShoppingList, len(lists))
	for i, list := range lists {
		out[i] = list
		out[i].StorageId = cloneString(list.StorageId)
		out[i].Items = make([]ShoppingItem, len(list.Items))
		for j, item := range list.Items {
			out[i].Items[j] = item
			out[i].Items[j].StorageId = cloneString(item.StorageId)
			out[i].Items[j].PhotoURL = cloneString(item.PhotoURL)
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// FindList returns the index of the list with the logical id, or -1.
func FindList(lists []ShoppingList, logicalId string) int {
	for i, list := range lists {
		if list.LogicalId == logicalId {
			return i
		}
	}
	return -1
}

// FindItem returns the index of the item with the logical id, or -1.
func FindItem(items []ShoppingItem, logicalId string) int {
	for i, item := range items {
		if item.LogicalId == logicalId {
			return i
		}
	}
	return -1
}

// NextPosition is one past the highest position ever used in the list,
// tombstoned items included, so positions are never reused.
func NextPosition(items []ShoppingItem) int {
	next := 0
	for _, item := range items {
		if item.Position >= next {
			next = item.Position + 1
		}
	}
	return next
}
