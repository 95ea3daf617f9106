package data

// MergeLists folds incoming lists into current by logical id. A record from
// incoming replaces the current one only when it is strictly newer and the
// current one has no unsynced local changes. Items are merged the same way
// whichever list record wins. Storage ids known to either side are kept.
// Neither input is modified.
func MergeLists(current []ShoppingList, incoming []ShoppingList) []ShoppingList {
	merged := CloneLists(current)
	for _, other := range CloneLists(incoming) {
		index := FindList(merged, other.LogicalId)
		if index < 0 {
			merged = append(merged, other)
			continue
		}
		mine := merged[index]
		items := mergeItems(mine.Items, other.Items)
		winner := mine
		if other.UpdatedAt.After(mine.UpdatedAt) && !mine.PendingSync {
			winner = other
		}
		if winner.StorageId == nil {
			winner.StorageId = firstStorageId(mine.StorageId, other.StorageId)
		}
		winner.Items = items
		merged[index] = winner
	}
	return merged
}

func mergeItems(current []ShoppingItem, incoming []ShoppingItem) []ShoppingItem {
	merged := append([]ShoppingItem{}, current...)
	for _, other := range incoming {
		index := FindItem(merged, other.LogicalId)
		if index < 0 {
			merged = append(merged, other)
			continue
		}
		mine := merged[index]
		if other.UpdatedAt.After(mine.UpdatedAt) && !mine.PendingSync {
			if other.StorageId == nil {
				other.StorageId = mine.StorageId
			}
			merged[index] = other
		} else if mine.StorageId == nil {
			merged[index].StorageId = other.StorageId
		}
	}
	return merged
}

func firstStorageId(ids ...*string) *string {
	for _, id := range ids {
		if id != nil && *id != "" {
			return id
		}
	}
	return nil
}
