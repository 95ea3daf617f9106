package data

type Tombstoned interface {
	IsDeleted() bool
}

// FilterLive drops soft-deleted records and keeps the order of the rest.
func FilterLive[T Tombstoned](records []T) []T {
	live := make([]T, 0, len(records))
	for _, record := range records {
		if !record.IsDeleted() {
			live = append(live, record)
		}
	}
	return live
}

// FilterLists applies FilterLive to the lists and to each surviving list's
// items. The input is not modified.
func FilterLists(lists []ShoppingList) []ShoppingList {
	live := FilterLive(lists)
	for i := range live {
		live[i].Items = FilterLive(live[i].Items)
	}
	return live
}
