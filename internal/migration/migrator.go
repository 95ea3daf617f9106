// Package migration decides what the in-memory state becomes when the
// identity scope changes, and which guest data has to reach the remote tier.
package migration

import (
	"log/slog"
	"time"

	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/local"
)

type Result struct {
	Scope data.IdentityScope
	// Lists is the raw state, tombstones included, for the new scope.
	Lists []data.ShoppingList
	// Push holds the lists, with their items, that still need to be written
	// remotely under the new scope's account.
	Push []data.ShoppingList
}

type Migrator struct {
	Store  *local.RecordStore[[]data.ShoppingList]
	Logger *slog.Logger
}

func NewMigrator(store *local.RecordStore[[]data.ShoppingList], logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{Store: store, Logger: logger}
}

// Transition moves current, the raw in-memory state of from, into to. It
// never writes under the guest key.
func (m *Migrator) Transition(from data.IdentityScope, to data.IdentityScope, current []data.ShoppingList) Result {
	if from == to {
		return Result{Scope: to, Lists: data.CloneLists(current)}
	}
	if to.IsGuest() {
		m.Logger.Info("returning to guest scope", "from", from.String())
		return Result{Scope: to, Lists: m.Store.ReadRaw(to)}
	}
	if !from.IsGuest() || !m.Store.HasData(current) {
		m.Logger.Info("switching account scope", "from", from.String(), "to", to.String())
		return Result{Scope: to, Lists: m.Store.ReadRaw(to)}
	}
	return m.adoptGuest(to, current)
}

// supersedes mirrors the merge rule: a guest copy replaces the account's
// copy only when strictly newer and the account has nothing unsynced.
func _supersedes(guest time.Time, account time.Time, accountPending bool) bool {
	return guest.After(account) && !accountPending
}

// adoptGuest pushes every live guest record, and every guest tombstone that
// wins over a copy the account already holds. Tombstones the account never
// saw stay local.
func (m *Migrator) adoptGuest(to data.IdentityScope, current []data.ShoppingList) Result {
	existing := m.Store.ReadRaw(to)
	guest := data.CloneLists(current)
	pushed := make(map[string]bool)
	for i := range guest {
		list := &guest[i]
		prior := data.FindList(existing, list.LogicalId)
		if list.Deleted && (prior < 0 || !_supersedes(list.UpdatedAt, existing[prior].UpdatedAt, existing[prior].PendingSync)) {
			continue
		}
		list.PendingSync = true
		for j := range list.Items {
			item := &list.Items[j]
			if item.Deleted {
				if prior < 0 {
					continue
				}
				k := data.FindItem(existing[prior].Items, item.LogicalId)
				if k < 0 || !_supersedes(item.UpdatedAt, existing[prior].Items[k].UpdatedAt, existing[prior].Items[k].PendingSync) {
					continue
				}
			}
			item.PendingSync = true
			pushed[item.LogicalId] = true
		}
	}
	merged := data.MergeLists(existing, guest)
	// A failed write is logged by the store; memory stays authoritative.
	m.Store.Write(to, merged)

	var push []data.ShoppingList
	for _, list := range guest {
		if !list.PendingSync {
			continue
		}
		index := data.FindList(merged, list.LogicalId)
		if index < 0 {
			continue
		}
		pending := merged[index]
		items := make([]data.ShoppingItem, 0, len(pending.Items))
		for _, item := range pending.Items {
			if pushed[item.LogicalId] || !item.Deleted {
				items = append(items, item)
			}
		}
		pending.Items = items
		push = append(push, pending)
	}
	m.Logger.Info("migrated guest data", "to", to.String(), "lists", len(push))
	return Result{Scope: to, Lists: merged, Push: data.CloneLists(push)}
}
