package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/go-cmp/cmp"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/exceptions"
	"philcali.me/listsync/internal/kvstore"
	"philcali.me/listsync/internal/local"
	"philcali.me/listsync/internal/memdb"
	"philcali.me/listsync/internal/remote"
)

type harness struct {
	backend *kvstore.MemoryBackend
	store   *local.RecordStore[[]data.ShoppingList]
	adapter *remote.Adapter
	lists   *memdb.Lists
	items   *memdb.Items
	errs    chan error
}

func newHarness(t *testing.T) *harness {
	backend := kvstore.NewMemoryBackend()
	adapter, lists, items := remote.NewMemoryAdapter("welcome", nil)
	return &harness{
		backend: backend,
		store:   local.NewListStore(backend.Open(), "", nil),
		adapter: adapter,
		lists:   lists,
		items:   items,
		errs:    make(chan error, 16),
	}
}

func (h *harness) coordinator(opts ...Option) *Coordinator {
	var mu sync.Mutex
	counter := 0
	tick := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	defaults := []Option{
		WithIdGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			counter++
			return fmt.Sprintf("id-%d", counter)
		}),
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick = tick.Add(time.Second)
			return tick
		}),
		WithErrorHandler(func(err error) {
			h.errs <- err
		}),
	}
	return New(h.store, h.adapter, append(defaults, opts...)...)
}

func find(t *testing.T, lists []data.ShoppingList, name string) data.ShoppingList {
	t.Helper()
	for _, list := range lists {
		if list.Name == name {
			return list
		}
	}
	t.Fatalf("No list named %s in %v", name, lists)
	return data.ShoppingList{}
}

func itemNames(list data.ShoppingList) []string {
	names := make([]string, len(list.Items))
	for i, item := range list.Items {
		names[i] = item.Name
	}
	return names
}

func TestGuestSignInScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.coordinator()

	lists, err := c.CreateList("Groceries")
	if err != nil {
		t.Fatalf("Failed to create list: %v", err)
	}
	groceries := find(t, lists, "Groceries")
	if _, err := c.CreateItem(groceries.LogicalId, ItemInput{Name: "Milk", Quantity: 1}); err != nil {
		t.Fatalf("Failed to add milk: %v", err)
	}
	lists, err = c.CreateItem(groceries.LogicalId, ItemInput{Name: "Eggs", Quantity: 2})
	if err != nil {
		t.Fatalf("Failed to add eggs: %v", err)
	}
	guestView := lists
	c.Wait()
	if records := h.lists.Records("user-1"); len(records) != 0 {
		t.Fatalf("Guest data reached the remote tier: %v", records)
	}

	c.SwitchScope(ctx, data.Authenticated("user-1"))
	c.Wait()

	t.Run("authenticated scope holds the guest list", func(t *testing.T) {
		authed := h.store.Read(data.Authenticated("user-1"))
		if len(authed) != 1 || authed[0].LogicalId != groceries.LogicalId {
			t.Fatalf("Unexpected lists %+v", authed)
		}
		if diff := cmp.Diff([]string{"Milk", "Eggs"}, itemNames(authed[0])); diff != "" {
			t.Fatalf("Unexpected items (-want +got):\n%s", diff)
		}
		for _, item := range guestView[0].Items {
			if data.FindItem(authed[0].Items, item.LogicalId) < 0 {
				t.Fatalf("Logical id %s was not preserved", item.LogicalId)
			}
		}
	})

	t.Run("guest scope still has the original", func(t *testing.T) {
		if diff := cmp.Diff(guestView, h.store.Read(data.Guest())); diff != "" {
			t.Fatalf("Guest data changed (-want +got):\n%s", diff)
		}
	})

	t.Run("remote tier received the data", func(t *testing.T) {
		authed := h.store.Read(data.Authenticated("user-1"))
		if authed[0].StorageId == nil || authed[0].PendingSync {
			t.Fatalf("Expected the storage id written back, got %+v", authed[0])
		}
		fetched, err := h.adapter.FetchAll(ctx, "user-1")
		if err != nil || len(fetched) != 1 {
			t.Fatalf("Expected one remote list, got %v %v", fetched, err)
		}
		if diff := cmp.Diff([]string{"Milk", "Eggs"}, itemNames(fetched[0])); diff != "" {
			t.Fatalf("Unexpected remote items (-want +got):\n%s", diff)
		}
	})

	t.Run("signing in again does not duplicate", func(t *testing.T) {
		c.SwitchScope(ctx, data.Guest())
		c.SwitchScope(ctx, data.Authenticated("user-1"))
		c.Wait()
		if records := h.lists.Records("user-1"); len(records) != 1 {
			t.Fatalf("Expected one remote list, got %v", records)
		}
		if records := h.items.Records("user-1"); len(records) != 2 {
			t.Fatalf("Expected two remote items, got %v", records)
		}
	})
}

func TestAuthenticatedDeleteScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.coordinator(WithScope(data.Authenticated("user-1")))

	lists, _ := c.CreateList("Groceries")
	groceries := find(t, lists, "Groceries")
	c.CreateItem(groceries.LogicalId, ItemInput{Name: "Milk", Quantity: 1})
	lists, _ = c.CreateItem(groceries.LogicalId, ItemInput{Name: "Eggs", Quantity: 2})
	eggs := find(t, lists, "Groceries").Items[1]
	c.Wait()

	lists, err := c.DeleteItem(groceries.LogicalId, eggs.LogicalId)
	if err != nil {
		t.Fatalf("Failed to delete eggs: %v", err)
	}
	if diff := cmp.Diff([]string{"Milk"}, itemNames(find(t, lists, "Groceries"))); diff != "" {
		t.Fatalf("Unexpected view (-want +got):\n%s", diff)
	}
	c.Wait()

	if diff := cmp.Diff([]string{"Milk"}, itemNames(h.store.Read(data.Authenticated("user-1"))[0])); diff != "" {
		t.Fatalf("Unexpected local read (-want +got):\n%s", diff)
	}
	stored := h.store.ReadRaw(data.Authenticated("user-1"))[0].Items[1]
	if stored.StorageId == nil {
		t.Fatalf("Expected eggs to carry a storage id, got %+v", stored)
	}
	remoteEggs, err := h.items.Get(ctx, "user-1", *stored.StorageId)
	if err != nil || !remoteEggs.Deleted {
		t.Fatalf("Expected a remote tombstone, got %+v %v", remoteEggs, err)
	}

	t.Run("second device rebuilds without tombstones", func(t *testing.T) {
		other := local.NewListStore(kvstore.NewMemoryBackend().Open(), "", nil)
		device := New(other, h.adapter)
		device.SwitchScope(ctx, data.Authenticated("user-1"))
		pulled, err := device.Pull(ctx)
		if err != nil {
			t.Fatalf("Failed to pull: %v", err)
		}
		if len(pulled) != 1 || pulled[0].LogicalId != groceries.LogicalId {
			t.Fatalf("Unexpected lists %+v", pulled)
		}
		if diff := cmp.Diff([]string{"Milk"}, itemNames(pulled[0])); diff != "" {
			t.Fatalf("Unexpected items (-want +got):\n%s", diff)
		}
	})
}

func TestRemoteDeletesReachOtherDevices(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	var mu sync.Mutex
	remoteTime := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	remoteClock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		remoteTime = remoteTime.Add(time.Second)
		return remoteTime
	}
	h.lists.Clock = remoteClock
	h.items.Clock = remoteClock

	account := data.Authenticated("user-1")
	deviceA := h.coordinator(WithScope(account))
	storeB := local.NewListStore(kvstore.NewMemoryBackend().Open(), "", nil)
	deviceB := New(storeB, h.adapter, WithScope(account))

	lists, _ := deviceA.CreateList("Groceries")
	groceries := find(t, lists, "Groceries")
	deviceA.CreateItem(groceries.LogicalId, ItemInput{Name: "Milk"})
	lists, _ = deviceA.CreateItem(groceries.LogicalId, ItemInput{Name: "Eggs", Quantity: 2})
	eggs := find(t, lists, "Groceries").Items[1]
	deviceA.Wait()

	pulled, err := deviceB.Pull(ctx)
	if err != nil || len(pulled) != 1 {
		t.Fatalf("Expected device B to pull one list, got %v %v", pulled, err)
	}
	if diff := cmp.Diff([]string{"Milk", "Eggs"}, itemNames(pulled[0])); diff != "" {
		t.Fatalf("Unexpected items on device B (-want +got):\n%s", diff)
	}

	t.Run("item delete is pulled", func(t *testing.T) {
		deviceA.DeleteItem(groceries.LogicalId, eggs.LogicalId)
		deviceA.Wait()
		pulled, err := deviceB.Pull(ctx)
		if err != nil || len(pulled) != 1 {
			t.Fatalf("Expected one list on device B, got %v %v", pulled, err)
		}
		if diff := cmp.Diff([]string{"Milk"}, itemNames(pulled[0])); diff != "" {
			t.Fatalf("Unexpected items on device B (-want +got):\n%s", diff)
		}
	})

	t.Run("list delete is pulled", func(t *testing.T) {
		deviceA.DeleteList(groceries.LogicalId)
		deviceA.Wait()
		pulled, err := deviceB.Pull(ctx)
		if err != nil || len(pulled) != 0 {
			t.Fatalf("Expected no lists on device B, got %v %v", pulled, err)
		}
		if lists := deviceB.Lists(); len(lists) != 0 {
			t.Fatalf("Expected device B's view to be empty, got %v", lists)
		}
	})

	t.Run("tombstones are kept locally", func(t *testing.T) {
		raw := storeB.ReadRaw(account)
		if len(raw) != 1 || !raw[0].Deleted {
			t.Fatalf("Expected a list tombstone on device B, got %+v", raw)
		}
		index := data.FindItem(raw[0].Items, eggs.LogicalId)
		if index < 0 || !raw[0].Items[index].Deleted {
			t.Fatalf("Expected an item tombstone for eggs, got %+v", raw[0].Items)
		}
	})
}

func TestSingletonList(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := data.Authenticated("user-1")
	shared := WithSingletonList("welcome", "Shared")
	deviceA := h.coordinator(shared)
	storeB := local.NewListStore(kvstore.NewMemoryBackend().Open(), "", nil)
	deviceB := New(storeB, h.adapter, WithScope(account), shared)

	lists, _ := deviceA.CreateList("Groceries")
	groceries := find(t, lists, "Groceries")
	if lists := deviceA.EnsureSingletonList(); len(lists) != 1 {
		t.Fatalf("Expected guests to get no shared list, got %v", lists)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		deviceA.SwitchScope(ctx, account)
		if _, err := deviceA.Pull(ctx); err != nil {
			t.Errorf("Device A failed to pull: %v", err)
		}
		deviceA.EnsureSingletonList()
	}()
	go func() {
		defer wg.Done()
		if _, err := deviceB.Pull(ctx); err != nil {
			t.Errorf("Device B failed to pull: %v", err)
		}
		deviceB.EnsureSingletonList()
	}()
	wg.Wait()
	deviceA.Wait()
	deviceB.Wait()

	countRecords := func(logicalId string) int {
		count := 0
		for _, record := range h.lists.Records("user-1") {
			if record.LogicalId == logicalId {
				count++
			}
		}
		return count
	}

	t.Run("one remote record", func(t *testing.T) {
		if count := countRecords("welcome"); count != 1 {
			t.Fatalf("Expected one shared list record, got %d in %v", count, h.lists.Records("user-1"))
		}
		if count := countRecords(groceries.LogicalId); count != 1 {
			t.Fatalf("Expected the migrated list once, got %d", count)
		}
	})

	t.Run("both devices hold the same record", func(t *testing.T) {
		rawA := h.store.ReadRaw(account)
		rawB := storeB.ReadRaw(account)
		a, b := data.FindList(rawA, "welcome"), data.FindList(rawB, "welcome")
		if a < 0 || b < 0 {
			t.Fatalf("Expected the shared list on both devices, got %+v and %+v", rawA, rawB)
		}
		if rawA[a].StorageId == nil || rawB[b].StorageId == nil || *rawA[a].StorageId != *rawB[b].StorageId {
			t.Fatalf("Expected one storage id, got %+v and %+v", rawA[a], rawB[b])
		}
		if rawA[a].PendingSync || rawB[b].PendingSync {
			t.Fatal("Expected the shared list to be settled")
		}
	})

	t.Run("ensuring again is a no-op", func(t *testing.T) {
		deviceA.EnsureSingletonList()
		deviceB.Pull(ctx)
		deviceB.EnsureSingletonList()
		deviceA.Wait()
		deviceB.Wait()
		if count := countRecords("welcome"); count != 1 {
			t.Fatalf("Expected one shared list record, got %d", count)
		}
		if lists := deviceB.Lists(); len(lists) != 2 {
			t.Fatalf("Expected device B to see groceries and the shared list, got %v", lists)
		}
	})
}

func TestTimestampsAndPositions(t *testing.T) {
	h := newHarness(t)
	c := h.coordinator()
	lists, _ := c.CreateList("Groceries")
	listId := lists[0].LogicalId
	c.CreateItem(listId, ItemInput{Name: "Milk"})
	lists, _ = c.CreateItem(listId, ItemInput{Name: "Eggs", Quantity: 2})
	milk, eggs := lists[0].Items[0], lists[0].Items[1]

	if milk.Quantity != 1 {
		t.Fatalf("Expected a default quantity of 1, got %v", milk.Quantity)
	}
	if lists[0].UpdatedAt.Before(eggs.UpdatedAt) {
		t.Fatalf("List %v is older than its item %v", lists[0].UpdatedAt, eggs.UpdatedAt)
	}

	t.Run("positions are not reused", func(t *testing.T) {
		c.DeleteItem(listId, eggs.LogicalId)
		lists, _ := c.CreateItem(listId, ItemInput{Name: "Bread"})
		bread := lists[0].Items[1]
		if bread.Position != 2 {
			t.Fatalf("Expected position 2 for bread, got %d", bread.Position)
		}
	})

	t.Run("moving swaps positions", func(t *testing.T) {
		lists := c.Lists()
		bread := lists[0].Items[1]
		position := bread.Position
		lists, err := c.UpdateItem(listId, milk.LogicalId, ItemChanges{Position: &position})
		if err != nil {
			t.Fatalf("Failed to move milk: %v", err)
		}
		if lists[0].Items[0].Position != 2 || lists[0].Items[1].Position != 0 {
			t.Fatalf("Expected swapped positions, got %+v", lists[0].Items)
		}
		tombstoned := 1
		if _, err := c.UpdateItem(listId, milk.LogicalId, ItemChanges{Position: &tombstoned}); !exceptions.IsInvalidInput(err) {
			t.Fatalf("Expected a tombstoned position to be rejected, got %v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		if _, err := c.CreateList("  "); !exceptions.IsInvalidInput(err) {
			t.Fatalf("Expected invalid input, got %v", err)
		}
		if _, err := c.CreateItem("missing", ItemInput{Name: "x"}); !exceptions.IsNotFound(err) {
			t.Fatalf("Expected not found, got %v", err)
		}
		if _, err := c.DeleteItem(listId, eggs.LogicalId); !exceptions.IsNotFound(err) {
			t.Fatalf("Expected deleting a tombstone to be not found, got %v", err)
		}
	})
}

func TestListOperations(t *testing.T) {
	h := newHarness(t)
	c := h.coordinator(WithScope(data.Authenticated("user-1")))
	lists, _ := c.CreateList("Groceries")
	listId := lists[0].LogicalId
	c.CreateItem(listId, ItemInput{Name: "Milk"})
	c.CreateItem(listId, ItemInput{Name: "Eggs"})

	lists, err := c.DuplicateList(listId)
	if err != nil {
		t.Fatalf("Failed to duplicate: %v", err)
	}
	copied := find(t, lists, "Groceries (copy)")
	if copied.LogicalId == listId || len(copied.Items) != 2 || copied.Items[0].ListRef != copied.LogicalId {
		t.Fatalf("Unexpected copy %+v", copied)
	}

	lists, _ = c.ArchiveList(listId, true)
	if !find(t, lists, "Groceries").Archived {
		t.Fatal("Expected the list to be archived")
	}
	name := "Weekly"
	lists, _ = c.UpdateList(listId, ListChanges{Name: &name})
	find(t, lists, "Weekly")

	lists, _ = c.DeleteList(copied.LogicalId)
	if len(lists) != 1 {
		t.Fatalf("Expected the copy to be gone, got %v", lists)
	}
	c.Wait()
	fetched, err := h.adapter.FetchAll(context.Background(), "user-1")
	if err != nil || len(fetched) != 1 || fetched[0].Name != "Weekly" || !fetched[0].Archived {
		t.Fatalf("Unexpected remote state %+v %v", fetched, err)
	}
	if records := h.lists.Records("user-1"); len(records) != 2 {
		t.Fatalf("Expected the deleted copy to remain as a tombstone, got %v", records)
	}
	if c.State() != Idle {
		t.Fatalf("Expected idle after settling, got %s", c.State())
	}
}

func TestDeferredWrites(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.coordinator(WithScope(data.Authenticated("user-1")))
	blocked := exceptions.Unavailable(errors.New("net::ERR_BLOCKED_BY_CLIENT"))
	h.lists.SetFault(func(op string, accountId string) error { return blocked })
	h.items.SetFault(func(op string, accountId string) error { return blocked })

	lists, err := c.CreateList("Groceries")
	if err != nil {
		t.Fatalf("Expected the local write to succeed, got %v", err)
	}
	listId := lists[0].LogicalId
	c.CreateItem(listId, ItemInput{Name: "Milk"})
	c.Wait()

	raw := h.store.ReadRaw(data.Authenticated("user-1"))
	if !raw[0].PendingSync || !raw[0].Items[0].PendingSync || raw[0].StorageId != nil {
		t.Fatalf("Expected pending records without storage ids, got %+v", raw[0])
	}

	h.lists.SetFault(nil)
	h.items.SetFault(nil)
	if count := c.RetryPending(ctx); count != 2 {
		t.Fatalf("Expected two pending records, got %d", count)
	}
	c.Wait()
	raw = h.store.ReadRaw(data.Authenticated("user-1"))
	if raw[0].PendingSync || raw[0].Items[0].PendingSync || raw[0].StorageId == nil {
		t.Fatalf("Expected settled records, got %+v", raw[0])
	}
	if records := h.lists.Records("user-1"); len(records) != 1 {
		t.Fatalf("Expected one remote list, got %v", records)
	}
	if count := c.RetryPending(ctx); count != 0 {
		t.Fatalf("Expected nothing pending, got %d", count)
	}
}

func TestSurfacedErrors(t *testing.T) {
	h := newHarness(t)
	c := h.coordinator(WithScope(data.Authenticated("user-1")))
	h.lists.SetFault(func(op string, accountId string) error {
		return exceptions.Forbidden(errors.New("permission denied"))
	})
	lists, err := c.CreateList("Groceries")
	if err != nil || len(lists) != 1 {
		t.Fatalf("Expected the local write to stand, got %v %v", lists, err)
	}
	c.Wait()
	select {
	case err := <-h.errs:
		if !exceptions.IsSurfaced(err) {
			t.Fatalf("Expected a surfaced error, got %v", err)
		}
	default:
		t.Fatal("Expected the error handler to be called")
	}
	if len(c.Lists()) != 1 {
		t.Fatal("Remote failure rolled back the local change")
	}
}

func TestWriteBackToIssuingScope(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.coordinator(WithScope(data.Authenticated("user-1")))
	release := make(chan struct{})
	h.lists.SetFault(func(op string, accountId string) error {
		<-release
		return nil
	})
	c.CreateList("Groceries")
	c.SwitchScope(ctx, data.Authenticated("user-2"))
	close(release)
	c.Wait()

	if lists := c.Lists(); len(lists) != 0 {
		t.Fatalf("Expected user-2 to see nothing, got %v", lists)
	}
	raw := h.store.ReadRaw(data.Authenticated("user-1"))
	if len(raw) != 1 || raw[0].StorageId == nil || raw[0].PendingSync {
		t.Fatalf("Expected the storage id in user-1's scope, got %+v", raw)
	}
	if len(h.store.ReadRaw(data.Authenticated("user-2"))) != 0 {
		t.Fatal("Write-back leaked into user-2's scope")
	}
}

func TestMutationsWaitForMigration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.coordinator()
	c.CreateList("Groceries")

	c.gate.Lock()
	c.migrating.Store(true)
	if c.State() != Migrating {
		t.Fatalf("Expected migrating, got %s", c.State())
	}
	done := make(chan []data.ShoppingList)
	go func() {
		lists, _ := c.CreateList("Hardware")
		done <- lists
	}()
	select {
	case <-done:
		t.Fatal("Mutation ran during a migration")
	case <-time.After(50 * time.Millisecond):
	}
	c.migrating.Store(false)
	c.gate.Unlock()
	lists := <-done
	if len(lists) != 2 {
		t.Fatalf("Expected both lists, got %v", lists)
	}

	identities := make(chan data.IdentityScope, 1)
	identities <- data.Authenticated("user-1")
	close(identities)
	if err := c.Run(ctx, identities); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	c.Wait()
	if len(h.store.Read(data.Authenticated("user-1"))) != 2 {
		t.Fatal("Expected both lists migrated")
	}
}

func TestApplyExternal(t *testing.T) {
	h := newHarness(t)
	c := h.coordinator()
	other := local.NewListStore(h.backend.Open(), "", nil)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	external := []data.ShoppingList{
		{LogicalId: "from-tab", Name: "Tab", CreatedAt: now, UpdatedAt: now, Items: []data.ShoppingItem{
			{LogicalId: "gone", Name: "Gone", Deleted: true},
		}},
	}
	other.Write(data.Guest(), external)
	value, _, _ := h.backend.Open().Get(other.Key(data.Guest()))

	if c.ApplyExternal(other.Key(data.Authenticated("user-1")), value) {
		t.Fatal("Applied a change for an inactive key")
	}
	if c.ApplyExternal(other.Key(data.Guest()), "{broken") {
		t.Fatal("Applied a malformed change")
	}
	if !c.ApplyExternal(other.Key(data.Guest()), value) {
		t.Fatal("Expected the change to apply")
	}
	lists := c.Lists()
	if len(lists) != 1 || lists[0].LogicalId != "from-tab" || len(lists[0].Items) != 0 {
		t.Fatalf("Unexpected view %+v", lists)
	}
	photo := aws.String("https://example.com/milk.png")
	if _, err := c.CreateItem("from-tab", ItemInput{Name: "Milk", PhotoURL: photo}); err != nil {
		t.Fatalf("Failed to add to the external list: %v", err)
	}
}
