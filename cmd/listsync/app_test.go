package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"philcali.me/listsync/internal/config"
	"philcali.me/listsync/internal/coordinator"
	"philcali.me/listsync/internal/data"
)

func testConfig(t *testing.T, backend string) config.Config {
	t.Helper()
	v := config.New()
	v.Set("local.backend", backend)
	v.Set("local.path", filepath.Join(t.TempDir(), "listsync.db"))
	v.Set("remote.backend", config.RemoteMemory)
	cfg, err := config.Load(v, "")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAppSession(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.LocalSQLite)

	app, err := NewApp(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("Failed to open app: %v", err)
	}
	if !app.Identity().IsGuest() {
		t.Fatalf("Expected a fresh store to start as guest, got %s", app.Identity())
	}
	if _, err := app.Coordinator.CreateList("Groceries"); err != nil {
		t.Fatalf("Failed to create list: %v", err)
	}
	lists, err := app.SignIn(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to sign in: %v", err)
	}
	if len(lists) != 1 || lists[0].Name != "Groceries" {
		t.Fatalf("Expected the guest list to move into the account, got %v", lists)
	}
	app.Close()

	reopened, err := NewApp(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("Failed to reopen app: %v", err)
	}
	defer reopened.Close()
	if scope := reopened.Coordinator.Scope(); scope != data.Authenticated("user-1") {
		t.Fatalf("Expected the saved identity, got %s", scope)
	}
	if lists := reopened.Coordinator.Lists(); len(lists) != 1 {
		t.Fatalf("Expected the account lists after reopening, got %v", lists)
	}

	lists, err = reopened.SignOut(ctx)
	if err != nil {
		t.Fatalf("Failed to sign out: %v", err)
	}
	if len(lists) != 0 || !reopened.Identity().IsGuest() {
		t.Fatalf("Expected an empty guest scope after sign out, got %v", lists)
	}
}

func TestAppWithoutRemote(t *testing.T) {
	cfg := testConfig(t, config.LocalMemory)
	cfg.Remote.Backend = config.RemoteNone
	app, err := NewApp(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("Failed to open app: %v", err)
	}
	defer app.Close()
	if _, err := app.SignIn(context.Background(), "user-1"); err != nil {
		t.Fatalf("Expected sign in to work locally, got %v", err)
	}
	lists, err := app.Coordinator.CreateList("Hardware")
	if err != nil {
		t.Fatalf("Failed to create list: %v", err)
	}
	app.Coordinator.Wait()
	if len(lists) != 1 || lists[0].PendingSync {
		t.Fatalf("Expected a local only list without a remote store, got %v", lists)
	}
}

func TestAppSharedList(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.LocalMemory)
	cfg.Remote.SingletonListId = "welcome"
	app, err := NewApp(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatalf("Failed to open app: %v", err)
	}
	defer app.Close()
	if lists := app.Coordinator.EnsureSingletonList(); len(lists) != 0 {
		t.Fatalf("Expected no shared list for a guest, got %v", lists)
	}
	lists, err := app.SignIn(ctx, "user-1")
	if err != nil {
		t.Fatalf("Failed to sign in: %v", err)
	}
	if len(lists) != 1 || lists[0].LogicalId != "welcome" || lists[0].Name != "Shared" {
		t.Fatalf("Expected the shared list after sign in, got %v", lists)
	}
	lists, err = app.Sync(ctx)
	if err != nil || len(lists) != 1 {
		t.Fatalf("Expected syncing again to keep one shared list, got %v %v", lists, err)
	}
	if lists[0].StorageId == nil || lists[0].PendingSync {
		t.Fatalf("Expected the shared list to be settled, got %+v", lists[0])
	}
}

func TestFindAndPrint(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t, config.LocalMemory), quietLogger())
	if err != nil {
		t.Fatalf("Failed to open app: %v", err)
	}
	defer app.Close()
	c := app.Coordinator
	lists, _ := c.CreateList("Groceries")
	groceries := lists[0]
	lists, _ = c.CreateItem(groceries.LogicalId, coordinator.ItemInput{Name: "Milk", Quantity: 2, Category: "Dairy"})
	lists, _ = c.CreateItem(groceries.LogicalId, coordinator.ItemInput{Name: "Eggs"})

	t.Run("find", func(t *testing.T) {
		list, err := findList(lists, "groceries")
		if err != nil || list.LogicalId != groceries.LogicalId {
			t.Fatalf("Expected a case-insensitive name match, got %v %v", list, err)
		}
		if _, err := findList(lists, "hardware"); err == nil {
			t.Fatal("Expected an unknown list to fail")
		}
		item, err := findItem(list, "EGGS")
		if err != nil || item.Position != 1 {
			t.Fatalf("Expected eggs at position 1, got %v %v", item, err)
		}
		if _, err := findItem(list, item.LogicalId); err != nil {
			t.Fatalf("Expected lookup by id, got %v", err)
		}
	})

	t.Run("print", func(t *testing.T) {
		var out bytes.Buffer
		printLists(&out, lists, false)
		text := out.String()
		for _, expected := range []string{"Groceries [", "0. [ ] Milk x2 (Dairy)", "1. [ ] Eggs ["} {
			if !strings.Contains(text, expected) {
				t.Fatalf("Expected %q in:\n%s", expected, text)
			}
		}
		out.Reset()
		printLists(&out, nil, false)
		if strings.TrimSpace(out.String()) != "No lists." {
			t.Fatalf("Unexpected empty output %q", out.String())
		}
	})
}
