package kvstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func expectChange(t *testing.T, changes <-chan Change, key string, value string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case change, ok := <-changes:
			if !ok {
				t.Fatalf("Change feed closed before %s arrived", key)
			}
			if change.Key == key && change.Value == value {
				return
			}
		case <-timeout:
			t.Fatalf("Timed out waiting for %s=%s", key, value)
		}
	}
}

func expectNoChange(t *testing.T, changes <-chan Change) {
	t.Helper()
	select {
	case change := <-changes:
		t.Fatalf("Expected no change, got %v", change)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryStore(t *testing.T) {
	backend := NewMemoryBackend()
	tabA := backend.Open()
	tabB := backend.Open()
	t.Cleanup(tabA.Close)
	t.Cleanup(tabB.Close)

	t.Run("missing key", func(t *testing.T) {
		if _, ok, err := tabA.Get("nothing"); ok || err != nil {
			t.Fatalf("Expected a miss, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("shared values, foreign notifications", func(t *testing.T) {
		if err := tabA.Set("lists_guest", "[]"); err != nil {
			t.Fatalf("Failed to set: %v", err)
		}
		value, ok, err := tabB.Get("lists_guest")
		if err != nil || !ok || value != "[]" {
			t.Fatalf("Expected tab B to read the value, got %q %v %v", value, ok, err)
		}
		expectChange(t, tabB.Changes(), "lists_guest", "[]")
		expectNoChange(t, tabA.Changes())
	})

	t.Run("quota", func(t *testing.T) {
		backend.SetQuota(32)
		defer backend.SetQuota(0)
		err := tabA.Set("big", "0123456789012345678901234567890123456789")
		if !errors.Is(err, ErrQuotaExceeded) {
			t.Fatalf("Expected quota error, got %v", err)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	first, err := OpenSQLite(ctx, path, nil)
	if err != nil {
		t.Fatalf("Failed to open first handle: %v", err)
	}
	t.Cleanup(func() { first.Close() })
	second, err := OpenSQLite(ctx, path, nil)
	if err != nil {
		t.Fatalf("Failed to open second handle: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	t.Run("round trip", func(t *testing.T) {
		if err := first.Set("lists_guest", `[{"id":"a"}]`); err != nil {
			t.Fatalf("Failed to set: %v", err)
		}
		if err := first.Set("lists_guest", `[{"id":"b"}]`); err != nil {
			t.Fatalf("Failed to overwrite: %v", err)
		}
		value, ok, err := second.Get("lists_guest")
		if err != nil || !ok || value != `[{"id":"b"}]` {
			t.Fatalf("Unexpected read %q %v %v", value, ok, err)
		}
		if _, ok, err := second.Get("missing"); ok || err != nil {
			t.Fatalf("Expected a miss, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("poll skips own writes", func(t *testing.T) {
		if err := first.Poll(ctx); err != nil {
			t.Fatalf("Failed to poll: %v", err)
		}
		expectNoChange(t, first.Changes())

		if err := second.Poll(ctx); err != nil {
			t.Fatalf("Failed to poll: %v", err)
		}
		expectChange(t, second.Changes(), "lists_guest", `[{"id":"b"}]`)
	})

	t.Run("poll resumes after cursor", func(t *testing.T) {
		if err := second.Poll(ctx); err != nil {
			t.Fatalf("Failed to poll: %v", err)
		}
		expectNoChange(t, second.Changes())

		if err := second.Set("lists_auth_u1", "[]"); err != nil {
			t.Fatalf("Failed to set: %v", err)
		}
		if err := first.Poll(ctx); err != nil {
			t.Fatalf("Failed to poll: %v", err)
		}
		expectChange(t, first.Changes(), "lists_auth_u1", "[]")
	})
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	first, err := OpenFileStore(dir, nil)
	if err != nil {
		t.Fatalf("Failed to open first handle: %v", err)
	}
	t.Cleanup(func() { first.Close() })
	second, err := OpenFileStore(dir, nil)
	if err != nil {
		t.Fatalf("Failed to open second handle: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	t.Run("round trip with escaped keys", func(t *testing.T) {
		key := "lists_auth_google/123"
		if err := first.Set(key, `{"v":1}`); err != nil {
			t.Fatalf("Failed to set: %v", err)
		}
		value, ok, err := second.Get(key)
		if err != nil || !ok || value != `{"v":1}` {
			t.Fatalf("Unexpected read %q %v %v", value, ok, err)
		}
		expectChange(t, second.Changes(), key, `{"v":1}`)
	})

	t.Run("missing key", func(t *testing.T) {
		if _, ok, err := first.Get("missing"); ok || err != nil {
			t.Fatalf("Expected a miss, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("key from path", func(t *testing.T) {
		if _, ok := keyFromPath(filepath.Join(dir, ".kv-123.tmp")); ok {
			t.Fatal("Expected temp files to be ignored")
		}
		key, ok := keyFromPath(filepath.Join(dir, "lists_guest.json"))
		if !ok || key != "lists_guest" {
			t.Fatalf("Expected lists_guest, got %s", key)
		}
	})
}
