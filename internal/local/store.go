package local

import (
	"encoding/json"
	"log/slog"

	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/exceptions"
	"philcali.me/listsync/internal/kvstore"
)

const DefaultBaseKey = "shopping-lists"

// RecordStore keeps one JSON value per identity scope in a key-value store.
// Reads never fail: missing or malformed values come back as Empty().
type RecordStore[T interface{}] struct {
	KV      kvstore.Store
	BaseKey string
	Filter  func(T) T
	Empty   func() T
	IsEmpty func(T) bool
	Logger  *slog.Logger
}

func NewListStore(kv kvstore.Store, baseKey string, logger *slog.Logger) *RecordStore[[]data.ShoppingList] {
	if baseKey == "" {
		baseKey = DefaultBaseKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore[[]data.ShoppingList]{
		KV:      kv,
		BaseKey: baseKey,
		Filter:  data.FilterLists,
		Empty: func() []data.ShoppingList {
			return []data.ShoppingList{}
		},
		IsEmpty: func(lists []data.ShoppingList) bool {
			return len(lists) == 0
		},
		Logger: logger,
	}
}

func (rs *RecordStore[T]) Key(scope data.IdentityScope) string {
	return data.ResolveKey(rs.BaseKey, scope)
}

// Read returns the live view of the scope's value.
func (rs *RecordStore[T]) Read(scope data.IdentityScope) T {
	return rs.Filter(rs.ReadRaw(scope))
}

// ReadRaw returns the stored value including tombstones, which is what
// mutations must start from so soft deletes survive the next write.
func (rs *RecordStore[T]) ReadRaw(scope data.IdentityScope) T {
	key := rs.Key(scope)
	value, ok, err := rs.KV.Get(key)
	if err != nil {
		rs.Logger.Error("local read failed", "key", key, "error", exceptions.LocalStorage("read", key, err))
		return rs.Empty()
	}
	if !ok {
		return rs.Empty()
	}
	decoded, err := rs.Decode(value)
	if err != nil {
		rs.Logger.Error("discarding malformed local value", "key", key, "error", exceptions.LocalStorage("decode", key, err))
		return rs.Empty()
	}
	return decoded
}

// Write persists the value under the scope's key. Failures are logged and
// returned as a LocalStorageError for inspection; callers are not expected to
// surface them.
func (rs *RecordStore[T]) Write(scope data.IdentityScope, value T) error {
	key := rs.Key(scope)
	b, err := json.Marshal(value)
	if err != nil {
		failure := exceptions.LocalStorage("encode", key, err)
		rs.Logger.Error("local write failed", "key", key, "error", failure)
		return failure
	}
	if err := rs.KV.Set(key, string(b)); err != nil {
		failure := exceptions.LocalStorage("write", key, err)
		rs.Logger.Error("local write failed", "key", key, "error", failure)
		return failure
	}
	return nil
}

func (rs *RecordStore[T]) Decode(value string) (T, error) {
	decoded := rs.Empty()
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		return rs.Empty(), err
	}
	return decoded, nil
}

func (rs *RecordStore[T]) HasData(value T) bool {
	return !rs.IsEmpty(value)
}
