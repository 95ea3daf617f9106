// Package kvstore provides the synchronous string key-value stores that back
// the local tier, along with the change feeds other contexts use to observe
// writes they did not make.
package kvstore

import "errors"

var ErrQuotaExceeded = errors.New("kvstore: quota exceeded")

// Store is a synchronous get/set-by-key string store.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key string, value string) error
}

// Change is a write observed from another context. It is never delivered to
// the context that made the write.
type Change struct {
	Key    string
	Value  string
	Origin string
}

type Notifier interface {
	Changes() <-chan Change
}

// ObservableStore is a store whose writes by other contexts can be observed.
type ObservableStore interface {
	Store
	Notifier
}
