package kvstore

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend is storage shared by every MemoryStore opened from it, the
// way browser tabs share one origin's storage.
type MemoryBackend struct {
	mu      sync.RWMutex
	values  map[string]string
	handles map[*MemoryStore]struct{}
	quota   int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values:  make(map[string]string),
		handles: make(map[*MemoryStore]struct{}),
	}
}

// SetQuota limits the total bytes of keys and values. Zero disables the limit.
func (b *MemoryBackend) SetQuota(bytes int) {
	b.mu.Lock()
	b.quota = bytes
	b.mu.Unlock()
}

// Open returns a handle acting as one execution context.
func (b *MemoryBackend) Open() *MemoryStore {
	handle := &MemoryStore{
		backend: b,
		origin:  uuid.NewString(),
		changes: make(chan Change, 64),
	}
	b.mu.Lock()
	b.handles[handle] = struct{}{}
	b.mu.Unlock()
	return handle
}

func (b *MemoryBackend) size(key string, value string) int {
	total := 0
	for k, v := range b.values {
		if k == key {
			continue
		}
		total += len(k) + len(v)
	}
	return total + len(key) + len(value)
}

type MemoryStore struct {
	backend *MemoryBackend
	origin  string
	changes chan Change
}

func (m *MemoryStore) Origin() string {
	return m.origin
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.backend.mu.RLock()
	defer m.backend.mu.RUnlock()
	value, ok := m.backend.values[key]
	return value, ok, nil
}

func (m *MemoryStore) Set(key string, value string) error {
	b := m.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.quota > 0 && b.size(key, value) > b.quota {
		return ErrQuotaExceeded
	}
	b.values[key] = value
	change := Change{Key: key, Value: value, Origin: m.origin}
	for handle := range b.handles {
		if handle == m {
			continue
		}
		select {
		case handle.changes <- change:
		default:
			// Receiver is not keeping up, drop rather than block writers.
		}
	}
	return nil
}

func (m *MemoryStore) Changes() <-chan Change {
	return m.changes
}

// Close detaches the handle and closes its change feed.
func (m *MemoryStore) Close() {
	b := m.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handles[m]; ok {
		delete(b.handles, m)
		close(m.changes)
	}
}
