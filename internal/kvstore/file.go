package kvstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const fileOrigin = "file"

// FileStore keeps one JSON document per key inside a directory. Writes go
// through a temp file and a rename, so watchers only ever see whole values.
type FileStore struct {
	dir     string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	changes chan Change
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	written map[string]string
	closed  bool
}

// OpenFileStore creates the directory if needed and starts watching it.
func OpenFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", dir, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	store := &FileStore{
		dir:     dir,
		watcher: watcher,
		logger:  logger,
		changes: make(chan Change, 64),
		done:    make(chan struct{}),
		written: make(map[string]string),
	}
	store.wg.Add(1)
	go store.processEvents()
	return store, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func keyFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, ".json") {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(base, ".json"))
	if err != nil {
		return "", false
	}
	return key, true
}

func (f *FileStore) Get(key string) (string, bool, error) {
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(b), true, nil
}

func (f *FileStore) Set(key string, value string) error {
	tmp, err := os.CreateTemp(f.dir, ".kv-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", key, err)
	}

	f.mu.Lock()
	f.written[key] = value
	f.mu.Unlock()

	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) Changes() <-chan Change {
	return f.changes
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	close(f.done)
	err := f.watcher.Close()
	f.wg.Wait()
	close(f.changes)
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (f *FileStore) processEvents() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return

		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			change, ok := f.convertEvent(event)
			if !ok {
				continue
			}
			select {
			case f.changes <- change:
			case <-f.done:
				return
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("kv watcher error", "dir", f.dir, "error", err)
		}
	}
}

// convertEvent turns a create or write of a key file into a Change, skipping
// files whose content is exactly what this handle last wrote.
func (f *FileStore) convertEvent(event fsnotify.Event) (Change, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return Change{}, false
	}
	key, ok := keyFromPath(event.Name)
	if !ok {
		return Change{}, false
	}
	b, err := os.ReadFile(event.Name)
	if err != nil {
		return Change{}, false
	}
	value := string(b)

	f.mu.Lock()
	own, wrote := f.written[key]
	f.mu.Unlock()
	if wrote && own == value {
		return Change{}, false
	}
	return Change{Key: key, Value: value, Origin: fileOrigin}, true
}
