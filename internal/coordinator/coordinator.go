// Package coordinator is the entry point the UI layer talks to. Every
// mutation lands in the local record store first and is then replayed against
// the remote tier in the background.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/local"
	"philcali.me/listsync/internal/migration"
	"philcali.me/listsync/internal/remote"
)

type State int32

const (
	Idle State = iota
	Migrating
	Syncing
)

func (s State) String() string {
	switch s {
	case Migrating:
		return "migrating"
	case Syncing:
		return "syncing"
	default:
		return "idle"
	}
}

// Remote is the part of the remote adapter the coordinator drives.
type Remote interface {
	FetchAllRecords(ctx context.Context, userId string) ([]data.ShoppingList, error)
	CreateList(ctx context.Context, userId string, list data.ShoppingList) (remote.Receipt, error)
	UpsertList(ctx context.Context, userId string, list data.ShoppingList) (remote.Receipt, error)
	SoftDeleteList(ctx context.Context, userId string, list data.ShoppingList) (remote.Receipt, error)
	CreateItem(ctx context.Context, userId string, parent data.Identifiers, item data.ShoppingItem) (remote.Receipt, error)
	UpsertItem(ctx context.Context, userId string, parent data.Identifiers, item data.ShoppingItem) (remote.Receipt, error)
	SoftDeleteItem(ctx context.Context, userId string, parent data.Identifiers, item data.ShoppingItem) (remote.Receipt, error)
}

type Option func(*Coordinator)

func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

func WithIdGenerator(newId func() string) Option {
	return func(c *Coordinator) {
		c.newId = newId
	}
}

// WithErrorHandler receives remote errors that have to be shown to the user.
// It is called from background goroutines.
func WithErrorHandler(onError func(error)) Option {
	return func(c *Coordinator) {
		c.onError = onError
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithSingletonList names the list every account shares across devices.
// EnsureSingletonList creates it under listId when it is missing.
func WithSingletonList(listId string, name string) Option {
	return func(c *Coordinator) {
		c.singletonId = listId
		c.singletonName = name
	}
}

// WithScope starts the coordinator in scope without running a migration, as
// when an earlier session already signed in.
func WithScope(scope data.IdentityScope) Option {
	return func(c *Coordinator) {
		c.scope = scope
	}
}

type Coordinator struct {
	store     *local.RecordStore[[]data.ShoppingList]
	remote    Remote
	migrator  *migration.Migrator
	logger    *slog.Logger
	clock     func() time.Time
	newId     func() string
	onError   func(error)
	queue     *keyedQueue
	migrating atomic.Bool

	singletonId   string
	singletonName string

	// gate orders migrations against mutations; mu guards the fields below.
	gate  sync.Mutex
	mu    sync.Mutex
	scope data.IdentityScope
	lists []data.ShoppingList
}

// New loads the starting scope from store. remote may be nil, in which case
// nothing leaves the local tier.
func New(store *local.RecordStore[[]data.ShoppingList], remoteTier Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		remote: remoteTier,
		logger: slog.Default(),
		clock:  time.Now,
		newId:  uuid.NewString,
		queue:  newKeyedQueue(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.onError == nil {
		c.onError = func(err error) {
			c.logger.Error("remote store rejected a change", "error", err)
		}
	}
	c.migrator = migration.NewMigrator(store, c.logger)
	c.lists = store.ReadRaw(c.scope)
	return c
}

func (c *Coordinator) State() State {
	if c.migrating.Load() {
		return Migrating
	}
	if c.queue.Busy() {
		return Syncing
	}
	return Idle
}

func (c *Coordinator) Scope() data.IdentityScope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scope
}

// Lists is the live view of the active scope.
func (c *Coordinator) Lists() []data.ShoppingList {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view()
}

func (c *Coordinator) view() []data.ShoppingList {
	return data.FilterLists(data.CloneLists(c.lists))
}

// Wait blocks until all dispatched remote work has settled.
func (c *Coordinator) Wait() {
	c.queue.Wait()
}

// SwitchScope is the identity change entry point. Mutations issued while it
// runs wait for it to finish.
func (c *Coordinator) SwitchScope(ctx context.Context, scope data.IdentityScope) []data.ShoppingList {
	c.gate.Lock()
	defer c.gate.Unlock()
	c.migrating.Store(true)
	defer c.migrating.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()
	result := c.migrator.Transition(c.scope, scope, c.lists)
	c.scope = result.Scope
	c.lists = result.Lists
	for _, list := range result.Push {
		c.dispatch(scope, task{op: opUpsert, listId: list.LogicalId})
		for _, item := range list.Items {
			c.dispatch(scope, task{op: opUpsert, listId: list.LogicalId, itemId: item.LogicalId})
		}
	}
	return c.view()
}

// Run follows the identity provider until identities closes or ctx ends.
// Signing in also pulls the account's remote lists.
func (c *Coordinator) Run(ctx context.Context, identities <-chan data.IdentityScope) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case scope, ok := <-identities:
			if !ok {
				return nil
			}
			c.SwitchScope(ctx, scope)
			if scope.IsGuest() {
				continue
			}
			if _, err := c.Pull(ctx); err != nil {
				c.logger.Warn("pull after sign in failed", "scope", scope.String(), "error", err)
				continue
			}
			c.EnsureSingletonList()
		}
	}
}

// ApplyExternal adopts a value another context wrote to the active scope's
// key. Values for other keys are ignored. It reports whether state changed.
func (c *Coordinator) ApplyExternal(key string, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key != c.store.Key(c.scope) {
		return false
	}
	lists, err := c.store.Decode(value)
	if err != nil {
		c.logger.Warn("ignoring malformed external change", "key", key, "error", err)
		return false
	}
	c.lists = lists
	return true
}

// Pull merges the account's remote lists into the active scope. Remote
// tombstones take part in the merge so deletions made elsewhere win when
// they are newer.
func (c *Coordinator) Pull(ctx context.Context) ([]data.ShoppingList, error) {
	scope := c.Scope()
	if scope.IsGuest() || c.remote == nil {
		return c.Lists(), nil
	}
	fetched, err := c.remote.FetchAllRecords(ctx, scope.UserId())
	if err != nil {
		return c.Lists(), err
	}
	c.gate.Lock()
	defer c.gate.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scope != scope {
		return c.view(), nil
	}
	c.lists = data.MergeLists(c.lists, fetched)
	c.store.Write(c.scope, c.lists)
	return c.view(), nil
}

// EnsureSingletonList adds the shared list to an account scope that has no
// record of it, tombstones included, and queues its remote create. Pull first
// so a copy another device made is adopted rather than shadowed.
func (c *Coordinator) EnsureSingletonList() []data.ShoppingList {
	c.gate.Lock()
	defer c.gate.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.singletonId == "" || c.scope.IsGuest() || c.remote == nil {
		return c.view()
	}
	if data.FindList(c.lists, c.singletonId) >= 0 {
		return c.view()
	}
	now := c.stamp(time.Time{})
	c.lists = append(data.CloneLists(c.lists), data.ShoppingList{
		LogicalId:   c.singletonId,
		Name:        c.singletonName,
		PendingSync: true,
		CreatedAt:   now,
		UpdatedAt:   now,
		Items:       []data.ShoppingItem{},
	})
	c.store.Write(c.scope, c.lists)
	c.dispatch(c.scope, task{op: opCreate, listId: c.singletonId})
	c.logger.Info("seeded shared list", "scope", c.scope.String(), "logicalId", c.singletonId)
	return c.view()
}

// RetryPending re-dispatches every record whose last remote write was
// deferred and returns how many were queued.
func (c *Coordinator) RetryPending(ctx context.Context) int {
	c.gate.Lock()
	defer c.gate.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scope.IsGuest() || c.remote == nil {
		return 0
	}
	count := 0
	for _, list := range c.lists {
		if list.PendingSync {
			c.dispatch(c.scope, task{op: opUpsert, listId: list.LogicalId})
			count++
		}
		for _, item := range list.Items {
			if item.PendingSync {
				c.dispatch(c.scope, task{op: opUpsert, listId: list.LogicalId, itemId: item.LogicalId})
				count++
			}
		}
	}
	if count > 0 {
		c.logger.Info("retrying pending remote writes", "scope", c.scope.String(), "count", count)
	}
	return count
}
