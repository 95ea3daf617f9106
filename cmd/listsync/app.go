package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"philcali.me/listsync/internal/config"
	"philcali.me/listsync/internal/coordinator"
	"philcali.me/listsync/internal/data"
	"philcali.me/listsync/internal/kvstore"
	"philcali.me/listsync/internal/local"
	"philcali.me/listsync/internal/remote"
)

// identityKey holds the signed in scope between invocations. It never
// collides with a list key, which always carries the base key prefix.
const identityKey = "listsync.identity"

type App struct {
	Config      config.Config
	Logger      *slog.Logger
	KV          kvstore.ObservableStore
	Store       *local.RecordStore[[]data.ShoppingList]
	Coordinator *coordinator.Coordinator
	sqlite      *kvstore.SQLiteStore
	closers     []func() error
}

func defaultLocalPath(backend string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	dir = filepath.Join(dir, "listsync")
	if backend == config.LocalSQLite {
		return filepath.Join(dir, "listsync.db")
	}
	return filepath.Join(dir, "kv")
}

func (a *App) openLocal(ctx context.Context) error {
	path := a.Config.Local.Path
	if path == "" && a.Config.Local.Backend != config.LocalMemory {
		path = defaultLocalPath(a.Config.Local.Backend)
	}
	switch a.Config.Local.Backend {
	case config.LocalMemory:
		store := kvstore.NewMemoryBackend().Open()
		a.KV = store
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
	case config.LocalSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		store, err := kvstore.OpenSQLite(ctx, path, a.Logger)
		if err != nil {
			return err
		}
		a.KV = store
		a.sqlite = store
		a.closers = append(a.closers, store.Close)
	case config.LocalFile:
		store, err := kvstore.OpenFileStore(path, a.Logger)
		if err != nil {
			return err
		}
		a.KV = store
		a.closers = append(a.closers, store.Close)
	default:
		return fmt.Errorf("unknown local backend %q", a.Config.Local.Backend)
	}
	return nil
}

func (a *App) openRemote(ctx context.Context) (coordinator.Remote, error) {
	singleton := a.Config.Remote.SingletonListId
	switch a.Config.Remote.Backend {
	case config.RemoteNone:
		return nil, nil
	case config.RemoteMemory:
		adapter, _, _ := remote.NewMemoryAdapter(singleton, a.Logger)
		return adapter, nil
	case config.RemoteDynamoDB:
		return remote.NewDynamoDBAdapter(ctx, remote.SettingsFromConfig(a.Config.Remote), singleton, a.Logger)
	default:
		return nil, fmt.Errorf("unknown remote backend %q", a.Config.Remote.Backend)
	}
}

func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}
	if err := app.openLocal(ctx); err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	remoteTier, err := app.openRemote(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open remote store: %w", err)
	}
	app.Store = local.NewListStore(app.KV, cfg.Local.BaseKey, logger)
	opts := []coordinator.Option{
		coordinator.WithLogger(logger),
		coordinator.WithScope(app.Identity()),
		coordinator.WithErrorHandler(func(err error) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}),
	}
	if cfg.Remote.SingletonListId != "" {
		opts = append(opts, coordinator.WithSingletonList(cfg.Remote.SingletonListId, cfg.Remote.SingletonListName))
	}
	app.Coordinator = coordinator.New(app.Store, remoteTier, opts...)
	return app, nil
}

// Identity returns the scope saved by the last sign in, or the guest scope.
func (a *App) Identity() data.IdentityScope {
	value, ok, err := a.KV.Get(identityKey)
	if err != nil || !ok {
		return data.Guest()
	}
	var scope data.IdentityScope
	if err := json.Unmarshal([]byte(value), &scope); err != nil {
		a.Logger.Warn("ignoring malformed identity", "error", err)
		return data.Guest()
	}
	return scope
}

func (a *App) SaveIdentity(scope data.IdentityScope) error {
	b, err := json.Marshal(scope)
	if err != nil {
		return err
	}
	return a.KV.Set(identityKey, string(b))
}

// SignIn switches to the account, pulls its remote lists and remembers it.
func (a *App) SignIn(ctx context.Context, userId string) ([]data.ShoppingList, error) {
	scope := data.Authenticated(userId)
	a.Coordinator.SwitchScope(ctx, scope)
	if err := a.SaveIdentity(scope); err != nil {
		return nil, err
	}
	return a.Sync(ctx)
}

// Sync pulls the account's remote lists and then seeds the shared list when
// the account has none.
func (a *App) Sync(ctx context.Context) ([]data.ShoppingList, error) {
	lists, err := a.Coordinator.Pull(ctx)
	if err == nil {
		lists = a.Coordinator.EnsureSingletonList()
	}
	a.Coordinator.Wait()
	return lists, err
}

func (a *App) SignOut(ctx context.Context) ([]data.ShoppingList, error) {
	lists := a.Coordinator.SwitchScope(ctx, data.Guest())
	a.Coordinator.Wait()
	return lists, a.SaveIdentity(data.Guest())
}

// Close waits for queued remote writes before releasing the local store.
func (a *App) Close() {
	if a.Coordinator != nil {
		a.Coordinator.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("failed to close local store", "error", err)
		}
	}
	a.closers = nil
}
