// Package crosstab forwards storage change notifications from other
// processes sharing the local store into the coordinator.
package crosstab

import (
	"context"
	"log/slog"

	"philcali.me/listsync/internal/kvstore"
)

// Target is anything that can adopt an externally written value.
type Target interface {
	ApplyExternal(key string, value string) bool
}

type Listener struct {
	Notifier kvstore.Notifier
	Target   Target
	Logger   *slog.Logger
	// OnApplied, when set, is called after a change replaced the active state.
	OnApplied func(kvstore.Change)
}

func NewListener(notifier kvstore.Notifier, target Target, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{Notifier: notifier, Target: target, Logger: logger}
}

// Run applies changes until ctx ends or the feed closes. The most recent
// change always wins; nothing is merged.
func (l *Listener) Run(ctx context.Context) error {
	changes := l.Notifier.Changes()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if !l.Target.ApplyExternal(change.Key, change.Value) {
				continue
			}
			l.Logger.Debug("applied external change", "key", change.Key, "origin", change.Origin)
			if l.OnApplied != nil {
				l.OnApplied(change)
			}
		}
	}
}
