package ingest

import (
	"context"
	"log/slog"

	"github.com/markdownkeeper/markdownkeeper/internal/store"
	"github.com/markdownkeeper/markdownkeeper/internal/watcher"
)

// StoreSnapshot derives a watcher.Snapshot from the store's current
// Document rows, used as the "last persisted snapshot" restart safety
// diffs against — the store itself is the durable record of what was
// indexed before the previous shutdown, not a separate snapshot file.
func (e *Engine) StoreSnapshot(ctx context.Context) (watcher.Snapshot, error) {
	docs, err := e.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := make(watcher.Snapshot, len(docs))
	for _, d := range docs {
		snapshot[d.Path] = d.ModifiedAt
	}
	return snapshot, nil
}

// Reconcile runs one snapshot/diff pass against the store's last known
// state, enqueues the diff, and drains it. The `watch` CLI command calls
// it once at startup, before the live watcher starts.
func (e *Engine) Reconcile(ctx context.Context, opts watcher.Options) (store.DrainCounters, error) {
	return e.reconcileAgainst(ctx, opts, nil)
}

func (e *Engine) reconcileAgainst(ctx context.Context, opts watcher.Options, previous watcher.Snapshot) (store.DrainCounters, error) {
	if previous == nil {
		snap, err := e.StoreSnapshot(ctx)
		if err != nil {
			return store.DrainCounters{}, err
		}
		previous = snap
	}

	events, _, err := watcher.WatchOnce(e.roots, e.base, opts, previous)
	if err != nil {
		return store.DrainCounters{}, err
	}

	var changed, deleted []string
	for _, ev := range events {
		if ev.Operation == watcher.OpDelete {
			deleted = append(deleted, ev.Path)
		} else {
			changed = append(changed, ev.Path)
		}
	}

	if err := e.Enqueue(ctx, changed, deleted); err != nil {
		return store.DrainCounters{}, err
	}
	return e.Drain(ctx)
}

// RunLive starts live, enqueueing and draining every debounced batch,
// and blocks until ctx is cancelled. onDrain, if non-nil, is called with
// the counters from each drain (used by the CLI to log progress).
func (e *Engine) RunLive(ctx context.Context, live *watcher.LiveWatcher, onDrain func(store.DrainCounters)) error {
	return live.Start(ctx, func(batch []watcher.FileEvent) {
		var changed, deleted []string
		for _, ev := range batch {
			if ev.Operation == watcher.OpDelete {
				deleted = append(deleted, ev.Path)
			} else {
				changed = append(changed, ev.Path)
			}
		}

		if err := e.Enqueue(ctx, changed, deleted); err != nil {
			slog.Error("enqueue_failed", slog.String("error", err.Error()))
			return
		}

		counters, err := e.Drain(ctx)
		if err != nil {
			slog.Error("drain_failed", slog.String("error", err.Error()))
			return
		}
		if onDrain != nil {
			onDrain(counters)
		}
	})
}
