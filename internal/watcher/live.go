package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// LiveWatcher subscribes to filesystem notifications under one or more
// roots and emits debounced batches of Markdown file events. The notifier
// callback must never block or touch the store/event queue directly —
// handle passes each event to the debouncer and returns immediately; the
// debouncer emits coalesced batches on its own output channel.
type LiveWatcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	opts      Options
	roots     []string
	base      string
}

// NewLiveWatcher constructs a watcher bound to roots with opts (defaults
// applied for zero-value fields). Emitted event paths are relative to
// base, so multiple roots never produce colliding paths as long as they
// resolve to distinct locations on disk.
func NewLiveWatcher(roots []string, base string, opts Options) (*LiveWatcher, error) {
	opts = opts.WithDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("resolve base: %w", err)
	}

	absRoots := make([]string, 0, len(roots))
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("resolve root %s: %w", root, err)
		}
		absRoots = append(absRoots, absRoot)
	}

	debouncer := NewDebouncer(opts.DebounceWindow)
	debouncer.output = make(chan []FileEvent, opts.EventBufferSize)

	return &LiveWatcher{
		fsWatcher: fsw,
		debouncer: debouncer,
		opts:      opts,
		roots:     absRoots,
		base:      absBase,
	}, nil
}

// Start subscribes to every directory under every root and blocks,
// forwarding debounced batches to notify, until ctx is cancelled or Stop
// is called. notify is invoked from a separate goroutine that Start
// spawns, one batch at a time, and must return quickly.
func (w *LiveWatcher) Start(ctx context.Context, notify func([]FileEvent)) error {
	for _, root := range w.roots {
		if err := w.addRecursive(root); err != nil {
			return fmt.Errorf("subscribe to directories under %s: %w", root, err)
		}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-w.debouncer.Output():
				if !ok {
					return
				}
				if len(batch) > 0 {
					notify(batch)
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return w.Stop()
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

// Stop releases the fsnotify subscription and the debouncer's timer.
func (w *LiveWatcher) Stop() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}

func (w *LiveWatcher) handle(event fsnotify.Event) {
	if w.shouldIgnoreDir(event.Name) {
		return
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if isDir {
		if event.Op&fsnotify.Create != 0 {
			_ = w.fsWatcher.Add(event.Name)
		}
		return
	}

	if !w.opts.hasWatchedExtension(event.Name) {
		return
	}

	relPath, err := filepath.Rel(w.base, event.Name)
	if err != nil {
		relPath = event.Name
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		// fsnotify reports a move as a Rename on the old path and a
		// Create on the new one; treating Rename as a delete here means
		// the old path is retired and the new path arrives separately
		// as its own create, matching the "move = delete old + change
		// new" rule.
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{Path: relPath, Operation: op})
}

func (w *LiveWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *LiveWatcher) shouldIgnoreDir(path string) bool {
	base := filepath.Base(path)
	if base == ".git" {
		return true
	}
	if w.opts.StorageDir != "" {
		absStorage, err := filepath.Abs(w.opts.StorageDir)
		if err == nil && (path == absStorage || strings.HasPrefix(path, absStorage+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
