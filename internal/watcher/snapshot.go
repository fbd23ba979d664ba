package watcher

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// Snapshot maps a watched path, relative to the configured base directory,
// to its last observed modification time.
type Snapshot map[string]time.Time

// Scan walks every root recursively and returns a Snapshot of every file
// with a tracked extension, skipping StorageDir and any ".git" directory.
// Snapshot keys are relative to base, not to whichever root they were
// found under, so paths from different roots never collide as long as
// they resolve to distinct absolute locations.
func Scan(roots []string, base string, opts Options) (Snapshot, error) {
	opts = opts.WithDefaults()
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}

	snapshot := make(Snapshot)
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != absRoot && shouldSkipDir(path, absRoot, opts) {
					return filepath.SkipDir
				}
				return nil
			}
			if !opts.hasWatchedExtension(path) {
				return nil
			}

			relPath, relErr := filepath.Rel(absBase, path)
			if relErr != nil {
				relPath = path
			}

			info, infoErr := d.Info()
			if infoErr != nil {
				return nil
			}
			snapshot[relPath] = info.ModTime()
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return snapshot, nil
}

func shouldSkipDir(path, root string, opts Options) bool {
	if filepath.Base(path) == ".git" {
		return true
	}
	if opts.StorageDir == "" {
		return false
	}
	absStorage, err := filepath.Abs(opts.StorageDir)
	if err != nil {
		return false
	}
	return path == absStorage || strings.HasPrefix(path, absStorage+string(filepath.Separator))
}

// Diff compares a previous snapshot against the current state of roots
// and classifies every difference as created, modified, or deleted.
func Diff(roots []string, base string, opts Options, previous Snapshot) ([]FileEvent, Snapshot, error) {
	current, err := Scan(roots, base, opts)
	if err != nil {
		return nil, nil, err
	}

	var events []FileEvent
	now := time.Now()

	for path, modTime := range current {
		prevModTime, existed := previous[path]
		switch {
		case !existed:
			events = append(events, FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case !modTime.Equal(prevModTime):
			events = append(events, FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}

	for path := range previous {
		if _, stillExists := current[path]; !stillExists {
			events = append(events, FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
		}
	}

	return events, current, nil
}

// WatchOnce performs a single snapshot/diff pass against previous and
// returns the detected events alongside the new snapshot to persist for
// the next call.
func WatchOnce(roots []string, base string, opts Options, previous Snapshot) ([]FileEvent, Snapshot, error) {
	return Diff(roots, base, opts, previous)
}
