// Package watcher turns filesystem activity under a set of watched
// roots into create/modify/delete events for Markdown files, both via a
// live fsnotify subscription and via one-shot snapshot/diff scans used
// for startup and restart safety.
package watcher

import (
	"time"
)

// Operation classifies a detected filesystem change.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one detected change to a watched path.
type FileEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Options configures both the live watcher and the snapshot/diff scanner.
type Options struct {
	// Extensions lists the file suffixes considered part of the index
	// (e.g. ".md", ".markdown"). Anything else is ignored.
	Extensions []string

	// DebounceWindow is how long the live watcher buffers rapid events
	// for the same path before emitting a coalesced batch.
	DebounceWindow time.Duration

	// StorageDir is excluded from every walk and subscription: the
	// index database itself must never appear as a tracked document.
	StorageDir string

	// EventBufferSize bounds the live watcher's output channel.
	EventBufferSize int
}

// DefaultOptions returns sensible defaults for Options' zero-value fields.
func DefaultOptions() Options {
	return Options{
		Extensions:      []string{".md", ".markdown"},
		DebounceWindow:  500 * time.Millisecond,
		EventBufferSize: 256,
	}
}

// WithDefaults fills zero-value fields in o with DefaultOptions.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if len(o.Extensions) == 0 {
		o.Extensions = defaults.Extensions
	}
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}

// hasWatchedExtension reports whether path carries one of opts' tracked
// extensions.
func (o Options) hasWatchedExtension(path string) bool {
	for _, ext := range o.Extensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}
