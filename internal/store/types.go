// Package store persists the markdownkeeper index: documents, headings,
// tags, concepts, chunks, embeddings, links, and the durable event queue,
// in a single modernc.org/sqlite file opened in WAL mode.
package store

import "time"

// LinkKind classifies an outbound Markdown link by its target prefix.
type LinkKind string

const (
	LinkInternal LinkKind = "internal"
	LinkExternal LinkKind = "external"
	LinkAnchor   LinkKind = "anchor"
)

// LinkStatus is the last-known reachability of a link target.
type LinkStatus string

const (
	LinkStatusOK      LinkStatus = "ok"
	LinkStatusBroken  LinkStatus = "broken"
	LinkStatusUnknown LinkStatus = "unknown"
)

// EventType distinguishes a change from a delete in the event queue.
type EventType string

const (
	EventChange EventType = "change"
	EventDelete EventType = "delete"
)

// EventStatus tracks an event through the drain lifecycle.
type EventStatus string

const (
	EventQueued     EventStatus = "queued"
	EventInProgress EventStatus = "in_progress"
	EventDone       EventStatus = "done"
	EventFailed     EventStatus = "failed"
)

// MaxEventAttempts is the attempt cap for a queued event: a failed event
// is retried until attempts reaches this value, then stays permanently failed.
const MaxEventAttempts = 3

// Document is one tracked Markdown file.
type Document struct {
	ID          int64
	Path        string
	Title       string
	Category    string
	ModifiedAt  time.Time
	Body        string
	ContentHash string
}

// Heading is one entry in a document's outline.
type Heading struct {
	Level int
	Text  string
}

// Chunk is one ordinal slice of a document's body.
type Chunk struct {
	Ordinal int
	Text    string
}

// EmbeddingScope distinguishes a document-level vector from a chunk-level one.
type EmbeddingScope string

const (
	ScopeDocument EmbeddingScope = "document"
	ScopeChunk    EmbeddingScope = "chunk"
)

// Link is one outbound reference from a document.
type Link struct {
	Target    string
	Kind      LinkKind
	Status    LinkStatus
	CheckedAt time.Time
}

// Event is one durable, queued change or delete awaiting drain.
type Event struct {
	ID         int64
	Path       string
	Type       EventType
	Status     EventStatus
	EnqueuedAt time.Time
	Attempts   int
	// Code is the mkerr.Error code that last failed this event, set by
	// MarkFailed. Empty for an event that has never failed.
	// ResetRetryableFailed consults mkerr.IsRetryable on this code to
	// decide whether the event gets another attempt.
	Code string
}

// ParsedDocument is a parser's output: everything a document upsert needs
// to replace that document's dependent rows in one transaction.
type ParsedDocument struct {
	Title    string
	Category string
	Headings []Heading
	Tags     []string
	Concepts []string
	Links    []Link
	Body     string
	Chunks   []Chunk
}

// DrainCounters summarizes one drain call over the event queue.
type DrainCounters struct {
	Created  int
	Modified int
	Deleted  int
}

// DocumentVector is a document-scoped embedding row used by the query engine.
type DocumentVector struct {
	DocID      int64
	Vector     []float32
	ModelID    string
	ModifiedAt time.Time
}

// ChunkVector is a chunk-scoped embedding row used by the query engine.
type ChunkVector struct {
	DocID   int64
	Ordinal int
	Vector  []float32
	ModelID string
}
