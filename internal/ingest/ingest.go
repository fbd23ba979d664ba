// Package ingest drains the durable event queue: for each queued path it
// reads the file, parses it, embeds its body and chunks, and upserts the
// result into the store — or deletes the store's record, for a delete
// event. It is the one place C1 (chunk), C2 (embed), C3 (store), and C4
// (the event queue) meet.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/markdownkeeper/markdownkeeper/internal/chunk"
	"github.com/markdownkeeper/markdownkeeper/internal/embed"
	mkerr "github.com/markdownkeeper/markdownkeeper/internal/errors"
	"github.com/markdownkeeper/markdownkeeper/internal/store"
)

// Engine drains queued events against one or more root directories of
// Markdown files.
type Engine struct {
	store    *store.Store
	parser   *chunk.Parser
	embedder embed.Embedder
	roots    []string
	base     string
}

// New constructs an Engine. roots are the directories scanned and
// watched; base is the directory relative paths in events and documents
// are resolved against (and must be a common ancestor in spirit, though
// filepath.Rel/Join tolerate roots that live outside it).
func New(st *store.Store, parser *chunk.Parser, embedder embed.Embedder, roots []string, base string) *Engine {
	return &Engine{store: st, parser: parser, embedder: embedder, roots: roots, base: base}
}

// Enqueue records a batch of created/modified and deleted paths. Per-path
// coalescing happens in the store: a repeated change stays one event, a
// change followed by a delete becomes a delete, and vice versa.
func (e *Engine) Enqueue(ctx context.Context, changedPaths, deletedPaths []string) error {
	now := time.Now()
	for _, p := range changedPaths {
		if err := e.store.EnqueueChange(ctx, p, now); err != nil {
			return err
		}
	}
	for _, p := range deletedPaths {
		if err := e.store.EnqueueDelete(ctx, p, now); err != nil {
			return err
		}
	}
	return nil
}

// Drain processes every queued event to completion, retrying storage-
// category failures fewer than store.MaxEventAttempts times before
// giving up on them permanently — parse failures never retry, they are
// marked failed once and stay that way — and returns how many documents
// were created, modified, or deleted.
func (e *Engine) Drain(ctx context.Context) (store.DrainCounters, error) {
	var counters store.DrainCounters

	if err := e.store.ResetRetryableFailed(ctx); err != nil {
		return counters, err
	}

	events, err := e.store.SelectQueuedEvents(ctx)
	if err != nil {
		return counters, err
	}

	for _, ev := range events {
		if err := e.store.MarkInProgress(ctx, ev.ID); err != nil {
			return counters, err
		}

		var processErr error
		var created bool
		switch ev.Type {
		case store.EventDelete:
			processErr = e.store.DeleteByPath(ctx, ev.Path)
		default:
			created, processErr = e.processChange(ctx, ev.Path)
		}

		if processErr != nil {
			if err := e.store.MarkFailed(ctx, ev.ID, mkerr.GetCode(processErr)); err != nil {
				return counters, err
			}
			continue
		}

		if err := e.store.MarkDone(ctx, ev.ID); err != nil {
			return counters, err
		}

		switch ev.Type {
		case store.EventDelete:
			counters.Deleted++
		case store.EventChange:
			if created {
				counters.Created++
			} else {
				counters.Modified++
			}
		}
	}

	return counters, nil
}

func (e *Engine) processChange(ctx context.Context, relPath string) (created bool, err error) {
	content, err := os.ReadFile(filepath.Join(e.base, relPath))
	if err != nil {
		return false, mkerr.ParseError("read changed file", err)
	}

	parsed := e.parser.Parse(relPath, content)
	contentHash := chunk.ContentHash(parsed.Body)

	// An embedding failure falls back to token-hash-v1 rather than failing
	// the event.
	docVector, docModelID, err := e.embedder.Embed(ctx, parsed.Body)
	if err != nil {
		docVector, docModelID, _ = embed.NewHashEmbedder().Embed(ctx, parsed.Body)
	}

	chunkEmbeddings := make([]store.ChunkEmbeddingInput, 0, len(parsed.Chunks))
	for _, c := range parsed.Chunks {
		vector, modelID, err := e.embedder.Embed(ctx, c.Text)
		if err != nil {
			vector, modelID, _ = embed.NewHashEmbedder().Embed(ctx, c.Text)
		}
		chunkEmbeddings = append(chunkEmbeddings, store.ChunkEmbeddingInput{
			Ordinal: c.Ordinal,
			ModelID: modelID,
			Vector:  vector,
		})
	}

	info, err := os.Stat(filepath.Join(e.base, relPath))
	if err != nil {
		return false, mkerr.StorageError("stat changed file", err)
	}

	_, created, err = e.store.UpsertDocument(ctx, relPath, parsed, contentHash, info.ModTime(),
		docVector, docModelID, chunkEmbeddings)
	if err != nil {
		return false, err
	}
	return created, nil
}
