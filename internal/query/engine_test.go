package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdownkeeper/markdownkeeper/internal/embed"
	"github.com/markdownkeeper/markdownkeeper/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func upsert(t *testing.T, st *store.Store, path, title, body string, docVec []float32, chunkVecs ...[]float32) {
	t.Helper()
	chunks := make([]store.Chunk, len(chunkVecs))
	embeddings := make([]store.ChunkEmbeddingInput, len(chunkVecs))
	for i, v := range chunkVecs {
		chunks[i] = store.Chunk{Ordinal: i, Text: "chunk"}
		embeddings[i] = store.ChunkEmbeddingInput{Ordinal: i, ModelID: "test", Vector: v}
	}
	_, _, err := st.UpsertDocument(context.Background(), path,
		store.ParsedDocument{Title: title, Body: body, Chunks: chunks},
		"hash", time.Now(), docVec, "test", embeddings)
	require.NoError(t, err)
}

func TestSearch_RanksByCosineSimilarityDescending(t *testing.T) {
	st := newTestStore(t)
	upsert(t, st, "a.md", "A", "alpha body", []float32{1, 0})
	upsert(t, st, "b.md", "B", "beta body", []float32{0, 1})

	engine, err := New(st, embed.NewHashEmbedder())
	require.NoError(t, err)

	engine.cache.Add(cacheKey{modelID: embed.HashModelID, query: "q"}, []float32{1, 0})

	results, err := engine.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].Document.Title)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_LimitCapsResultCount(t *testing.T) {
	st := newTestStore(t)
	upsert(t, st, "a.md", "A", "alpha", []float32{1, 0})
	upsert(t, st, "b.md", "B", "beta", []float32{0, 1})
	upsert(t, st, "c.md", "C", "gamma", []float32{1, 1})

	engine, err := New(st, embed.NewHashEmbedder())
	require.NoError(t, err)

	results, err := engine.Search(context.Background(), "alpha", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_DocumentWithoutChunks_UsesDocScoreOnly(t *testing.T) {
	st := newTestStore(t)
	upsert(t, st, "a.md", "A", "alpha body", []float32{1, 0})

	engine, err := New(st, embed.NewHashEmbedder())
	require.NoError(t, err)
	engine.cache.Add(cacheKey{modelID: embed.HashModelID, query: "q"}, []float32{1, 0})

	results, err := engine.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestSearch_BlendsDocAndBestChunkScore(t *testing.T) {
	st := newTestStore(t)
	upsert(t, st, "a.md", "A", "alpha body", []float32{0, 1}, []float32{1, 0}, []float32{0, 1})

	engine, err := New(st, embed.NewHashEmbedder())
	require.NoError(t, err)
	engine.cache.Add(cacheKey{modelID: embed.HashModelID, query: "q"}, []float32{1, 0})

	results, err := engine.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	// doc score = 0 (orthogonal), best chunk score = 1 (identical) -> 0.5*0 + 0.5*1
	assert.InDelta(t, 0.5, results[0].Score, 1e-9)
}

func TestSearch_EmbedQuery_CachesRepeatedQueries(t *testing.T) {
	st := newTestStore(t)
	upsert(t, st, "a.md", "A", "alpha body", []float32{1, 0})

	engine, err := New(st, embed.NewHashEmbedder())
	require.NoError(t, err)

	first, err := engine.embedQuery(context.Background(), "alpha query")
	require.NoError(t, err)
	second, err := engine.embedQuery(context.Background(), "alpha query")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, engine.cache.Len())
}
