// Package query implements semantic document search: a query is embedded,
// then blended against each document's own embedding and its best-matching
// chunk embedding to rank the corpus.
package query

import (
	"context"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/markdownkeeper/markdownkeeper/internal/embed"
	"github.com/markdownkeeper/markdownkeeper/internal/store"
)

// docChunkAlpha weights a document's own embedding against its best
// matching chunk embedding when blending a combined relevance score.
// Fixed rather than configurable: no fixture in this corpus motivates
// tuning it per deployment.
const docChunkAlpha = 0.5

// queryCacheSize bounds the LRU cache of query embeddings.
const queryCacheSize = 256

// Result is one ranked document from a semantic search.
type Result struct {
	Document *store.Document
	Score    float64
}

type cacheKey struct {
	modelID string
	query   string
}

// Engine ranks documents against a query using the store's persisted
// embeddings and an embedder for the query text itself.
type Engine struct {
	store    *store.Store
	embedder embed.Embedder
	cache    *lru.Cache[cacheKey, []float32]
}

// New constructs a query Engine bound to st and embedder.
func New(st *store.Store, embedder embed.Embedder) (*Engine, error) {
	cache, err := lru.New[cacheKey, []float32](queryCacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{store: st, embedder: embedder, cache: cache}, nil
}

// Search embeds query, scores every document by a blend of its own
// embedding's cosine similarity and its best chunk's cosine similarity,
// and returns the top limit results ordered by score descending, with
// ties broken by modified_at descending then id ascending.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	queryVector, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	docs, err := e.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	docByID := make(map[int64]*store.Document, len(docs))
	for _, d := range docs {
		docByID[d.ID] = d
	}

	docVectors, err := e.store.ListDocumentVectors(ctx)
	if err != nil {
		return nil, err
	}

	bestChunkScore, err := e.bestChunkScores(ctx, queryVector)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(docVectors))
	for _, dv := range docVectors {
		doc, ok := docByID[dv.DocID]
		if !ok {
			continue
		}

		docScore := embed.CosineSimilarity(queryVector, dv.Vector)
		score := docScore
		if chunkScore, hasChunks := bestChunkScore[dv.DocID]; hasChunks {
			score = docChunkAlpha*docScore + (1-docChunkAlpha)*chunkScore
		}

		results = append(results, Result{Document: doc, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Document.ModifiedAt.Equal(results[j].Document.ModifiedAt) {
			return results[i].Document.ModifiedAt.After(results[j].Document.ModifiedAt)
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) bestChunkScores(ctx context.Context, queryVector []float32) (map[int64]float64, error) {
	chunkVectors, err := e.store.ListChunkVectors(ctx)
	if err != nil {
		return nil, err
	}

	best := make(map[int64]float64, len(chunkVectors))
	for _, cv := range chunkVectors {
		score := embed.CosineSimilarity(queryVector, cv.Vector)
		if current, ok := best[cv.DocID]; !ok || score > current {
			best[cv.DocID] = score
		}
	}
	return best, nil
}

// embedQuery returns query's embedding, reusing a cached vector for a
// repeated (model, query) pair rather than recomputing it.
func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	key := cacheKey{modelID: e.embedder.ModelID(), query: query}
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}

	vector, _, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, vector)
	return vector, nil
}
