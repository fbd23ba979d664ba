package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// HashEmbedder generates embeddings with the deterministic token-hash-v1
// scheme: no network, no model weights, same vector for the same input
// every time. It is the embedder of last resort, used whenever no
// sentence-embedding provider can be reached.
type HashEmbedder struct{}

// NewHashEmbedder constructs the fallback embedder. It is always available.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

// tokenRegex matches runs of letters/digits at least 2 characters long,
// the tokenization rule for token-hash-v1.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]{2,}`)

// Embed implements Embedder.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, HashDimensions), HashModelID, nil
	}

	vector := make([]float32, HashDimensions)
	for _, tok := range tokenRegex.FindAllString(strings.ToLower(trimmed), -1) {
		vector[bucketOf(tok)]++
	}

	return normalizeVector(vector), HashModelID, nil
}

// bucketOf maps a token to one of HashDimensions buckets via FNV-64.
func bucketOf(token string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum64() % uint64(HashDimensions))
}

// Available always reports true: the hash embedder has no external
// dependency that could be down.
func (e *HashEmbedder) Available(_ context.Context) bool { return true }

// ModelID implements Embedder.
func (e *HashEmbedder) ModelID() string { return HashModelID }

// Dimensions implements Embedder.
func (e *HashEmbedder) Dimensions() int { return HashDimensions }

// Close implements Embedder; the hash embedder holds no resources.
func (e *HashEmbedder) Close() error { return nil }
