// Package embed produces unit-norm dense vectors for text: a pretrained
// sentence model when one is reachable, and a deterministic fallback
// otherwise, so the rest of the pipeline never blocks on model availability.
package embed

import (
	"context"
	"math"
)

// HashModelID is the model identifier stored alongside every vector
// produced by the deterministic token-hash fallback.
const HashModelID = "token-hash-v1"

// HashDimensions is the fixed width of a token-hash-v1 vector.
const HashDimensions = 64

// OllamaDimensions is the width every Ollama-backed vector is
// truncated or padded to, regardless of the serving model's native width.
const OllamaDimensions = 384

// Embedder produces embeddings for text and reports the model that
// produced them.
type Embedder interface {
	// Embed computes a unit-norm vector for text and the model_id that
	// must be stored alongside it. Empty or whitespace-only input yields
	// the all-zero vector.
	Embed(ctx context.Context, text string) ([]float32, string, error)

	// Available reports whether this embedder's backing model can be
	// reached right now. It never caches its result.
	Available(ctx context.Context) bool

	// ModelID returns the identifier this embedder stores with vectors.
	ModelID() string

	// Dimensions returns the vector width this embedder produces.
	Dimensions() int

	// Close releases any held resources (HTTP connections, etc).
	Close() error
}

// CosineSimilarity returns the dot product of two unit-norm vectors.
// It returns 0 if the vectors differ in length or either is empty.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// normalizeVector scales v to unit length, leaving the zero vector as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
