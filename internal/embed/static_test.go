package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_Embed_ReturnsCorrectDimensions(t *testing.T) {
	embedder := NewHashEmbedder()

	embedding, modelID, err := embedder.Embed(context.Background(), "postgresql backup compression")

	require.NoError(t, err)
	assert.Len(t, embedding, HashDimensions)
	assert.Equal(t, HashModelID, modelID)
}

func TestHashEmbedder_Embed_VectorIsNormalized(t *testing.T) {
	embedder := NewHashEmbedder()

	embedding, _, err := embedder.Embed(context.Background(), "some document text")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, vectorMagnitude(embedding), 0.001)
}

func TestHashEmbedder_Embed_IsDeterministic(t *testing.T) {
	embedder := NewHashEmbedder()
	text := "pg_dump full database backup with compression"

	emb1, _, err1 := embedder.Embed(context.Background(), text)
	emb2, _, err2 := embedder.Embed(context.Background(), text)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, emb1, emb2)
}

func TestHashEmbedder_Embed_DeterministicAcrossInstances(t *testing.T) {
	text := "python pytest unit test fixtures mocking"

	emb1, _, _ := NewHashEmbedder().Embed(context.Background(), text)
	emb2, _, _ := NewHashEmbedder().Embed(context.Background(), text)

	assert.Equal(t, emb1, emb2)
}

func TestHashEmbedder_Embed_DifferentTextsProduceDifferentVectors(t *testing.T) {
	embedder := NewHashEmbedder()

	emb1, _, _ := embedder.Embed(context.Background(), "database backup strategy")
	emb2, _, _ := embedder.Embed(context.Background(), "kubernetes deployment rollout")

	assert.NotEqual(t, emb1, emb2)
}

func TestHashEmbedder_Embed_EmptyInput_ReturnsZeroVector(t *testing.T) {
	embedder := NewHashEmbedder()

	embedding, modelID, err := embedder.Embed(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, HashModelID, modelID)
	for i, v := range embedding {
		assert.Equal(t, float32(0), v, "element %d should be zero", i)
	}
}

func TestHashEmbedder_Embed_WhitespaceOnly_ReturnsZeroVector(t *testing.T) {
	embedder := NewHashEmbedder()

	embedding, _, err := embedder.Embed(context.Background(), "   \t\n  ")

	require.NoError(t, err)
	for _, v := range embedding {
		assert.Equal(t, float32(0), v)
	}
}

func TestHashEmbedder_Embed_SingleCharacterTokensIgnored(t *testing.T) {
	embedder := NewHashEmbedder()

	// "a" and "I" are below the length-2 token floor; only "cat" counts.
	withNoise, _, _ := embedder.Embed(context.Background(), "a I cat")
	bare, _, _ := embedder.Embed(context.Background(), "cat")

	assert.Equal(t, bare, withNoise)
}

func TestHashEmbedder_SimilarText_HasHigherSimilarity(t *testing.T) {
	embedder := NewHashEmbedder()

	backup := "pg_dump full database backup with compression"
	restore := "restore postgresql database backup from dump"
	unrelated := "python pytest unit test fixtures mocking"

	backupEmb, _, _ := embedder.Embed(context.Background(), backup)
	restoreEmb, _, _ := embedder.Embed(context.Background(), restore)
	unrelatedEmb, _, _ := embedder.Embed(context.Background(), unrelated)

	related := CosineSimilarity(backupEmb, restoreEmb)
	distinct := CosineSimilarity(backupEmb, unrelatedEmb)

	assert.Greater(t, related, distinct)
}

func TestHashEmbedder_Available_AlwaysTrue(t *testing.T) {
	embedder := NewHashEmbedder()
	assert.True(t, embedder.Available(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, embedder.Available(ctx))
}

func TestHashEmbedder_ImplementsEmbedderInterface(t *testing.T) {
	var _ Embedder = NewHashEmbedder()
}

func TestHashEmbedder_Dimensions_Returns64(t *testing.T) {
	assert.Equal(t, HashDimensions, NewHashEmbedder().Dimensions())
}

func TestHashEmbedder_ModelID_ReturnsTokenHashV1(t *testing.T) {
	assert.Equal(t, "token-hash-v1", NewHashEmbedder().ModelID())
}

func TestHashEmbedder_Close_IsIdempotent(t *testing.T) {
	embedder := NewHashEmbedder()
	assert.NoError(t, embedder.Close())
	assert.NoError(t, embedder.Close())
}

func TestCosineSimilarity_DifferentLengths_ReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
}

func TestCosineSimilarity_EmptyVectors_ReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{}, []float32{1}))
}

func TestCosineSimilarity_IdenticalUnitVectors_ReturnsOne(t *testing.T) {
	v := []float32{0.6, 0.8}
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarity_OrthogonalUnitVectors_ReturnsZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-6)
}

func vectorMagnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
