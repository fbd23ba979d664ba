package indexgen

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdownkeeper/markdownkeeper/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestGenerate_WritesAllFourArtifacts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, _, err := st.UpsertDocument(ctx, "a.md",
		store.ParsedDocument{Title: "A", Category: "ops", Tags: []string{"infra"}, Concepts: []string{"provisioning"}},
		"hash", time.Now(), []float32{1}, "test", nil)
	require.NoError(t, err)

	outDir := t.TempDir()
	require.NoError(t, Generate(ctx, st, outDir))

	for _, name := range []string{masterFile, byCategoryFile, byTagFile, byConceptFile} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, "expected %s to exist", name)
	}
}

func TestGenerate_MasterListsEveryDocument(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, _, err := st.UpsertDocument(ctx, "a.md", store.ParsedDocument{Title: "Alpha", Category: "ops"}, "h", time.Now(), []float32{1}, "test", nil)
	require.NoError(t, err)
	_, _, err = st.UpsertDocument(ctx, "b.md", store.ParsedDocument{Title: "Beta", Category: "dev"}, "h", time.Now(), []float32{1}, "test", nil)
	require.NoError(t, err)

	outDir := t.TempDir()
	require.NoError(t, Generate(ctx, st, outDir))

	content, err := os.ReadFile(filepath.Join(outDir, masterFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Alpha")
	assert.Contains(t, string(content), "Beta")
}

func TestGenerate_ByTagGroupsDocumentsUnderTagHeading(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	_, _, err := st.UpsertDocument(ctx, "a.md",
		store.ParsedDocument{Title: "Alpha", Tags: []string{"infra"}}, "h", time.Now(), []float32{1}, "test", nil)
	require.NoError(t, err)

	outDir := t.TempDir()
	require.NoError(t, Generate(ctx, st, outDir))

	content, err := os.ReadFile(filepath.Join(outDir, byTagFile))
	require.NoError(t, err)
	assert.Contains(t, string(content), "## infra")
	assert.Contains(t, string(content), "Alpha")
}

func TestGenerate_EmptyStore_ProducesHeadingOnlyFiles(t *testing.T) {
	st := newTestStore(t)
	outDir := t.TempDir()
	require.NoError(t, Generate(context.Background(), st, outDir))

	content, err := os.ReadFile(filepath.Join(outDir, masterFile))
	require.NoError(t, err)
	assert.Equal(t, "# Index\n\n", string(content))
}
