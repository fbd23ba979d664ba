// Package indexgen builds the derived Markdown index artifacts — a master
// listing plus category/tag/concept inverted indices — from the current
// Store state. These are plain files regenerated on demand by the
// `reindex` CLI command; they are never read back by the query engine.
package indexgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/markdownkeeper/markdownkeeper/internal/store"
)

const (
	masterFile     = "master.md"
	byCategoryFile = "by-category.md"
	byTagFile      = "by-tag.md"
	byConceptFile  = "by-concept.md"
)

// Generate writes all four artifacts into outDir, overwriting any
// existing copies.
func Generate(ctx context.Context, st *store.Store, outDir string) error {
	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create index output directory: %w", err)
	}

	byCategory := make(map[string][]*store.Document)
	byTag := make(map[string][]*store.Document)
	byConcept := make(map[string][]*store.Document)

	for _, d := range docs {
		byCategory[d.Category] = append(byCategory[d.Category], d)

		tags, err := st.GetTags(ctx, d.ID)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			byTag[tag] = append(byTag[tag], d)
		}

		concepts, err := st.GetConcepts(ctx, d.ID)
		if err != nil {
			return err
		}
		for _, concept := range concepts {
			byConcept[concept] = append(byConcept[concept], d)
		}
	}

	if err := writeMaster(filepath.Join(outDir, masterFile), docs); err != nil {
		return err
	}
	if err := writeGrouped(filepath.Join(outDir, byCategoryFile), "Documents by Category", byCategory); err != nil {
		return err
	}
	if err := writeGrouped(filepath.Join(outDir, byTagFile), "Documents by Tag", byTag); err != nil {
		return err
	}
	if err := writeGrouped(filepath.Join(outDir, byConceptFile), "Documents by Concept", byConcept); err != nil {
		return err
	}
	return nil
}

func writeMaster(path string, docs []*store.Document) error {
	var b strings.Builder
	b.WriteString("# Index\n\n")
	for _, d := range docs {
		category := d.Category
		if category == "" {
			category = "uncategorized"
		}
		fmt.Fprintf(&b, "- [%s](%s) _(%s)_\n", d.Title, d.Path, category)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func writeGrouped(path, heading string, grouped map[string][]*store.Document) error {
	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", heading)
	for _, key := range keys {
		label := key
		if label == "" {
			label = "uncategorized"
		}
		fmt.Fprintf(&b, "## %s\n\n", label)

		docs := append([]*store.Document(nil), grouped[key]...)
		sort.Slice(docs, func(i, j int) bool { return docs[i].Title < docs[j].Title })
		for _, d := range docs {
			fmt.Fprintf(&b, "- [%s](%s)\n", d.Title, d.Path)
		}
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
