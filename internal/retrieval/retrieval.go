// Package retrieval implements the read-only helpers the RPC surface and
// CLI call directly: fetching one document by id, and listing documents
// tagged with a given concept.
package retrieval

import (
	"context"
	"strings"

	"github.com/markdownkeeper/markdownkeeper/internal/store"
)

// DocumentView is a document enriched with its headings, tags, concepts,
// and links, and optionally its full body text.
type DocumentView struct {
	store.Document
	Headings []store.Heading
	Tags     []string
	Concepts []string
	Links    []store.Link
	Content  string
}

// Helpers reads documents and concept associations from a store.
type Helpers struct {
	store *store.Store
}

// New constructs a Helpers bound to st.
func New(st *store.Store) *Helpers {
	return &Helpers{store: st}
}

// GetDocument returns document id with its metadata. When includeContent
// is true, Content carries the document body, truncated to maxTokens
// whitespace-delimited words when maxTokens is positive.
func (h *Helpers) GetDocument(ctx context.Context, id int64, includeContent bool, maxTokens int) (*DocumentView, error) {
	doc, err := h.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	headings, err := h.store.GetHeadings(ctx, id)
	if err != nil {
		return nil, err
	}
	tags, err := h.store.GetTags(ctx, id)
	if err != nil {
		return nil, err
	}
	concepts, err := h.store.GetConcepts(ctx, id)
	if err != nil {
		return nil, err
	}
	links, err := h.store.GetLinks(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &DocumentView{Document: *doc, Headings: headings, Tags: tags, Concepts: concepts, Links: links}
	if includeContent {
		view.Content = truncateWords(doc.Body, maxTokens)
	}
	return view, nil
}

// FindByConcept returns documents exactly (case-insensitively) tagged
// with concept, ordered by title, capped at limit.
func (h *Helpers) FindByConcept(ctx context.Context, concept string, limit int) ([]*store.Document, error) {
	return h.store.FindByConcept(ctx, concept, limit)
}

// truncateWords returns body's first maxTokens whitespace-delimited
// words. maxTokens <= 0 means no truncation.
func truncateWords(body string, maxTokens int) string {
	if maxTokens <= 0 {
		return body
	}
	words := strings.Fields(body)
	if len(words) <= maxTokens {
		return body
	}
	return strings.Join(words[:maxTokens], " ")
}
