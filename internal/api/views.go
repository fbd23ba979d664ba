package api

import (
	"time"

	"github.com/markdownkeeper/markdownkeeper/internal/retrieval"
	"github.com/markdownkeeper/markdownkeeper/internal/store"
)

// documentSummary is the document shape returned by the listing endpoints
// (semantic_query, find_by_concept). Score is only populated for ranked
// results.
type documentSummary struct {
	ID         int64     `json:"id"`
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	ModifiedAt time.Time `json:"modified_at"`
	Score      *float64  `json:"score,omitempty"`
	Content    string    `json:"content,omitempty"`
}

func documentSummaryFromStore(d *store.Document) documentSummary {
	return documentSummary{
		ID:         d.ID,
		Path:       d.Path,
		Title:      d.Title,
		Category:   d.Category,
		ModifiedAt: d.ModifiedAt,
	}
}

// documentDetail is the full record returned by get_document, including
// headings, tags, concepts, and links.
type documentDetail struct {
	documentSummary
	Headings []store.Heading `json:"headings"`
	Tags     []string        `json:"tags"`
	Concepts []string        `json:"concepts"`
	Links    []store.Link    `json:"links"`
}

func documentViewResponse(view *retrieval.DocumentView) documentDetail {
	summary := documentSummaryFromStore(&view.Document)
	summary.Content = view.Content
	return documentDetail{
		documentSummary: summary,
		Headings:        view.Headings,
		Tags:            view.Tags,
		Concepts:        view.Concepts,
		Links:           view.Links,
	}
}
