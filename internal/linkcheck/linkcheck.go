// Package linkcheck implements the link checker collaborator: for every
// document's internal links, it resolves the target against the source
// document's location on disk and records whether it exists.
package linkcheck

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/markdownkeeper/markdownkeeper/internal/store"
)

// Result is one checked link, identified by the document it appears in.
type Result struct {
	DocumentID   int64
	DocumentPath string
	Target       string
	Status       store.LinkStatus
}

// Validate checks every internal link in the store against root, persists
// each outcome, and returns the full result set. Anchor-only links and
// external links are recorded as-is without a filesystem check.
func Validate(ctx context.Context, st *store.Store, root string) ([]Result, error) {
	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var results []Result

	for _, doc := range docs {
		links, err := st.GetLinks(ctx, doc.ID)
		if err != nil {
			return nil, err
		}

		for _, link := range links {
			status := link.Status
			switch link.Kind {
			case store.LinkInternal:
				status = checkInternal(filepath.Join(root, doc.Path), link.Target)
			case store.LinkAnchor:
				status = store.LinkStatusOK
			case store.LinkExternal:
				status = store.LinkStatusUnknown
			}

			if err := st.UpdateLinkStatus(ctx, doc.ID, link.Target, status, now); err != nil {
				return nil, err
			}

			results = append(results, Result{
				DocumentID:   doc.ID,
				DocumentPath: doc.Path,
				Target:       link.Target,
				Status:       status,
			})
		}
	}

	return results, nil
}

// checkInternal resolves target relative to sourcePath's directory and
// reports whether the referenced file exists. An empty target or a
// bare anchor fragment is always ok — there is nothing on disk to check.
func checkInternal(sourcePath, target string) store.LinkStatus {
	if target == "" || strings.HasPrefix(target, "#") {
		return store.LinkStatusOK
	}

	withoutAnchor := target
	if idx := strings.Index(target, "#"); idx >= 0 {
		withoutAnchor = target[:idx]
	}
	if withoutAnchor == "" {
		return store.LinkStatusOK
	}

	resolved := filepath.Join(filepath.Dir(sourcePath), withoutAnchor)
	if _, err := os.Stat(resolved); err != nil {
		return store.LinkStatusBroken
	}
	return store.LinkStatusOK
}

// Broken filters results down to the broken ones, for CLI reporting.
func Broken(results []Result) []Result {
	var broken []Result
	for _, r := range results {
		if r.Status == store.LinkStatusBroken {
			broken = append(broken, r)
		}
	}
	return broken
}
