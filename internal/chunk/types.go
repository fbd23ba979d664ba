// Package chunk turns a Markdown file's raw bytes into the title,
// headings, frontmatter tags/category/concepts, outbound links, and
// ordered body chunks that the store persists.
package chunk

import "github.com/markdownkeeper/markdownkeeper/internal/store"

// MinChunkChars and MaxChunkChars bound the paragraph-window chunker:
// paragraphs are merged until a chunk reaches MinChunkChars, and a
// chunk is closed before it would exceed MaxChunkChars.
const (
	MinChunkChars = 200
	MaxChunkChars = 1500
)

// Result is the parser's output: everything a document upsert needs,
// expressed with the store's own entity types so callers pass it through
// unchanged.
type Result = store.ParsedDocument
