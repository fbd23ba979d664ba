package chunk

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/markdownkeeper/markdownkeeper/internal/store"
)

var (
	frontmatterPattern = regexp.MustCompile(`(?s)^---\r?\n(.*?)\r?\n---\r?\n?`)
	headingPattern     = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+?)\s*$`)
	linkPattern        = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	codeFencePattern   = regexp.MustCompile("^```")
)

// frontmatter is the subset of YAML frontmatter keys this parser
// understands. Tags and Concepts accept either a YAML list or a
// comma-separated string, matching how documentation authors write both.
type frontmatter struct {
	Title    string      `yaml:"title"`
	Category string      `yaml:"category"`
	Tags     interface{} `yaml:"tags"`
	Concepts interface{} `yaml:"concepts"`
}

// Parser turns Markdown bytes into a store.ParsedDocument.
type Parser struct{}

// New constructs a Parser. It is stateless and safe for concurrent use.
func New() *Parser {
	return &Parser{}
}

// Parse extracts title, category, headings, tags, concepts, links, and
// chunks from content. Malformed frontmatter is tolerated: the body is
// parsed as if no frontmatter were present rather than failing the file.
func (p *Parser) Parse(path string, content []byte) store.ParsedDocument {
	body := string(content)
	fm, body := splitFrontmatter(body)

	headings := parseHeadings(body)

	title := fm.Title
	if title == "" {
		title = firstH1(headings)
	}
	if title == "" {
		title = titleFromFilename(path)
	}

	return store.ParsedDocument{
		Title:    title,
		Category: fm.Category,
		Headings: headings,
		Tags:     normalizeStringList(fm.Tags),
		Concepts: normalizeStringList(fm.Concepts),
		Links:    parseLinks(body),
		Body:     body,
		Chunks:   chunkBody(body),
	}
}

// splitFrontmatter strips a leading YAML frontmatter block from content
// and returns its parsed fields alongside the remaining body. A block
// that fails to parse as YAML is dropped silently and the full content
// (frontmatter delimiters included) is returned as the body.
func splitFrontmatter(content string) (frontmatter, string) {
	match := frontmatterPattern.FindStringSubmatchIndex(content)
	if match == nil {
		return frontmatter{}, content
	}

	raw := content[match[2]:match[3]]
	var fm frontmatter
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
		return frontmatter{}, content
	}

	return fm, content[match[1]:]
}

// normalizeStringList accepts a YAML list, a comma-separated string, or
// nil, and returns lowercase, NFC-normalized, deduplicated values.
func normalizeStringList(raw interface{}) []string {
	var values []string
	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			values = append(values, part)
		}
	}

	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = norm.NFC.String(strings.ToLower(strings.TrimSpace(v)))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func parseHeadings(body string) []store.Heading {
	matches := headingPattern.FindAllStringSubmatch(body, -1)
	headings := make([]store.Heading, 0, len(matches))
	for _, m := range matches {
		headings = append(headings, store.Heading{Level: len(m[1]), Text: strings.TrimSpace(m[2])})
	}
	return headings
}

func firstH1(headings []store.Heading) string {
	for _, h := range headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

// titleFromFilename falls back to the file's base name with separators
// turned into spaces and each word capitalized, used when a document
// carries neither a frontmatter title nor an H1.
func titleFromFilename(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ReplaceAll(strings.ReplaceAll(stem, "-", " "), "_", " ")
	words := strings.Fields(stem)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// parseLinks extracts Markdown inline links and classifies each by its
// target prefix: a fragment is an anchor, an absolute URL is external,
// everything else is a relative path within the indexed tree.
func parseLinks(body string) []store.Link {
	matches := linkPattern.FindAllStringSubmatch(body, -1)
	links := make([]store.Link, 0, len(matches))
	for _, m := range matches {
		target := strings.TrimSpace(m[2])
		links = append(links, store.Link{
			Target: target,
			Kind:   classifyLink(target),
			Status: store.LinkStatusUnknown,
		})
	}
	return links
}

func classifyLink(target string) store.LinkKind {
	switch {
	case strings.HasPrefix(target, "#"):
		return store.LinkAnchor
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"), strings.HasPrefix(target, "mailto:"):
		return store.LinkExternal
	default:
		return store.LinkInternal
	}
}

// chunkBody splits body into a paragraph window of MinChunkChars to
// MaxChunkChars, never splitting inside a fenced code block, and
// assigns each chunk a contiguous 0-based ordinal.
func chunkBody(body string) []store.Chunk {
	paragraphs := splitParagraphsAtomic(body)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []store.Chunk
	var builder strings.Builder

	flush := func() {
		text := strings.TrimSpace(builder.String())
		if text == "" {
			return
		}
		chunks = append(chunks, store.Chunk{Ordinal: len(chunks), Text: text})
		builder.Reset()
	}

	for _, para := range paragraphs {
		if builder.Len() > 0 && builder.Len()+len(para) > MaxChunkChars {
			flush()
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(para)
		if builder.Len() >= MinChunkChars {
			flush()
		}
	}
	flush()

	return chunks
}

// splitParagraphsAtomic splits body on blank lines but keeps a fenced
// code block's opening fence, body, and closing fence glued to the
// paragraph that started it, so a chunk boundary never lands inside one.
func splitParagraphsAtomic(body string) []string {
	rawParagraphs := strings.Split(body, "\n\n")

	var paragraphs []string
	var pending strings.Builder
	inFence := false

	for _, raw := range rawParagraphs {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" && !inFence {
			continue
		}

		if pending.Len() > 0 {
			pending.WriteString("\n\n")
		}
		pending.WriteString(raw)

		if countFences(raw)%2 == 1 {
			inFence = !inFence
		}

		if !inFence {
			paragraphs = append(paragraphs, strings.TrimSpace(pending.String()))
			pending.Reset()
		}
	}
	if pending.Len() > 0 {
		paragraphs = append(paragraphs, strings.TrimSpace(pending.String()))
	}

	return paragraphs
}

func countFences(s string) int {
	count := 0
	for _, line := range strings.Split(s, "\n") {
		if codeFencePattern.MatchString(strings.TrimSpace(line)) {
			count++
		}
	}
	return count
}

// ContentHash returns a short fingerprint of body, stored alongside a
// document. The restart-safety snapshot/diff compares modification times
// and does not consult this hash.
func ContentHash(body string) string {
	const prime32 = 16777619
	var hash uint32 = 2166136261
	for i := 0; i < len(body); i++ {
		hash ^= uint32(body[i])
		hash *= prime32
	}
	return strconv.Itoa(len(body)) + ":" + strconv.FormatUint(uint64(hash), 16)
}
