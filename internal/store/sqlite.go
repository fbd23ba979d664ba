package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	mkerr "github.com/markdownkeeper/markdownkeeper/internal/errors"
)

// schema creates every table the store owns. Dependent rows (headings,
// tags, concepts, chunks, embeddings, links) cascade on document delete;
// the event queue is independent of any document row so a delete event
// can be queued for a path the store has already forgotten.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	path          TEXT NOT NULL UNIQUE,
	title         TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	body          TEXT NOT NULL DEFAULT '',
	content_hash  TEXT NOT NULL DEFAULT '',
	modified_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS headings (
	doc_id  INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	level   INTEGER NOT NULL,
	text    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_headings_doc ON headings(doc_id);

CREATE TABLE IF NOT EXISTS tags (
	doc_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	tag    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tags_doc ON tags(doc_id);
CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag);

CREATE TABLE IF NOT EXISTS concepts (
	doc_id  INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	concept TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_concepts_doc ON concepts(doc_id);
CREATE INDEX IF NOT EXISTS idx_concepts_concept ON concepts(concept);

CREATE TABLE IF NOT EXISTS chunks (
	doc_id  INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	text    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);

CREATE TABLE IF NOT EXISTS embeddings (
	doc_id  INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	scope   TEXT NOT NULL,
	ordinal INTEGER NOT NULL DEFAULT 0,
	model_id TEXT NOT NULL,
	vector   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_embeddings_doc_scope ON embeddings(doc_id, scope);

CREATE TABLE IF NOT EXISTS links (
	doc_id     INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	target     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'unknown',
	checked_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_links_doc ON links(doc_id);

CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	path        TEXT NOT NULL,
	type        TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'queued',
	enqueued_at DATETIME NOT NULL,
	attempts    INTEGER NOT NULL DEFAULT 0,
	code        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
CREATE INDEX IF NOT EXISTS idx_events_path_status ON events(path, status);
`

// Store owns the single sqlite file backing the index: one write
// connection so upserts and event-queue transitions never interleave,
// and a separate read-only pool for concurrent queries.
type Store struct {
	writeDB *sql.DB
	readDB  *sql.DB
	path    string
}

// Open initializes the database at path (creating it and its schema if
// absent) and returns a Store ready for concurrent use.
func Open(path string) (*Store, error) {
	writeDB, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, mkerr.StorageError("open write connection", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := writeDB.Exec(pragma); err != nil {
			_ = writeDB.Close()
			return nil, mkerr.StorageError("apply pragma "+pragma, err)
		}
	}

	if _, err := writeDB.Exec(schema); err != nil {
		_ = writeDB.Close()
		return nil, mkerr.StorageError("create schema", err)
	}

	readDB, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&mode=ro")
	if err != nil {
		_ = writeDB.Close()
		return nil, mkerr.StorageError("open read connection", err)
	}
	if _, err := readDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, mkerr.StorageError("apply read pragma", err)
	}

	return &Store{writeDB: writeDB, readDB: readDB, path: path}, nil
}

// Close releases both connection pools.
func (s *Store) Close() error {
	werr := s.writeDB.Close()
	rerr := s.readDB.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// UpsertDocument replaces every dependent row for path's document in one
// transaction: a document that already exists is fully replaced, not
// merged, so a rename of a heading or removal of a tag takes effect.
// docEmbedding/docModelID and chunkEmbeddings carry pre-computed vectors;
// the store never calls the embedder itself. Returns the document id and
// whether this path is new.
func (s *Store) UpsertDocument(
	ctx context.Context,
	path string,
	parsed ParsedDocument,
	contentHash string,
	modifiedAt time.Time,
	docEmbedding []float32,
	docModelID string,
	chunkEmbeddings []ChunkEmbeddingInput,
) (docID int64, created bool, err error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, mkerr.StorageError("begin upsert transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE path = ?`, path).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		created = true
	case err != nil:
		return 0, false, mkerr.StorageError("lookup existing document", err)
	default:
		docID = existingID
	}

	if created {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO documents (path, title, category, body, content_hash, modified_at) VALUES (?, ?, ?, ?, ?, ?)`,
			path, parsed.Title, parsed.Category, parsed.Body, contentHash, modifiedAt)
		if err != nil {
			return 0, false, mkerr.StorageError("insert document", err)
		}
		docID, err = res.LastInsertId()
		if err != nil {
			return 0, false, mkerr.StorageError("read inserted document id", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET title = ?, category = ?, body = ?, content_hash = ?, modified_at = ? WHERE id = ?`,
			parsed.Title, parsed.Category, parsed.Body, contentHash, modifiedAt, docID); err != nil {
			return 0, false, mkerr.StorageError("update document", err)
		}
		for _, table := range []string{"headings", "tags", "concepts", "chunks", "embeddings", "links"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE doc_id = ?`, docID); err != nil {
				return 0, false, mkerr.StorageError("clear existing "+table, err)
			}
		}
	}

	for i, h := range parsed.Headings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO headings (doc_id, ordinal, level, text) VALUES (?, ?, ?, ?)`,
			docID, i, h.Level, h.Text); err != nil {
			return 0, false, mkerr.StorageError("insert heading", err)
		}
	}

	for _, tag := range parsed.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tags (doc_id, tag) VALUES (?, ?)`, docID, tag); err != nil {
			return 0, false, mkerr.StorageError("insert tag", err)
		}
	}

	for _, concept := range parsed.Concepts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO concepts (doc_id, concept) VALUES (?, ?)`, docID, concept); err != nil {
			return 0, false, mkerr.StorageError("insert concept", err)
		}
	}

	for _, chunk := range parsed.Chunks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (doc_id, ordinal, text) VALUES (?, ?, ?)`,
			docID, chunk.Ordinal, chunk.Text); err != nil {
			return 0, false, mkerr.StorageError("insert chunk", err)
		}
	}

	for _, link := range parsed.Links {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO links (doc_id, target, kind, status, checked_at) VALUES (?, ?, ?, ?, ?)`,
			docID, link.Target, string(link.Kind), string(link.Status), link.CheckedAt); err != nil {
			return 0, false, mkerr.StorageError("insert link", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO embeddings (doc_id, scope, ordinal, model_id, vector) VALUES (?, ?, 0, ?, ?)`,
		docID, string(ScopeDocument), docModelID, encodeVector(docEmbedding)); err != nil {
		return 0, false, mkerr.StorageError("insert document embedding", err)
	}

	for _, ce := range chunkEmbeddings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO embeddings (doc_id, scope, ordinal, model_id, vector) VALUES (?, ?, ?, ?, ?)`,
			docID, string(ScopeChunk), ce.Ordinal, ce.ModelID, encodeVector(ce.Vector)); err != nil {
			return 0, false, mkerr.StorageError("insert chunk embedding", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, mkerr.StorageError("commit upsert", err)
	}
	return docID, created, nil
}

// ChunkEmbeddingInput pairs a chunk ordinal with its pre-computed vector,
// used as UpsertDocument input.
type ChunkEmbeddingInput struct {
	Ordinal int
	ModelID string
	Vector  []float32
}

// DeleteByPath removes a document and every dependent row (cascading via
// foreign keys). It is a no-op if path is not tracked.
func (s *Store) DeleteByPath(ctx context.Context, path string) error {
	_, err := s.writeDB.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return mkerr.StorageError("delete document by path", err)
	}
	return nil
}

// ListDocuments returns every tracked document, ordered by path.
func (s *Store) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT id, path, title, category, body, content_hash, modified_at FROM documents ORDER BY path`)
	if err != nil {
		return nil, mkerr.StorageError("list documents", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(&d.ID, &d.Path, &d.Title, &d.Category, &d.Body, &d.ContentHash, &d.ModifiedAt); err != nil {
			return nil, mkerr.StorageError("scan document row", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetDocument returns the document with id, or a not-found error.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	d := &Document{}
	err := s.readDB.QueryRowContext(ctx,
		`SELECT id, path, title, category, body, content_hash, modified_at FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Path, &d.Title, &d.Category, &d.Body, &d.ContentHash, &d.ModifiedAt)
	if err == sql.ErrNoRows {
		return nil, mkerr.NotFoundError(fmt.Sprintf("no document with id %d", id))
	}
	if err != nil {
		return nil, mkerr.StorageError("get document", err)
	}
	return d, nil
}

// FindByConcept returns documents tagged with concept (case-insensitive
// exact match), ordered by title, capped at limit.
func (s *Store) FindByConcept(ctx context.Context, concept string, limit int) ([]*Document, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT d.id, d.path, d.title, d.category, d.body, d.content_hash, d.modified_at
		FROM documents d
		JOIN concepts c ON c.doc_id = d.id
		WHERE LOWER(c.concept) = LOWER(?)
		ORDER BY d.title
		LIMIT ?`, concept, limit)
	if err != nil {
		return nil, mkerr.StorageError("find by concept", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(&d.ID, &d.Path, &d.Title, &d.Category, &d.Body, &d.ContentHash, &d.ModifiedAt); err != nil {
			return nil, mkerr.StorageError("scan concept row", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetHeadings returns a document's outline in order.
func (s *Store) GetHeadings(ctx context.Context, docID int64) ([]Heading, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT level, text FROM headings WHERE doc_id = ? ORDER BY ordinal`, docID)
	if err != nil {
		return nil, mkerr.StorageError("get headings", err)
	}
	defer rows.Close()

	var headings []Heading
	for rows.Next() {
		var h Heading
		if err := rows.Scan(&h.Level, &h.Text); err != nil {
			return nil, mkerr.StorageError("scan heading row", err)
		}
		headings = append(headings, h)
	}
	return headings, rows.Err()
}

// GetTags returns a document's frontmatter tags.
func (s *Store) GetTags(ctx context.Context, docID int64) ([]string, error) {
	return s.stringColumn(ctx, `SELECT tag FROM tags WHERE doc_id = ? ORDER BY tag`, docID)
}

// GetConcepts returns a document's frontmatter concepts.
func (s *Store) GetConcepts(ctx context.Context, docID int64) ([]string, error) {
	return s.stringColumn(ctx, `SELECT concept FROM concepts WHERE doc_id = ? ORDER BY concept`, docID)
}

func (s *Store) stringColumn(ctx context.Context, query string, docID int64) ([]string, error) {
	rows, err := s.readDB.QueryContext(ctx, query, docID)
	if err != nil {
		return nil, mkerr.StorageError("query string column", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, mkerr.StorageError("scan string column", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// GetLinks returns a document's outbound links.
func (s *Store) GetLinks(ctx context.Context, docID int64) ([]Link, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT target, kind, status, checked_at FROM links WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, mkerr.StorageError("get links", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		var kind, status string
		var checkedAt sql.NullTime
		if err := rows.Scan(&l.Target, &kind, &status, &checkedAt); err != nil {
			return nil, mkerr.StorageError("scan link row", err)
		}
		l.Kind = LinkKind(kind)
		l.Status = LinkStatus(status)
		if checkedAt.Valid {
			l.CheckedAt = checkedAt.Time
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// UpdateLinkStatus records the outcome of checking one link's target,
// used by the link checker collaborator rather than a full document
// upsert since checking links doesn't change a document's content.
func (s *Store) UpdateLinkStatus(ctx context.Context, docID int64, target string, status LinkStatus, checkedAt time.Time) error {
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE links SET status = ?, checked_at = ? WHERE doc_id = ? AND target = ?`,
		string(status), checkedAt, docID, target)
	if err != nil {
		return mkerr.StorageError("update link status", err)
	}
	return nil
}

// ListDocumentVectors returns every document-scoped embedding, for the
// query engine's cosine scan.
func (s *Store) ListDocumentVectors(ctx context.Context) ([]DocumentVector, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT e.doc_id, e.model_id, e.vector, d.modified_at
		FROM embeddings e
		JOIN documents d ON d.id = e.doc_id
		WHERE e.scope = ?`, string(ScopeDocument))
	if err != nil {
		return nil, mkerr.StorageError("list document vectors", err)
	}
	defer rows.Close()

	var out []DocumentVector
	for rows.Next() {
		var dv DocumentVector
		var raw []byte
		if err := rows.Scan(&dv.DocID, &dv.ModelID, &raw, &dv.ModifiedAt); err != nil {
			return nil, mkerr.StorageError("scan document vector row", err)
		}
		dv.Vector = decodeVector(raw)
		out = append(out, dv)
	}
	return out, rows.Err()
}

// ListChunkVectors returns every chunk-scoped embedding, for the query
// engine's best-chunk reduction.
func (s *Store) ListChunkVectors(ctx context.Context) ([]ChunkVector, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT doc_id, ordinal, model_id, vector FROM embeddings WHERE scope = ?`, string(ScopeChunk))
	if err != nil {
		return nil, mkerr.StorageError("list chunk vectors", err)
	}
	defer rows.Close()

	var out []ChunkVector
	for rows.Next() {
		var cv ChunkVector
		var raw []byte
		if err := rows.Scan(&cv.DocID, &cv.Ordinal, &cv.ModelID, &raw); err != nil {
			return nil, mkerr.StorageError("scan chunk vector row", err)
		}
		cv.Vector = decodeVector(raw)
		out = append(out, cv)
	}
	return out, rows.Err()
}

// encodeVector serializes a float32 vector as a comma-separated string.
// The corpus is small enough (documentation trees, not web-scale corpora)
// that a compact binary codec isn't worth the complexity; a text column
// keeps the schema readable under sqlite3(1) during development.
func encodeVector(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return strings.Join(parts, ",")
}

func decodeVector(raw []byte) []float32 {
	s := string(raw)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		var f float64
		_, _ = fmt.Sscanf(p, "%g", &f)
		out[i] = float32(f)
	}
	return out
}
