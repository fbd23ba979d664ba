// Package errors provides the structured error taxonomy shared by every
// layer of markdownkeeper: the parser, the store, the embedder, and the
// RPC surface that turns these into HTTP statuses.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: parse errors (unreadable file, malformed frontmatter)
//   - 2XX: storage errors (locked or corrupt index)
//   - 3XX: embedding errors (model unavailable or malformed vector)
//   - 4XX: request errors (not found, invalid request)
//   - 5XX: internal errors
package errors

// Category classifies an error into one of the kinds the ingestion
// pipeline and RPC layer reason about.
type Category string

const (
	// CategoryParse: frontmatter unreadable or file unreadable. The file
	// is skipped and the originating event is marked failed.
	CategoryParse Category = "parse"
	// CategoryStorage: index file locked or corrupted. The event is
	// retried on the next drain up to a small attempt cap.
	CategoryStorage Category = "storage"
	// CategoryEmbedding: model failed to load or produced a malformed
	// vector. The embedder falls back to token-hash-v1; never surfaces
	// as an event failure.
	CategoryEmbedding Category = "embedding"
	// CategoryNotFound: a read found nothing for the given id/concept.
	CategoryNotFound Category = "not_found"
	// CategoryInvalidRequest: a malformed or out-of-range RPC request.
	CategoryInvalidRequest Category = "invalid_request"
	// CategoryInternal: anything else.
	CategoryInternal Category = "internal"
)

// Severity defines error severity levels.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Error codes organized by category.
const (
	// Parse errors (100-199)
	ErrCodeParseFrontmatter = "ERR_101_PARSE_FRONTMATTER"
	ErrCodeParseUnreadable  = "ERR_102_PARSE_FILE_UNREADABLE"

	// Storage errors (200-299)
	ErrCodeStorageLocked = "ERR_201_STORAGE_LOCKED"
	ErrCodeStorageCorrupt = "ERR_202_STORAGE_CORRUPT"
	ErrCodeStorageIO      = "ERR_203_STORAGE_IO"

	// Embedding errors (300-399)
	ErrCodeEmbeddingUnavailable = "ERR_301_EMBEDDING_MODEL_UNAVAILABLE"
	ErrCodeEmbeddingMalformed  = "ERR_302_EMBEDDING_MALFORMED"

	// Request errors (400-499)
	ErrCodeNotFound       = "ERR_401_NOT_FOUND"
	ErrCodeInvalidRequest = "ERR_402_INVALID_REQUEST"
	ErrCodeInvalidQuery   = "ERR_403_INVALID_QUERY"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts the category from an error code's numeric range.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryParse
	case '2':
		return CategoryStorage
	case '3':
		return CategoryEmbedding
	case '4':
		if code == ErrCodeNotFound {
			return CategoryNotFound
		}
		return CategoryInvalidRequest
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeStorageCorrupt:
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether an error code represents a condition
// the event-queue drain should retry (see the storage attempt cap).
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeStorageLocked, ErrCodeStorageIO:
		return true
	default:
		return false
	}
}
