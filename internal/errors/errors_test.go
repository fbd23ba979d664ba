package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	err := New(ErrCodeParseUnreadable, "file not found: test.md", originalErr)

	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "parse error",
			code:     ErrCodeParseUnreadable,
			message:  "could not read file",
			expected: "[ERR_102_PARSE_FILE_UNREADABLE] could not read file",
		},
		{
			name:     "storage error",
			code:     ErrCodeStorageLocked,
			message:  "index is locked",
			expected: "[ERR_201_STORAGE_LOCKED] index is locked",
		},
		{
			name:     "embedding error",
			code:     ErrCodeEmbeddingUnavailable,
			message:  "model unavailable",
			expected: "[ERR_301_EMBEDDING_MODEL_UNAVAILABLE] model unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeStorageLocked, "index A locked", nil)
	err2 := New(ErrCodeStorageLocked, "index B locked", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeStorageLocked, "locked", nil)
	err2 := New(ErrCodeNotFound, "missing", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestError_WithDetail_AddsContext(t *testing.T) {
	err := New(ErrCodeParseUnreadable, "bad file", nil)

	err = err.WithDetail("path", "/foo/bar.md")
	err = err.WithDetail("size", "1024")

	assert.Equal(t, "/foo/bar.md", err.Details["path"])
	assert.Equal(t, "1024", err.Details["size"])
}

func TestError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeParseUnreadable, CategoryParse},
		{ErrCodeParseFrontmatter, CategoryParse},
		{ErrCodeStorageLocked, CategoryStorage},
		{ErrCodeStorageCorrupt, CategoryStorage},
		{ErrCodeEmbeddingUnavailable, CategoryEmbedding},
		{ErrCodeNotFound, CategoryNotFound},
		{ErrCodeInvalidRequest, CategoryInvalidRequest},
		{ErrCodeInvalidQuery, CategoryInvalidRequest},
		{ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeStorageCorrupt, SeverityFatal},
		{ErrCodeParseUnreadable, SeverityError},
		{ErrCodeStorageLocked, SeverityWarning}, // retryable, so warning
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeStorageLocked, true},
		{ErrCodeStorageIO, true},
		{ErrCodeParseUnreadable, false},
		{ErrCodeStorageCorrupt, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	err := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInternal, err.Code)
	assert.Equal(t, "something went wrong", err.Message)
	assert.Equal(t, originalErr, err.Cause)
}

func TestParseError_CreatesParseCategoryError(t *testing.T) {
	err := ParseError("malformed frontmatter", nil)

	assert.Equal(t, CategoryParse, err.Category)
}

func TestStorageError_CreatesRetryableError(t *testing.T) {
	err := StorageError("index locked", nil)

	assert.Equal(t, CategoryStorage, err.Category)
	assert.True(t, err.Retryable)
}

func TestNotFoundError_CreatesNotFoundCategoryError(t *testing.T) {
	err := NotFoundError("document 42 not found")

	assert.Equal(t, CategoryNotFound, err.Category)
}

func TestInvalidRequestError_CreatesInvalidRequestCategoryError(t *testing.T) {
	err := InvalidRequestError("query cannot be empty")

	assert.Equal(t, CategoryInvalidRequest, err.Category)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"retryable storage error", New(ErrCodeStorageLocked, "locked", nil), true},
		{"non-retryable parse error", New(ErrCodeParseUnreadable, "unreadable", nil), false},
		{"wrapped retryable error", Wrap(ErrCodeStorageLocked, errors.New("wrapped")), true},
		{"standard error", errors.New("standard error"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"fatal storage error", New(ErrCodeStorageCorrupt, "index corrupt", nil), true},
		{"non-fatal error", New(ErrCodeParseUnreadable, "unreadable", nil), false},
		{"standard error", errors.New("standard error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestHTTPStatus_MapsCategoryToStatus(t *testing.T) {
	assert.Equal(t, 404, HTTPStatus(NotFoundError("missing")))
	assert.Equal(t, 400, HTTPStatus(InvalidRequestError("bad request")))
	assert.Equal(t, 500, HTTPStatus(InternalError("boom", nil)))
	assert.Equal(t, 500, HTTPStatus(errors.New("plain error")))
}
