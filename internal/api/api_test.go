package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdownkeeper/markdownkeeper/internal/embed"
	"github.com/markdownkeeper/markdownkeeper/internal/query"
	"github.com/markdownkeeper/markdownkeeper/internal/retrieval"
	"github.com/markdownkeeper/markdownkeeper/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, _, err = st.UpsertDocument(context.Background(), "a.md",
		store.ParsedDocument{Title: "Provisioning Guide", Category: "ops", Concepts: []string{"provisioning"}, Body: "one two three"},
		"hash", time.Now(), []float32{1, 0}, embed.HashModelID, nil)
	require.NoError(t, err)

	engine, err := query.New(st, embed.NewHashEmbedder())
	require.NoError(t, err)

	return New(engine, retrieval.New(st), nil)
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth_ReturnsOK(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func rpcBody(method string, params any, id int) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      id,
	}
}

func TestQuery_ReturnsRankedDocuments(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/query",
		rpcBody("semantic_query", map[string]any{"query": "one two three", "max_results": 5}, 1))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID     int `json:"id"`
		Result struct {
			Count     int              `json:"count"`
			Documents []map[string]any `json:"documents"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.ID)
	assert.Equal(t, 1, resp.Result.Count)
	assert.Equal(t, "Provisioning Guide", resp.Result.Documents[0]["title"])
}

func TestQuery_MalformedJSON_Returns400(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_EmptyQuery_Returns400(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/query",
		rpcBody("semantic_query", map[string]any{"query": ""}, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuery_UnknownMethod_Returns404(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/query",
		rpcBody("unknown_method", map[string]any{}, 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error.Code)
}

func TestGetDoc_UnknownID_Returns404(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/get_doc",
		rpcBody("get_document", map[string]any{"document_id": 999}, 2))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error.Code)
}

func TestGetDoc_WrongMethodName_Returns404(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/get_doc",
		rpcBody("semantic_query", map[string]any{"document_id": 1}, 2))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFindConcept_MatchesByConcept(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/v1/find_concept",
		rpcBody("find_by_concept", map[string]any{"concept": "provisioning"}, 3))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result struct {
			Count     int              `json:"count"`
			Documents []map[string]any `json:"documents"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Result.Count)
}

func TestUnknownRoute_Returns404(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/no-such-route", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEveryResponse_EchoesRequestID(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
