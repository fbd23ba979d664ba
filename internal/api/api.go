// Package api implements the HTTP RPC surface: health check, semantic
// query, document retrieval, and concept lookup, backed by the query and
// retrieval packages.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	mkerr "github.com/markdownkeeper/markdownkeeper/internal/errors"
	"github.com/markdownkeeper/markdownkeeper/internal/query"
	"github.com/markdownkeeper/markdownkeeper/internal/retrieval"
)

// Server wires the HTTP handlers to the query engine and retrieval helpers.
type Server struct {
	router  chi.Router
	engine  *query.Engine
	helpers *retrieval.Helpers
	logger  *slog.Logger
}

// New constructs a Server bound to engine and helpers.
func New(engine *query.Engine, helpers *retrieval.Helpers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	s := &Server{router: r, engine: engine, helpers: helpers, logger: logger}

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Post("/query", s.handleQuery)
		v1.Post("/get_doc", s.handleGetDoc)
		v1.Post("/find_concept", s.handleFindConcept)
	})
	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)

	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, nil, mkerr.NotFoundError("no such route"))
}

// Method names expected in the JSON-RPC envelope's "method" field, one
// per routed path. A request whose method doesn't match its path's
// expectation is rejected as if the method didn't exist at all — the
// path alone is not enough to dispatch.
const (
	methodSemanticQuery = "semantic_query"
	methodGetDocument   = "get_document"
	methodFindByConcept = "find_by_concept"
)

// rpcRequest is the JSON-RPC 2.0 style envelope every POST body arrives
// in: {"jsonrpc":"2.0","method":"...","params":{...},"id":...}. id is
// kept raw so it can be echoed back verbatim regardless of whether the
// caller used a number, string, or null.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

// decodeRPC parses the envelope and checks that its method matches
// expected, returning a 404 NotFoundError (matching "unknown method ⇒
// 404") when it doesn't.
func decodeRPC(r *http.Request, expected string) (*rpcRequest, error) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, mkerr.InvalidRequestError("malformed JSON body")
	}
	if req.Method != expected {
		return nil, mkerr.NotFoundError("unknown method: " + req.Method)
	}
	return &req, nil
}

type queryParams struct {
	Query          string `json:"query"`
	MaxResults     int    `json:"max_results"`
	IncludeContent bool   `json:"include_content"`
	MaxTokens      int    `json:"max_tokens"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	envelope, err := decodeRPC(r, methodSemanticQuery)
	if err != nil {
		writeError(w, r, mkerr.HTTPStatus(err), nil, err)
		return
	}

	var params queryParams
	if err := json.Unmarshal(envelope.Params, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, envelope.ID, mkerr.InvalidRequestError("malformed params"))
		return
	}
	if params.Query == "" {
		writeError(w, r, http.StatusBadRequest, envelope.ID, mkerr.InvalidRequestError("query must not be empty"))
		return
	}

	results, err := s.engine.Search(r.Context(), params.Query, params.MaxResults)
	if err != nil {
		writeAnyError(w, r, envelope.ID, err)
		return
	}

	documents := make([]documentSummary, 0, len(results))
	for _, res := range results {
		summary := documentSummaryFromStore(res.Document)
		summary.Score = &res.Score
		if params.IncludeContent {
			view, err := s.helpers.GetDocument(r.Context(), res.Document.ID, true, params.MaxTokens)
			if err == nil {
				summary.Content = view.Content
			}
		}
		documents = append(documents, summary)
	}

	writeResult(w, r, http.StatusOK, envelope.ID, map[string]any{
		"count":     len(documents),
		"documents": documents,
	})
}

type getDocParams struct {
	DocumentID     int64 `json:"document_id"`
	IncludeContent bool  `json:"include_content"`
	MaxTokens      int   `json:"max_tokens"`
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	envelope, err := decodeRPC(r, methodGetDocument)
	if err != nil {
		writeError(w, r, mkerr.HTTPStatus(err), nil, err)
		return
	}

	var params getDocParams
	if err := json.Unmarshal(envelope.Params, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, envelope.ID, mkerr.InvalidRequestError("malformed params"))
		return
	}

	view, err := s.helpers.GetDocument(r.Context(), params.DocumentID, params.IncludeContent, params.MaxTokens)
	if err != nil {
		writeAnyError(w, r, envelope.ID, err)
		return
	}

	writeResult(w, r, http.StatusOK, envelope.ID, documentViewResponse(view))
}

type findConceptParams struct {
	Concept    string `json:"concept"`
	MaxResults int    `json:"max_results"`
}

func (s *Server) handleFindConcept(w http.ResponseWriter, r *http.Request) {
	envelope, err := decodeRPC(r, methodFindByConcept)
	if err != nil {
		writeError(w, r, mkerr.HTTPStatus(err), nil, err)
		return
	}

	var params findConceptParams
	if err := json.Unmarshal(envelope.Params, &params); err != nil {
		writeError(w, r, http.StatusBadRequest, envelope.ID, mkerr.InvalidRequestError("malformed params"))
		return
	}
	if params.Concept == "" {
		writeError(w, r, http.StatusBadRequest, envelope.ID, mkerr.InvalidRequestError("concept must not be empty"))
		return
	}

	docs, err := s.helpers.FindByConcept(r.Context(), params.Concept, params.MaxResults)
	if err != nil {
		writeAnyError(w, r, envelope.ID, err)
		return
	}

	documents := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		documents = append(documents, documentSummaryFromStore(d))
	}

	writeResult(w, r, http.StatusOK, envelope.ID, map[string]any{
		"count":     len(documents),
		"documents": documents,
	})
}

// writeAnyError maps a non-*mkerr.Error into an internal error before
// writing the response, so every failure path goes through writeError.
func writeAnyError(w http.ResponseWriter, r *http.Request, id json.RawMessage, err error) {
	writeError(w, r, mkerr.HTTPStatus(err), id, err)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", middleware.GetReqID(r.Context()))
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeResult wraps payload as the "result" of a JSON-RPC 2.0 style
// response, echoing id back verbatim.
func writeResult(w http.ResponseWriter, r *http.Request, status int, id json.RawMessage, payload any) {
	writeJSON(w, r, status, map[string]any{
		"jsonrpc": "2.0",
		"id":      rawOrNull(id),
		"result":  payload,
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, id json.RawMessage, err error) {
	code := mkerr.GetCode(err)
	if code == "" {
		code = "internal_error"
	}
	writeJSON(w, r, status, map[string]any{
		"jsonrpc": "2.0",
		"id":      rawOrNull(id),
		"error": map[string]string{
			"code":    code,
			"message": err.Error(),
		},
		"request_id": middleware.GetReqID(r.Context()),
	})
}

func rawOrNull(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
