package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultOllamaHost is used when OLLAMA_HOST is unset.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// DefaultOllamaModel is the embedding model requested from Ollama.
const DefaultOllamaModel = "nomic-embed-text"

// probeTimeout bounds how long the embedder waits to discover whether
// Ollama is reachable at all, so a dead endpoint never stalls startup.
const probeTimeout = 2 * time.Second

// requestTimeout bounds a single embedding call once Ollama is known reachable.
const requestTimeout = 10 * time.Second

// ollamaEmbedRequest is the request body for Ollama's /api/embed endpoint.
type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// ollamaEmbedResponse is the response body for Ollama's /api/embed endpoint.
type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaEmbedder produces embeddings by calling a locally-running Ollama
// server's embedding API, truncating or padding every vector to
// OllamaDimensions so stores never see mixed widths from this provider.
type OllamaEmbedder struct {
	client *http.Client
	host   string
	model  string
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder constructs an embedder bound to host/model. It does not
// itself probe reachability; callers should use Available or the factory's
// probe-first resolution before relying on it.
func NewOllamaEmbedder(host, model string) *OllamaEmbedder {
	if host == "" {
		host = ollamaHostFromEnv()
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaEmbedder{
		client: &http.Client{Timeout: requestTimeout},
		host:   host,
		model:  model,
	}
}

func ollamaHostFromEnv() string {
	if h := os.Getenv("OLLAMA_HOST"); h != "" {
		return h
	}
	return DefaultOllamaHost
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, OllamaDimensions), e.ModelID(), nil
	}

	vec, err := e.embed(ctx, trimmed)
	if err != nil {
		return nil, "", err
	}
	return normalizeVector(resize(vec, OllamaDimensions)), e.ModelID(), nil
}

func (e *OllamaEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ollama: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embed returned %d: %s", resp.StatusCode, string(body))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embeddings")
	}

	vec := make([]float32, len(out.Embeddings[0]))
	for i, v := range out.Embeddings[0] {
		vec[i] = float32(v)
	}
	return vec, nil
}

// resize truncates or zero-pads v to exactly n elements.
func resize(v []float32, n int) []float32 {
	if len(v) == n {
		return v
	}
	out := make([]float32, n)
	copy(out, v)
	return out
}

// Available probes Ollama's tag-listing endpoint with a short timeout and
// never caches the result.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, e.host+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// ModelID implements Embedder.
func (e *OllamaEmbedder) ModelID() string { return "ollama:" + e.model }

// Dimensions implements Embedder.
func (e *OllamaEmbedder) Dimensions() int { return OllamaDimensions }

// Close implements Embedder.
func (e *OllamaEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
