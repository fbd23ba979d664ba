package embed

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Resolve picks the process-wide embedder: probe Ollama first, fall back
// to token-hash-v1 on any probe failure or on the explicit
// MARKDOWNKEEPER_EMBEDDER=hash override. The chosen embedder is returned
// once and should be passed explicitly to the watcher and the query
// engine, never looked up from a global.
func Resolve(ctx context.Context) Embedder {
	if strings.EqualFold(os.Getenv("MARKDOWNKEEPER_EMBEDDER"), "hash") {
		slog.Info("embedder_resolved", slog.String("provider", "hash"), slog.String("reason", "env_override"))
		return NewHashEmbedder()
	}

	ollama := NewOllamaEmbedder("", "")
	if ollama.Available(ctx) {
		slog.Info("embedder_resolved", slog.String("provider", "ollama"), slog.String("model", ollama.ModelID()))
		return ollama
	}

	slog.Info("embedder_resolved", slog.String("provider", "hash"), slog.String("reason", "ollama_unavailable"))
	return NewHashEmbedder()
}
