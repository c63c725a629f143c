// Package embedding provides interfaces.EmbeddingModel adapters for
// the supported providers.
package embedding

import (
	"fmt"

	"docquery/internal/rag/interfaces"
)

// New creates an embedding model for the given provider. baseURL is
// only used by providers that serve from a configurable endpoint.
func New(provider, model, apiKey, baseURL string) (interfaces.EmbeddingModel, error) {
	switch provider {
	case "gemini":
		return NewGeminiModel(model, apiKey)
	case "openai":
		return NewOpenAIModel(model, apiKey, baseURL)
	case "ollama":
		return NewOllamaModel(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
}
