// Package llm provides interfaces.LLM adapters for the supported
// answer model providers.
package llm

import (
	"fmt"

	"docquery/internal/rag/interfaces"
)

// New creates an answer model for the given provider. baseURL is only
// used by providers that serve from a configurable endpoint.
func New(provider, model, apiKey, baseURL string) (interfaces.LLM, error) {
	switch provider {
	case "gemini":
		return NewGemini(model, apiKey)
	case "openai":
		return NewOpenAI(model, apiKey, baseURL)
	case "ollama":
		return NewOllama(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
