package interfaces

import (
	"context"

	"docquery/internal/rag/schema"
)

// Loader extracts plain text from the raw bytes of one document format.
type Loader interface {
	// Load parses data and returns the extracted text.
	Load(ctx context.Context, data []byte) (string, error)
}

// Splitter cuts document text into chunks for embedding.
type Splitter interface {
	// Split returns the chunk texts in document order.
	Split(text string) []string
}

// EmbeddingModel turns texts into vectors.
type EmbeddingModel interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM generates text from a prompt.
type LLM interface {
	// Generate returns the model's completion for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorStore indexes chunk embeddings and serves similarity search.
type VectorStore interface {
	// Add indexes the chunks under their document id.
	Add(ctx context.Context, chunks []schema.Chunk) error
	// Search returns up to topK chunks of the document most similar to
	// the query vector, best first. Chunks scoring below threshold are
	// dropped. Ties are broken by ascending chunk index.
	Search(ctx context.Context, documentID string, query []float32, topK int, threshold float32) ([]schema.ScoredChunk, error)
	// Drop removes all chunks of the document from the index.
	Drop(ctx context.Context, documentID string) error
}
