package pipeline

import (
	"context"
	"fmt"

	"docquery/internal/rag/embeddings"
	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
	"docquery/pkg/logger"
)

// Retriever finds the chunks of a document most relevant to a question.
type Retriever struct {
	embedder    *embeddings.Engine
	vectorStore interfaces.VectorStore
	topK        int
	threshold   float64
	log         *logger.Logger
}

// NewRetriever creates a Retriever returning at most topK chunks per
// question, dropping matches below threshold.
func NewRetriever(embedder *embeddings.Engine, vectorStore interfaces.VectorStore, topK int, threshold float64, log *logger.Logger) *Retriever {
	return &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		topK:        topK,
		threshold:   threshold,
		log:         log,
	}
}

// Retrieve embeds the question and searches the document's chunks.
func (r *Retriever) Retrieve(ctx context.Context, documentID, question string) ([]schema.ScoredChunk, error) {
	query, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	scored, err := r.vectorStore.Search(ctx, documentID, query, r.topK, float32(r.threshold))
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	r.log.WithPayload(map[string]interface{}{
		"document_id": documentID,
		"matches":     len(scored),
	}).Debug("retrieved context chunks")
	return scored, nil
}
