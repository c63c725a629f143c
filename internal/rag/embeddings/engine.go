// Package embeddings wraps an embedding model with batching, L2
// normalization and quota accounting.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"math"

	"docquery/internal/quota"
	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
	"docquery/pkg/logger"
)

var _ interfaces.EmbeddingModel = (*Engine)(nil)

// Engine embeds texts in fixed-size batches. Every returned vector is
// L2-normalized so inner product search equals cosine similarity.
type Engine struct {
	model     interfaces.EmbeddingModel
	quota     *quota.Manager
	batchSize int
	log       *logger.Logger
}

// NewEngine creates an Engine around model. quota may be nil when no
// budget applies (local providers).
func NewEngine(model interfaces.EmbeddingModel, q *quota.Manager, batchSize int, log *logger.Logger) *Engine {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Engine{model: model, quota: q, batchSize: batchSize, log: log}
}

// Embed returns one normalized vector per text, in input order. Texts
// are sent to the provider in batches; a quota reservation is taken
// per batch before the provider call.
func (e *Engine) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		cost := estimateTokens(batch)

		if e.quota != nil {
			if err := e.quota.Reserve(ctx, quota.ResourceEmbedding, cost); err != nil {
				return nil, err
			}
		}

		embedded, err := e.model.Embed(ctx, batch)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", schema.ErrEmbeddingUnavailable, err)
		}
		if len(embedded) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", schema.ErrEmbeddingUnavailable, len(embedded), len(batch))
		}

		if e.quota != nil {
			e.quota.Commit(quota.ResourceEmbedding, cost)
		}

		for _, v := range embedded {
			vectors = append(vectors, Normalize(v))
		}

		e.log.WithPayload(map[string]interface{}{
			"batch_size": len(batch),
			"progress":   fmt.Sprintf("%d/%d", end, len(texts)),
		}).Debug("embedded batch")
	}
	return vectors, nil
}

// EmbedQuery returns the normalized vector for a single query text.
func (e *Engine) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Normalize scales v to unit length. Zero vectors are returned as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// estimateTokens approximates provider token usage from text length.
// Providers bill roughly one token per four characters of English.
func estimateTokens(texts []string) int64 {
	var chars int64
	for _, t := range texts {
		chars += int64(len(t))
	}
	tokens := chars / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}
