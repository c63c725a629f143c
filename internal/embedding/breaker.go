package embedding

import (
	"context"

	"docquery/internal/rag/interfaces"
	"docquery/pkg/circuitbreaker"
)

var _ interfaces.EmbeddingModel = (*BreakerModel)(nil)

// BreakerModel guards an embedding provider with a circuit breaker.
type BreakerModel struct {
	inner   interfaces.EmbeddingModel
	breaker circuitbreaker.CircuitBreaker
}

// WithBreaker wraps inner with cb.
func WithBreaker(inner interfaces.EmbeddingModel, cb circuitbreaker.CircuitBreaker) *BreakerModel {
	return &BreakerModel{inner: inner, breaker: cb}
}

func (b *BreakerModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Embed(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return res.([][]float32), nil
}
