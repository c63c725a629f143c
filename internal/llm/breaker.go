package llm

import (
	"context"

	"docquery/internal/rag/interfaces"
	"docquery/pkg/circuitbreaker"
)

var _ interfaces.LLM = (*BreakerLLM)(nil)

// BreakerLLM guards an answer model with a circuit breaker so a dead
// provider fails fast instead of eating every caller's deadline.
type BreakerLLM struct {
	inner   interfaces.LLM
	breaker circuitbreaker.CircuitBreaker
}

// WithBreaker wraps inner with cb.
func WithBreaker(inner interfaces.LLM, cb circuitbreaker.CircuitBreaker) *BreakerLLM {
	return &BreakerLLM{inner: inner, breaker: cb}
}

func (b *BreakerLLM) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Generate(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}
