package embeddings

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"docquery/internal/quota"
	"docquery/internal/rag/schema"
	"docquery/pkg/logger"
)

// fakeModel records batch sizes and returns fixed-dimension vectors.
type fakeModel struct {
	batches [][]string
	err     error
}

func (f *fakeModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{3, 4} // length 5 before normalization
	}
	return out, nil
}

func testLogger() *logger.Logger {
	return logger.New("embeddings-test", "")
}

func TestEmbedBatches(t *testing.T) {
	model := &fakeModel{}
	engine := NewEngine(model, nil, 2, testLogger())

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := engine.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	if len(model.batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(model.batches))
	}
	if len(model.batches[0]) != 2 || len(model.batches[2]) != 1 {
		t.Errorf("batch sizes = %d,%d,%d, want 2,2,1",
			len(model.batches[0]), len(model.batches[1]), len(model.batches[2]))
	}
}

func TestEmbedNormalizes(t *testing.T) {
	engine := NewEngine(&fakeModel{}, nil, 32, testLogger())

	vectors, err := engine.Embed(context.Background(), []string{"text"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var norm float64
	for _, x := range vectors[0] {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("squared norm = %v, want 1", norm)
	}
}

func TestEmbedWrapsProviderErrors(t *testing.T) {
	engine := NewEngine(&fakeModel{err: errors.New("upstream down")}, nil, 32, testLogger())

	_, err := engine.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, schema.ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestEmbedStopsWhenQuotaExhausted(t *testing.T) {
	q := quota.NewManager(map[quota.Resource]quota.Budget{
		quota.ResourceEmbedding: {RequestsPerMinute: 100, TokensPerDay: 100},
	}, 0.95, time.Second)
	q.Commit(quota.ResourceEmbedding, 95)

	model := &fakeModel{}
	engine := NewEngine(model, q, 32, testLogger())

	_, err := engine.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, schema.ErrQuotaExhausted) {
		t.Fatalf("err = %v, want ErrQuotaExhausted", err)
	}
	if len(model.batches) != 0 {
		t.Error("provider should not be called once the quota is exhausted")
	}
}

func TestEmbedCommitsUsage(t *testing.T) {
	q := quota.NewManager(map[quota.Resource]quota.Budget{
		quota.ResourceEmbedding: {RequestsPerMinute: 100, TokensPerDay: 1_000_000},
	}, 0.95, time.Second)

	engine := NewEngine(&fakeModel{}, q, 32, testLogger())
	if _, err := engine.Embed(context.Background(), []string{"some reasonably long chunk text"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if got := q.Usage(quota.ResourceEmbedding); got == 0 {
		t.Error("expected token usage to be committed")
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	engine := NewEngine(&fakeModel{}, nil, 32, testLogger())
	vectors, err := engine.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(nil): %v", err)
	}
	if vectors != nil {
		t.Errorf("vectors = %v, want nil", vectors)
	}
}
