// Package vectorstore provides the chunk index backends.
package vectorstore

import (
	"context"
	"sort"
	"sync"

	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
)

var _ interfaces.VectorStore = (*MemoryStore)(nil)

// MemoryStore is an exact in-process vector index. Vectors are assumed
// to be L2-normalized, so the inner product used for scoring equals
// cosine similarity.
type MemoryStore struct {
	mutex  sync.RWMutex
	chunks map[string][]schema.Chunk // document id -> chunks
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string][]schema.Chunk)}
}

// Add indexes the chunks under their document id.
func (s *MemoryStore) Add(ctx context.Context, chunks []schema.Chunk) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.DocumentID] = append(s.chunks[chunk.DocumentID], chunk)
	}
	return nil
}

// Search scans every chunk of the document and returns up to topK
// results at or above threshold, best first. Equal scores are ordered
// by ascending chunk index.
func (s *MemoryStore) Search(ctx context.Context, documentID string, query []float32, topK int, threshold float32) ([]schema.ScoredChunk, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var scored []schema.ScoredChunk
	for _, chunk := range s.chunks[documentID] {
		score := dot(query, chunk.Embedding)
		if score >= threshold {
			scored = append(scored, schema.ScoredChunk{Chunk: chunk, Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Index < scored[j].Chunk.Index
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Drop removes all chunks of the document.
func (s *MemoryStore) Drop(ctx context.Context, documentID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.chunks, documentID)
	return nil
}

// Contains reports whether the document has indexed chunks.
func (s *MemoryStore) Contains(documentID string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.chunks[documentID]) > 0
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
