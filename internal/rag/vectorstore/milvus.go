package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
)

var _ interfaces.VectorStore = (*MilvusStore)(nil)

// MilvusStore keeps chunk vectors in a Milvus collection so the index
// survives restarts and can be shared across instances. Vectors are
// L2-normalized before insertion, making the IP metric equal to cosine
// similarity.
type MilvusStore struct {
	client     client.Client
	collection string
	dim        int
}

// NewMilvusStore connects to Milvus and ensures the collection and its
// index exist.
func NewMilvusStore(ctx context.Context, address, collection string, dim int) (*MilvusStore, error) {
	c, err := client.NewClient(ctx, client.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("connect to milvus: %w", err)
	}

	s := &MilvusStore{client: c, collection: collection, dim: dim}
	if err := s.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return s, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}

	if !exists {
		collSchema := entity.NewSchema().
			WithName(s.collection).
			WithDescription("document chunk embeddings").
			WithField(entity.NewField().WithName("id").
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName("document_id").
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName("chunk_index").
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName("text").
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName("embedding").
				WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.client.CreateCollection(ctx, collSchema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.IP, 128)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		if err := s.client.CreateIndex(ctx, s.collection, "embedding", idx, false); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

// Add inserts the chunks and flushes so they are searchable right away.
func (s *MilvusStore) Add(ctx context.Context, chunks []schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	docIDs := make([]string, len(chunks))
	indexes := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
		docIDs[i] = chunk.DocumentID
		indexes[i] = int64(chunk.Index)
		texts[i] = chunk.Text
		vectors[i] = chunk.Embedding
	}

	_, err := s.client.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnVarChar("document_id", docIDs),
		entity.NewColumnInt64("chunk_index", indexes),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnFloatVector("embedding", s.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert into milvus: %w", err)
	}

	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("flush collection: %w", err)
	}
	return nil
}

// Search queries the collection restricted to one document and applies
// the threshold and tie ordering client-side.
func (s *MilvusStore) Search(ctx context.Context, documentID string, query []float32, topK int, threshold float32) ([]schema.ScoredChunk, error) {
	sp, err := entity.NewIndexIvfFlatSearchParam(10)
	if err != nil {
		return nil, fmt.Errorf("build search param: %w", err)
	}

	expr := fmt.Sprintf("document_id == %q", documentID)
	results, err := s.client.Search(
		ctx,
		s.collection,
		nil,
		expr,
		[]string{"document_id", "chunk_index", "text"},
		[]entity.Vector{entity.FloatVector(query)},
		"embedding",
		entity.IP,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("search milvus: %w", err)
	}

	var scored []schema.ScoredChunk
	for _, result := range results {
		idxCol, _ := result.Fields.GetColumn("chunk_index").(*entity.ColumnInt64)
		textCol, _ := result.Fields.GetColumn("text").(*entity.ColumnVarChar)
		if idxCol == nil || textCol == nil {
			continue
		}
		for i := 0; i < result.ResultCount; i++ {
			score := result.Scores[i]
			if score < threshold {
				continue
			}
			chunkIdx, err := idxCol.ValueByIdx(i)
			if err != nil {
				continue
			}
			text, err := textCol.ValueByIdx(i)
			if err != nil {
				continue
			}
			scored = append(scored, schema.ScoredChunk{
				Chunk: schema.Chunk{
					DocumentID: documentID,
					Index:      int(chunkIdx),
					Text:       text,
				},
				Score: score,
			})
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

// Drop deletes all chunks of the document from the collection.
func (s *MilvusStore) Drop(ctx context.Context, documentID string) error {
	expr := fmt.Sprintf("document_id == %q", documentID)
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("delete from milvus: %w", err)
	}
	return nil
}

// Close releases the Milvus connection.
func (s *MilvusStore) Close() {
	if s.client != nil {
		s.client.Close()
	}
}
