package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"docquery/internal/cache"
	"docquery/internal/rag/embeddings"
	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/loaders"
	"docquery/internal/rag/schema"
	"docquery/internal/rag/splitters"
	"docquery/pkg/logger"
)

// IndexingPipeline turns a source URL into indexed chunks: fetch,
// parse, split, embed, store. Ensure deduplicates concurrent builds of
// the same document so the provider is only paid once.
type IndexingPipeline struct {
	fetcher     *loaders.Fetcher
	splitter    interfaces.Splitter
	embedder    *embeddings.Engine
	vectorStore interfaces.VectorStore
	cache       cache.Cache
	log         *logger.Logger

	documentTTL time.Duration
	group       singleflight.Group
}

// NewIndexingPipeline creates an IndexingPipeline. documentTTL bounds
// how long a processed document is considered fresh.
func NewIndexingPipeline(
	fetcher *loaders.Fetcher,
	splitter interfaces.Splitter,
	embedder *embeddings.Engine,
	vectorStore interfaces.VectorStore,
	c cache.Cache,
	documentTTL time.Duration,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		fetcher:     fetcher,
		splitter:    splitter,
		embedder:    embedder,
		vectorStore: vectorStore,
		cache:       c,
		documentTTL: documentTTL,
		log:         log,
	}
}

// DocumentID derives the stable id for a source URL.
func DocumentID(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:16])
}

// Ensure makes sure the document at sourceURL is indexed and returns
// its id. Concurrent calls for the same URL share a single build; the
// build itself is detached from any one caller's deadline so a slow
// requester timing out does not cancel work other requesters wait on.
func (p *IndexingPipeline) Ensure(ctx context.Context, sourceURL string) (string, error) {
	docID := DocumentID(sourceURL)

	key := cache.DocumentKey(sourceURL)
	if _, ok, err := p.cache.Get(ctx, key); err == nil && ok {
		p.log.WithField("document_id", docID).Debug("document already indexed")
		return docID, nil
	}

	ch := p.group.DoChan(docID, func() (interface{}, error) {
		buildCtx := context.WithoutCancel(ctx)
		if err := p.build(buildCtx, sourceURL, docID); err != nil {
			return nil, err
		}
		return docID, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return docID, nil
	}
}

// build runs the full indexing flow for one document.
func (p *IndexingPipeline) build(ctx context.Context, sourceURL, docID string) error {
	log := p.log.WithField("document_id", docID)
	log.Info("indexing document")

	doc, err := p.fetchDocument(ctx, sourceURL, docID)
	if err != nil {
		log.WithError(err).Error("failed to load document")
		return err
	}

	texts := p.splitter.Split(doc.Text)
	if len(texts) == 0 {
		return fmt.Errorf("%w: document produced no chunks", schema.ErrDocumentParse)
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		log.WithError(err).Error("failed to embed chunks")
		return err
	}

	chunks := make([]schema.Chunk, len(texts))
	for i, chunkText := range texts {
		chunks[i] = schema.Chunk{
			ID:         uuid.New().String(),
			DocumentID: docID,
			Index:      i,
			Text:       chunkText,
			Embedding:  vectors[i],
			Metadata: map[string]interface{}{
				"document_id": docID,
				"chunk_index": i,
			},
		}
	}

	// A rebuild after cache expiry must replace the old index, not
	// append to it.
	if err := p.vectorStore.Drop(ctx, docID); err != nil {
		log.WithError(err).Warn("failed to drop stale chunks")
	}
	if err := p.vectorStore.Add(ctx, chunks); err != nil {
		log.WithError(err).Error("failed to store chunks")
		return fmt.Errorf("store chunks: %w", err)
	}

	if err := p.cache.Set(ctx, cache.DocumentKey(sourceURL), docID, p.documentTTL); err != nil {
		log.WithError(err).Warn("failed to mark document as indexed")
	}

	log.WithPayload(map[string]interface{}{
		"format": doc.ContentType,
		"chunks": len(chunks),
	}).Info("document indexed")
	return nil
}

// fetchDocument downloads and parses the source into a normalized
// document.
func (p *IndexingPipeline) fetchDocument(ctx context.Context, sourceURL, docID string) (*schema.Document, error) {
	data, err := p.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	format := loaders.DetectFormat(data, sourceURL)
	loader, err := loaders.ForFormat(format)
	if err != nil {
		return nil, err
	}

	text, err := loader.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	text = splitters.Clean(text)
	if text == "" {
		return nil, fmt.Errorf("%w: document contains no text", schema.ErrDocumentParse)
	}

	return &schema.Document{
		ID:          docID,
		SourceURL:   sourceURL,
		ContentType: string(format),
		Text:        text,
	}, nil
}
