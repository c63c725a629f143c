package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"docquery/internal/cache"
	"docquery/pkg/logger"
)

// ErrorFallbackAnswer is returned for a question whose processing
// failed while the rest of the batch succeeded.
const ErrorFallbackAnswer = "I apologize, but I encountered an error while processing this question. Please try again."

// Answer is the outcome for one question. Err is set when the text is
// a fallback rather than a model answer; the batch itself still
// succeeds.
type Answer struct {
	Question string
	Text     string
	Cached   bool
	Err      error
}

// Orchestrator runs the full flow for a batch of questions against one
// document. Questions are answered concurrently but results keep the
// request order, and one question's failure never fails the batch.
type Orchestrator struct {
	indexing  *IndexingPipeline
	retriever *Retriever
	qa        *QAPipeline
	cache     cache.Cache
	log       *logger.Logger

	maxConcurrent int
	answerTTL     time.Duration
}

// NewOrchestrator creates an Orchestrator. maxConcurrent bounds how
// many questions are synthesized at once.
func NewOrchestrator(
	indexing *IndexingPipeline,
	retriever *Retriever,
	qa *QAPipeline,
	c cache.Cache,
	maxConcurrent int,
	answerTTL time.Duration,
	log *logger.Logger,
) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &Orchestrator{
		indexing:      indexing,
		retriever:     retriever,
		qa:            qa,
		cache:         c,
		maxConcurrent: maxConcurrent,
		answerTTL:     answerTTL,
		log:           log,
	}
}

// Process indexes the document if needed and answers every question.
// Document-level failures (fetch, parse, embedding during the build)
// fail the whole batch; per-question failures only mark that answer.
func (o *Orchestrator) Process(ctx context.Context, sourceURL string, questions []string) ([]Answer, error) {
	docID, err := o.indexing.Ensure(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	answers := make([]Answer, len(questions))

	var eg errgroup.Group
	eg.SetLimit(o.maxConcurrent)
	for i, question := range questions {
		eg.Go(func() error {
			answers[i] = o.answerOne(ctx, docID, question)
			return nil
		})
	}
	eg.Wait()

	return answers, nil
}

// answerOne serves a single question, from cache when possible.
func (o *Orchestrator) answerOne(ctx context.Context, docID, question string) Answer {
	key := cache.AnswerKey(docID, question)
	if text, ok, err := o.cache.Get(ctx, key); err == nil && ok {
		return Answer{Question: question, Text: text, Cached: true}
	}

	chunks, err := o.retriever.Retrieve(ctx, docID, question)
	if err != nil {
		o.log.WithError(err).Error("retrieval failed")
		return Answer{Question: question, Text: ErrorFallbackAnswer, Err: err}
	}

	text, err := o.qa.Run(ctx, question, chunks)
	if err != nil {
		o.log.WithError(err).Error("answer generation failed")
		return Answer{Question: question, Text: ErrorFallbackAnswer, Err: err}
	}

	if err := o.cache.Set(ctx, key, text, o.answerTTL); err != nil {
		o.log.WithError(err).Warn("failed to cache answer")
	}
	return Answer{Question: question, Text: text}
}
