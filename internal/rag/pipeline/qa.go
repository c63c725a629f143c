package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docquery/internal/quota"
	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/schema"
	"docquery/pkg/logger"
)

// NoContextAnswer is returned when retrieval finds nothing relevant.
const NoContextAnswer = "I couldn't find relevant information in the document to answer this question."

const maxGenerateAttempts = 3

// QuotaGate is the slice of the quota manager the synthesizer needs.
type QuotaGate interface {
	Reserve(ctx context.Context, res quota.Resource, estimate int64) error
	Commit(res quota.Resource, tokens int64)
}

// QAPipeline turns a question and its retrieved chunks into a grounded
// answer.
type QAPipeline struct {
	llm   interfaces.LLM
	quota QuotaGate
	log   *logger.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewQAPipeline creates a QAPipeline. quota may be nil when no budget
// applies.
func NewQAPipeline(llm interfaces.LLM, q QuotaGate, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		llm:   llm,
		quota: q,
		log:   log,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run builds a grounded prompt from the chunks and asks the model.
// Transient model failures are retried with backoff, a throttled budget
// is retried once after its wait hint; context cancellation is not.
// Blank model output falls back to the no-context answer.
func (p *QAPipeline) Run(ctx context.Context, question string, chunks []schema.ScoredChunk) (string, error) {
	if len(chunks) == 0 {
		return NoContextAnswer, nil
	}

	prompt := buildPrompt(question, chunks)
	promptTokens := int64(len(prompt)) / 4

	var lastErr error
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		if p.quota != nil {
			if err := p.reserve(ctx, promptTokens); err != nil {
				return "", err
			}
		}

		answer, err := p.llm.Generate(ctx, prompt)
		if err == nil {
			answer = strings.TrimSpace(answer)
			if p.quota != nil {
				p.quota.Commit(quota.ResourceLLM, promptTokens+int64(len(answer))/4)
			}
			if answer == "" {
				return NoContextAnswer, nil
			}
			return answer, nil
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", err
		}
		lastErr = err
		p.log.WithError(err).Warn(fmt.Sprintf("answer generation attempt %d failed", attempt))

		if attempt < maxGenerateAttempts {
			if err := p.sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("%w: %v", schema.ErrSynthesis, lastErr)
}

// reserve claims an answer-model slot. A throttled budget is waited out
// once, for the duration the manager hints, before giving up.
func (p *QAPipeline) reserve(ctx context.Context, estimate int64) error {
	err := p.quota.Reserve(ctx, quota.ResourceLLM, estimate)
	var throttled *schema.ThrottleTimeoutError
	if !errors.As(err, &throttled) {
		return err
	}

	p.log.WithError(err).Warn("answer model throttled, waiting for the retry hint")
	if err := p.sleep(ctx, throttled.RetryAfter); err != nil {
		return err
	}
	return p.quota.Reserve(ctx, quota.ResourceLLM, estimate)
}

// buildPrompt numbers the context sections and instructs the model to
// stay within them.
func buildPrompt(question string, chunks []schema.ScoredChunk) string {
	var sb strings.Builder

	sb.WriteString("Based on the following context, please answer the question.\n")
	sb.WriteString("Use only the information in the context. If the context does not contain the answer, say that the information is not available in the document.\n\nContext:\n")

	for i, sc := range chunks {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("Context %d:\n%s\n", i+1, sc.Chunk.Text))
	}

	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("Question: %s", question))

	return sb.String()
}
