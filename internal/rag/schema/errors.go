package schema

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the stages of the pipeline. Handlers map these to
// HTTP status codes, so wrap rather than replace them.
var (
	// ErrValidation marks a malformed request (bad URL, bad questions).
	ErrValidation = errors.New("validation failed")
	// ErrDocumentFetch marks a failure to download the source document.
	ErrDocumentFetch = errors.New("document fetch failed")
	// ErrDocumentParse marks a failure to extract text from the document.
	ErrDocumentParse = errors.New("document parse failed")
	// ErrEmbeddingUnavailable marks an embedding provider failure.
	ErrEmbeddingUnavailable = errors.New("embedding generation failed")
	// ErrSynthesis marks an answer model failure.
	ErrSynthesis = errors.New("answer synthesis failed")
	// ErrQuotaExhausted means the daily token budget is spent; callers
	// should not retry until the budget resets.
	ErrQuotaExhausted = errors.New("daily quota exhausted")
	// ErrThrottleTimeout means a throttled resource did not free up
	// within the caller's wait budget.
	ErrThrottleTimeout = errors.New("throttled: rate limit wait exceeded")
)

// ThrottleTimeoutError carries the hint for how long to wait before the
// resource is expected to free up.
type ThrottleTimeoutError struct {
	Resource   string
	RetryAfter time.Duration
}

func (e *ThrottleTimeoutError) Error() string {
	return fmt.Sprintf("%s throttled, retry after %s", e.Resource, e.RetryAfter)
}

func (e *ThrottleTimeoutError) Unwrap() error { return ErrThrottleTimeout }
