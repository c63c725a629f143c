// Package service implements the query workflow behind the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"docquery/internal/cache"
	"docquery/internal/models"
	"docquery/internal/quota"
	"docquery/internal/rag/pipeline"
	"docquery/internal/rag/schema"
	"docquery/pkg/logger"
)

const (
	minQuestionLength = 3
	maxQuestionLength = 500
	metricsTTL        = 24 * time.Hour
)

var urlRe = regexp.MustCompile(`^https?://\S+$`)

// QueryService validates requests, runs the pipeline and records
// session metrics.
type QueryService struct {
	orchestrator *pipeline.Orchestrator
	cache        cache.Cache
	quota        *quota.Manager
	maxQuestions int
	version      string
	log          *logger.Logger
}

// NewQueryService creates a QueryService.
func NewQueryService(
	orchestrator *pipeline.Orchestrator,
	c cache.Cache,
	q *quota.Manager,
	maxQuestions int,
	version string,
	log *logger.Logger,
) *QueryService {
	if maxQuestions <= 0 {
		maxQuestions = 20
	}
	return &QueryService{
		orchestrator: orchestrator,
		cache:        c,
		quota:        q,
		maxQuestions: maxQuestions,
		version:      version,
		log:          log,
	}
}

// Run answers every question in the request against the document. The
// returned slice keeps the request order. Per-question failures are
// reported as fallback answers, not as errors.
func (s *QueryService) Run(ctx context.Context, req *models.RunRequest) (*models.RunResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	questions := make([]string, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = strings.TrimSpace(q)
	}

	sessionID := uuid.New().String()
	start := time.Now()

	answers, err := s.orchestrator.Process(ctx, req.Documents, questions)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(answers))
	answered, failed, cached := 0, 0, 0
	for i, answer := range answers {
		texts[i] = answer.Text
		switch {
		case answer.Err != nil:
			failed++
		case answer.Cached:
			cached++
			answered++
		default:
			answered++
		}
	}

	s.recordMetrics(ctx, models.SessionMetrics{
		SessionID:  sessionID,
		DocumentID: pipeline.DocumentID(req.Documents),
		Questions:  len(questions),
		Answered:   answered,
		Failed:     failed,
		Cached:     cached,
		DurationMS: time.Since(start).Milliseconds(),
	})

	return &models.RunResponse{Answers: texts}, nil
}

// Health reports liveness plus the standing of every provider budget.
func (s *QueryService) Health(ctx context.Context) *models.HealthResponse {
	states := map[string]string{}
	if s.quota != nil {
		states[string(quota.ResourceEmbedding)] = string(s.quota.StateOf(quota.ResourceEmbedding))
		states[string(quota.ResourceLLM)] = string(s.quota.StateOf(quota.ResourceLLM))
	}
	return &models.HealthResponse{
		Status:  "ok",
		Version: s.version,
		Quota:   states,
	}
}

func (s *QueryService) validate(req *models.RunRequest) error {
	if req.Documents == "" {
		return fmt.Errorf("%w: documents URL is required", schema.ErrValidation)
	}
	if !urlRe.MatchString(req.Documents) {
		return fmt.Errorf("%w: documents must be an http(s) URL", schema.ErrValidation)
	}
	if len(req.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", schema.ErrValidation)
	}
	if len(req.Questions) > s.maxQuestions {
		return fmt.Errorf("%w: at most %d questions per request", schema.ErrValidation, s.maxQuestions)
	}
	for i, q := range req.Questions {
		trimmed := strings.TrimSpace(q)
		if len(trimmed) < minQuestionLength {
			return fmt.Errorf("%w: question %d is too short", schema.ErrValidation, i+1)
		}
		if len(trimmed) > maxQuestionLength {
			return fmt.Errorf("%w: question %d exceeds %d characters", schema.ErrValidation, i+1, maxQuestionLength)
		}
	}
	return nil
}

// recordMetrics stores the session summary; metrics are best effort
// and never fail a request.
func (s *QueryService) recordMetrics(ctx context.Context, m models.SessionMetrics) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.MetricsKey(m.SessionID), string(data), metricsTTL); err != nil {
		s.log.WithError(err).Warn("failed to record session metrics")
	}
	s.log.WithPayload(map[string]interface{}{
		"session_id": m.SessionID,
		"questions":  m.Questions,
		"answered":   m.Answered,
		"failed":     m.Failed,
		"cached":     m.Cached,
		"duration":   m.DurationMS,
	}).Info("request processed")
}
