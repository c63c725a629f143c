package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"docquery/internal/cache"
	"docquery/internal/config"
	"docquery/internal/models"
	"docquery/internal/rag/embeddings"
	"docquery/internal/rag/loaders"
	"docquery/internal/query_service/service"
	"docquery/internal/rag/pipeline"
	"docquery/internal/rag/schema"
	"docquery/internal/rag/splitters"
	"docquery/internal/rag/vectorstore"
	"docquery/pkg/logger"
)

const sampleDocument = "The policy covers accidental damage from day one. " +
	"A deductible of two hundred dollars applies to every claim. " +
	"Claims are settled within fifteen business days."

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubLLM struct{}

func (stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if i := strings.LastIndex(prompt, "Question: "); i >= 0 {
		return "answer to: " + prompt[i+len("Question: "):], nil
	}
	return "generated answer", nil
}

func newRouter(t *testing.T, cfg *config.AppConfig) (*gin.Engine, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	docs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleDocument))
	}))
	t.Cleanup(docs.Close)

	log := logger.New("api-test", "")
	engine := embeddings.NewEngine(stubEmbedder{}, nil, 32, log)
	store := vectorstore.NewMemoryStore()
	c := cache.NewMemoryCache()

	indexing := pipeline.NewIndexingPipeline(
		loaders.NewFetcher(docs.Client(), 1<<20),
		splitters.NewSentenceSplitter(120, 20),
		engine,
		store,
		c,
		time.Hour,
		log,
	)
	retriever := pipeline.NewRetriever(engine, store, 8, 0, log)
	qa := pipeline.NewQAPipeline(stubLLM{}, nil, log)
	orchestrator := pipeline.NewOrchestrator(indexing, retriever, qa, c, 3, time.Hour, log)
	svc := service.NewQueryService(orchestrator, c, nil, 20, "test", log)

	h := NewHandler(svc, 30*time.Second, log)
	return SetupRouter(h, cfg), docs
}

func bearerConfig(token string) *config.AppConfig {
	return &config.AppConfig{
		Auth: config.AuthConfig{Method: "bearer", BearerToken: token},
	}
}

func postRun(r *gin.Engine, token string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hackrx/run", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRunEndpoint(t *testing.T) {
	r, docs := newRouter(t, bearerConfig("secret-token"))

	w := postRun(r, "secret-token", models.RunRequest{
		Documents: docs.URL,
		Questions: []string{"What is the deductible?"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp models.RunResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Answers) != 1 || !strings.Contains(resp.Answers[0], "deductible") {
		t.Errorf("unexpected answers: %v", resp.Answers)
	}
}

func TestRunEndpointRejectsBadToken(t *testing.T) {
	r, docs := newRouter(t, bearerConfig("secret-token"))

	for _, token := range []string{"", "wrong-token"} {
		w := postRun(r, token, models.RunRequest{
			Documents: docs.URL,
			Questions: []string{"What is the deductible?"},
		})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, w.Code)
		}
	}
}

func TestRunEndpointRejectsMalformedBody(t *testing.T) {
	r, _ := newRouter(t, bearerConfig("secret-token"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hackrx/run", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRunEndpointValidationFailure(t *testing.T) {
	r, _ := newRouter(t, bearerConfig("secret-token"))

	w := postRun(r, "secret-token", models.RunRequest{
		Documents: "not a url",
		Questions: []string{"What is the deductible?"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRunEndpointUnfetchableDocument(t *testing.T) {
	r, docs := newRouter(t, bearerConfig("secret-token"))
	docs.Close()

	w := postRun(r, "secret-token", models.RunRequest{
		Documents: docs.URL,
		Questions: []string{"What is the deductible?"},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body = %s", w.Code, w.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newRouter(t, bearerConfig("secret-token"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestJWTAuth(t *testing.T) {
	cfg := &config.AppConfig{
		Auth: config.AuthConfig{Method: "jwt", JwtSecret: "jwt-secret"},
	}
	r, docs := newRouter(t, cfg)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("jwt-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	w := postRun(r, signed, models.RunRequest{
		Documents: docs.URL,
		Questions: []string{"What is the deductible?"},
	})
	if w.Code != http.StatusOK {
		t.Errorf("valid jwt: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = postRun(r, "not.a.jwt", models.RunRequest{
		Documents: docs.URL,
		Questions: []string{"What is the deductible?"},
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("invalid jwt: status = %d, want 401", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := bearerConfig("secret-token")
	cfg.Middleware.RateLimiter = config.RateLimiterConfig{
		Enabled:     true,
		Algorithm:   "fixedWindow",
		FixedWindow: config.FixedWindowConfig{Limit: 2, Window: "1m"},
	}
	r, docs := newRouter(t, cfg)

	var last int
	for i := 0; i < 3; i++ {
		w := postRun(r, "secret-token", models.RunRequest{
			Documents: docs.URL,
			Questions: []string{fmt.Sprintf("What is clause %d about?", i)},
		})
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d, want 429", last)
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{schema.ErrValidation, http.StatusBadRequest},
		{schema.ErrDocumentFetch, http.StatusUnprocessableEntity},
		{schema.ErrDocumentParse, http.StatusUnprocessableEntity},
		{schema.ErrQuotaExhausted, http.StatusServiceUnavailable},
		{schema.ErrThrottleTimeout, http.StatusServiceUnavailable},
		{&schema.ThrottleTimeoutError{Resource: "llm", RetryAfter: time.Second}, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusRequestTimeout},
		{schema.ErrSynthesis, http.StatusInternalServerError},
		{schema.ErrEmbeddingUnavailable, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusForError(fmt.Errorf("wrapped: %w", tc.err)); got != tc.want {
			t.Errorf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
