package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"docquery/internal/cache"
	"docquery/internal/config"
	"docquery/internal/database/redis"
	"docquery/internal/embedding"
	"docquery/internal/llm"
	"docquery/internal/query_service/api"
	"docquery/internal/query_service/service"
	"docquery/internal/quota"
	"docquery/internal/rag/embeddings"
	"docquery/internal/rag/interfaces"
	"docquery/internal/rag/loaders"
	"docquery/internal/rag/pipeline"
	"docquery/internal/rag/splitters"
	"docquery/internal/rag/vectorstore"
	"docquery/pkg/circuitbreaker"
	"docquery/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("QueryService", "")
	appLogger.Info("Starting query service")

	ctx := context.Background()

	embedModel, err := embedding.New(
		cfg.Embedding.Provider,
		embeddingModelName(cfg),
		embeddingAPIKey(cfg),
		embeddingBaseURL(cfg),
	)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	llmModel, err := llm.New(
		cfg.LLM.Provider,
		llmModelName(cfg),
		llmAPIKey(cfg),
		llmBaseURL(cfg),
	)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		cb := cfg.Middleware.CircuitBreaker
		timeout := config.Duration(cb.Timeout, 30*time.Second)
		embedModel = embedding.WithBreaker(embedModel, circuitbreaker.New(cb.FailureThreshold, cb.SuccessThreshold, timeout))
		llmModel = llm.WithBreaker(llmModel, circuitbreaker.New(cb.FailureThreshold, cb.SuccessThreshold, timeout))
	}

	quotaManager := quota.NewManager(map[quota.Resource]quota.Budget{
		quota.ResourceEmbedding: {
			RequestsPerMinute: cfg.Quota.Embedding.RequestsPerMinute,
			TokensPerDay:      cfg.Quota.Embedding.TokensPerDay,
		},
		quota.ResourceLLM: {
			RequestsPerMinute: cfg.Quota.LLM.RequestsPerMinute,
			TokensPerDay:      cfg.Quota.LLM.TokensPerDay,
		},
	}, cfg.Quota.ExhaustionThreshold, config.Duration(cfg.Quota.MaxThrottleWait, 65*time.Second))

	var store cache.Cache
	switch cfg.Cache.Provider {
	case "redis":
		redisClient, err := redis.GetClient(ctx, &cfg.Databases.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		store = cache.NewRedisCache(redisClient)
	default:
		store = cache.NewMemoryCache()
	}

	var vectors interfaces.VectorStore
	switch cfg.VectorStore.Provider {
	case "milvus":
		milvusStore, err := vectorstore.NewMilvusStore(ctx, cfg.Databases.Milvus.Address, cfg.Databases.Milvus.Collection, cfg.Databases.Milvus.Dim)
		if err != nil {
			log.Fatalf("Failed to connect to Milvus: %v", err)
		}
		defer milvusStore.Close()
		vectors = milvusStore
	default:
		vectors = vectorstore.NewMemoryStore()
	}

	engine := embeddings.NewEngine(embedModel, quotaManager, cfg.Embedding.BatchSize, appLogger)
	fetcher := loaders.NewFetcher(
		&http.Client{Timeout: config.Duration(cfg.Pipeline.FetchTimeout, 120*time.Second)},
		int64(cfg.Pipeline.MaxDocumentSizeMB)<<20,
	)
	indexing := pipeline.NewIndexingPipeline(
		fetcher,
		splitters.NewSentenceSplitter(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap),
		engine,
		vectors,
		store,
		config.Duration(cfg.Pipeline.DocumentCacheTTL, 2*time.Hour),
		appLogger,
	)
	retriever := pipeline.NewRetriever(engine, vectors, cfg.Pipeline.TopK, cfg.Pipeline.SimilarityThreshold, appLogger)
	qa := pipeline.NewQAPipeline(llmModel, quotaManager, appLogger)
	orchestrator := pipeline.NewOrchestrator(
		indexing,
		retriever,
		qa,
		store,
		cfg.Pipeline.MaxConcurrentAnswers,
		config.Duration(cfg.Pipeline.AnswerCacheTTL, time.Hour),
		appLogger,
	)

	svc := service.NewQueryService(orchestrator, store, quotaManager, cfg.Pipeline.MaxQuestions, cfg.App.Version, appLogger)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(svc, config.Duration(cfg.Server.RequestTimeout, 90*time.Second), appLogger)
	router := api.SetupRouter(handler, cfg)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}
	go func() {
		appLogger.Info("HTTP server listening at " + cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server shutdown failed")
	}
	appLogger.Info("Server stopped")
}

func embeddingModelName(cfg *config.AppConfig) string {
	switch cfg.Embedding.Provider {
	case "openai":
		return cfg.Embedding.OpenAI.Model
	case "ollama":
		return cfg.Embedding.Ollama.Model
	default:
		return cfg.Embedding.Gemini.Model
	}
}

func embeddingAPIKey(cfg *config.AppConfig) string {
	switch cfg.Embedding.Provider {
	case "openai":
		return cfg.Embedding.OpenAI.APIKey
	case "ollama":
		return ""
	default:
		return cfg.Embedding.Gemini.APIKey
	}
}

func embeddingBaseURL(cfg *config.AppConfig) string {
	switch cfg.Embedding.Provider {
	case "openai":
		return cfg.Embedding.OpenAI.BaseURL
	case "ollama":
		return cfg.Embedding.Ollama.BaseURL
	default:
		return ""
	}
}

func llmModelName(cfg *config.AppConfig) string {
	switch cfg.LLM.Provider {
	case "openai":
		return cfg.LLM.OpenAI.Model
	case "ollama":
		return cfg.LLM.Ollama.Model
	default:
		return cfg.LLM.Gemini.Model
	}
}

func llmAPIKey(cfg *config.AppConfig) string {
	switch cfg.LLM.Provider {
	case "openai":
		return cfg.LLM.OpenAI.APIKey
	case "ollama":
		return ""
	default:
		return cfg.LLM.Gemini.APIKey
	}
}

func llmBaseURL(cfg *config.AppConfig) string {
	switch cfg.LLM.Provider {
	case "openai":
		return cfg.LLM.OpenAI.BaseURL
	case "ollama":
		return cfg.LLM.Ollama.BaseURL
	default:
		return ""
	}
}
