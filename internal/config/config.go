package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic application metadata.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"` // "development" or "production"
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address        string `yaml:"address"`
	RequestTimeout string `yaml:"requestTimeout"` // per-request deadline, e.g. "90s"
}

// AuthConfig configures the authentication method for the API.
type AuthConfig struct {
	Method      string `yaml:"method"`      // "bearer" or "jwt"
	BearerToken string `yaml:"bearerToken"` // static token for method "bearer"
	JwtSecret   string `yaml:"jwtSecret"`   // HMAC secret for method "jwt"
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// GeminiConfig holds the settings for Google Gemini models.
type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// OpenAIConfig holds the settings for OpenAI-compatible endpoints.
type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

// OllamaConfig holds the settings for a local Ollama server.
type OllamaConfig struct {
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

// LLMConfig selects and configures the answer model provider.
type LLMConfig struct {
	Provider string       `yaml:"provider"` // "gemini", "openai" or "ollama"
	Gemini   GeminiConfig `yaml:"gemini"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Ollama   OllamaConfig `yaml:"ollama"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string       `yaml:"provider"` // "gemini", "openai" or "ollama"
	BatchSize int          `yaml:"batchSize"`
	Gemini    GeminiConfig `yaml:"gemini"`
	OpenAI    OpenAIConfig `yaml:"openai"`
	Ollama    OllamaConfig `yaml:"ollama"`
}

// PipelineConfig tunes document processing and retrieval.
type PipelineConfig struct {
	ChunkSize            int     `yaml:"chunkSize"`    // characters per chunk
	ChunkOverlap         int     `yaml:"chunkOverlap"` // characters carried between chunks
	TopK                 int     `yaml:"topK"`
	SimilarityThreshold  float64 `yaml:"similarityThreshold"`
	MaxQuestions         int     `yaml:"maxQuestions"`
	MaxConcurrentAnswers int     `yaml:"maxConcurrentAnswers"`
	MaxDocumentSizeMB    int     `yaml:"maxDocumentSizeMB"`
	FetchTimeout         string  `yaml:"fetchTimeout"`
	DocumentCacheTTL     string  `yaml:"documentCacheTTL"`
	AnswerCacheTTL       string  `yaml:"answerCacheTTL"`
}

// QuotaBudget describes the provider budget for one resource.
type QuotaBudget struct {
	RequestsPerMinute int   `yaml:"requestsPerMinute"`
	TokensPerDay      int64 `yaml:"tokensPerDay"`
}

// QuotaConfig configures the shared quota manager.
type QuotaConfig struct {
	Embedding           QuotaBudget `yaml:"embedding"`
	LLM                 QuotaBudget `yaml:"llm"`
	ExhaustionThreshold float64     `yaml:"exhaustionThreshold"` // fraction of daily tokens treated as exhausted
	MaxThrottleWait     string      `yaml:"maxThrottleWait"`     // how long a caller may block on a throttled resource
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MilvusConfig holds the Milvus connection and collection settings.
type MilvusConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
	Dim        int    `yaml:"dim"`
}

// DatabaseConfigs groups the external storage backends.
type DatabaseConfigs struct {
	Redis  RedisConfig  `yaml:"redis"`
	Milvus MilvusConfig `yaml:"milvus"`
}

// VectorStoreConfig selects the vector index backend.
type VectorStoreConfig struct {
	Provider string `yaml:"provider"` // "memory" or "milvus"
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Provider string `yaml:"provider"` // "memory" or "redis"
}

// RateLimiterConfig configures the inbound request limiter.
type RateLimiterConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	Algorithm      string               `yaml:"algorithm"` // "fixedWindow", "slidingCounter" or "tokenBucket"
	FixedWindow    FixedWindowConfig    `yaml:"fixedWindow"`
	SlidingCounter SlidingCounterConfig `yaml:"slidingCounter"`
	TokenBucket    TokenBucketConfig    `yaml:"tokenBucket"`
}

// FixedWindowConfig configures the fixed window counter algorithm.
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // e.g. "1m", "30s"
}

// SlidingCounterConfig configures the sliding window counter algorithm.
type SlidingCounterConfig struct {
	Limit      int    `yaml:"limit"`
	Window     string `yaml:"window"`
	NumBuckets int    `yaml:"numBuckets"`
}

// TokenBucketConfig configures the token bucket algorithm.
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // tokens per second
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig configures the breaker guarding model calls.
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // e.g. "30s"
}

// MiddlewareConfig groups the middleware settings.
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App         AppInfo           `yaml:"app"`
	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	Logger      LoggerConfig      `yaml:"logger"`
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Quota       QuotaConfig       `yaml:"quota"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	Cache       CacheConfig       `yaml:"cache"`
	Databases   DatabaseConfigs   `yaml:"databases"`
	Middleware  MiddlewareConfig  `yaml:"middleware"`
}

// LoadConfig reads and parses the YAML configuration file at path,
// filling unset fields with defaults.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8000"
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "90s"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Pipeline.ChunkSize <= 0 {
		c.Pipeline.ChunkSize = 512
	}
	// Chunks always overlap; an omitted or out-of-range value gets the
	// default rather than silently disabling the carry-over.
	if c.Pipeline.ChunkOverlap <= 0 || c.Pipeline.ChunkOverlap >= c.Pipeline.ChunkSize {
		c.Pipeline.ChunkOverlap = 50
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = 8
	}
	if c.Pipeline.SimilarityThreshold <= 0 {
		c.Pipeline.SimilarityThreshold = 0.3
	}
	if c.Pipeline.MaxQuestions <= 0 {
		c.Pipeline.MaxQuestions = 20
	}
	if c.Pipeline.MaxConcurrentAnswers <= 0 {
		c.Pipeline.MaxConcurrentAnswers = 3
	}
	if c.Pipeline.MaxDocumentSizeMB <= 0 {
		c.Pipeline.MaxDocumentSizeMB = 100
	}
	if c.Pipeline.FetchTimeout == "" {
		c.Pipeline.FetchTimeout = "120s"
	}
	if c.Pipeline.DocumentCacheTTL == "" {
		c.Pipeline.DocumentCacheTTL = "2h"
	}
	if c.Pipeline.AnswerCacheTTL == "" {
		c.Pipeline.AnswerCacheTTL = "1h"
	}
	if c.Quota.Embedding.RequestsPerMinute <= 0 {
		c.Quota.Embedding.RequestsPerMinute = 15
	}
	if c.Quota.Embedding.TokensPerDay <= 0 {
		c.Quota.Embedding.TokensPerDay = 1_000_000
	}
	if c.Quota.LLM.RequestsPerMinute <= 0 {
		c.Quota.LLM.RequestsPerMinute = 15
	}
	if c.Quota.LLM.TokensPerDay <= 0 {
		c.Quota.LLM.TokensPerDay = 1_000_000
	}
	if c.Quota.ExhaustionThreshold <= 0 || c.Quota.ExhaustionThreshold > 1 {
		c.Quota.ExhaustionThreshold = 0.95
	}
	if c.Quota.MaxThrottleWait == "" {
		c.Quota.MaxThrottleWait = "65s"
	}
	if c.VectorStore.Provider == "" {
		c.VectorStore.Provider = "memory"
	}
	if c.Cache.Provider == "" {
		c.Cache.Provider = "memory"
	}
}

// Duration parses a duration-typed config value, falling back to def
// when the value is empty or malformed.
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
