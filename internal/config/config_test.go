package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
app:
  name: docquery
  environment: development
server:
  address: ":9000"
auth:
  method: bearer
  bearerToken: secret-token
llm:
  provider: gemini
  gemini:
    apiKey: test-key
    model: gemini-2.0-flash
embedding:
  provider: gemini
  batchSize: 16
pipeline:
  chunkSize: 256
  chunkOverlap: 25
quota:
  embedding:
    requestsPerMinute: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Address != ":9000" {
		t.Errorf("server address = %q, want :9000", cfg.Server.Address)
	}
	if cfg.Auth.BearerToken != "secret-token" {
		t.Errorf("bearer token = %q", cfg.Auth.BearerToken)
	}
	if cfg.LLM.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("gemini model = %q", cfg.LLM.Gemini.Model)
	}
	if cfg.Embedding.BatchSize != 16 {
		t.Errorf("batch size = %d, want 16", cfg.Embedding.BatchSize)
	}
	if cfg.Pipeline.ChunkSize != 256 || cfg.Pipeline.ChunkOverlap != 25 {
		t.Errorf("chunking = %d/%d, want 256/25", cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	}
	if cfg.Quota.Embedding.RequestsPerMinute != 5 {
		t.Errorf("embedding rpm = %d, want 5", cfg.Quota.Embedding.RequestsPerMinute)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "app:\n  name: docquery\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Pipeline.ChunkSize != 512 || cfg.Pipeline.ChunkOverlap != 50 {
		t.Errorf("default chunking = %d/%d, want 512/50", cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	}
	if cfg.Pipeline.TopK != 8 {
		t.Errorf("default topK = %d, want 8", cfg.Pipeline.TopK)
	}
	if cfg.Pipeline.MaxConcurrentAnswers != 3 {
		t.Errorf("default concurrency = %d, want 3", cfg.Pipeline.MaxConcurrentAnswers)
	}
	if cfg.Quota.LLM.RequestsPerMinute != 15 {
		t.Errorf("default llm rpm = %d, want 15", cfg.Quota.LLM.RequestsPerMinute)
	}
	if cfg.Quota.LLM.TokensPerDay != 1_000_000 {
		t.Errorf("default tokens/day = %d", cfg.Quota.LLM.TokensPerDay)
	}
	if cfg.Quota.ExhaustionThreshold != 0.95 {
		t.Errorf("default exhaustion threshold = %v", cfg.Quota.ExhaustionThreshold)
	}
	if cfg.VectorStore.Provider != "memory" || cfg.Cache.Provider != "memory" {
		t.Errorf("default providers = %q/%q, want memory/memory", cfg.VectorStore.Provider, cfg.Cache.Provider)
	}
}

func TestLoadConfigChunkOverlapFallbacks(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want int
	}{
		{"omitted", "pipeline:\n  chunkSize: 512\n", 50},
		{"zero", "pipeline:\n  chunkSize: 512\n  chunkOverlap: 0\n", 50},
		{"exceeds chunk size", "pipeline:\n  chunkSize: 100\n  chunkOverlap: 200\n", 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tc.yaml))
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if cfg.Pipeline.ChunkOverlap != tc.want {
				t.Errorf("chunkOverlap = %d, want %d", cfg.Pipeline.ChunkOverlap, tc.want)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("30s", time.Minute); got != 30*time.Second {
		t.Errorf("Duration(30s) = %v", got)
	}
	if got := Duration("", time.Minute); got != time.Minute {
		t.Errorf("Duration(empty) = %v, want fallback", got)
	}
	if got := Duration("nonsense", time.Minute); got != time.Minute {
		t.Errorf("Duration(bad) = %v, want fallback", got)
	}
}
