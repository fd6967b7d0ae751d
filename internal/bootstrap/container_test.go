package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"avatar-engine-be/internal/config"
	"avatar-engine-be/pkg/embedding"
	"avatar-engine-be/pkg/embedding/jina"
	"avatar-engine-be/pkg/rag/window"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdsFromDefaultsMatchPlanner(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	cfg := config.Load()
	assert.Equal(t, window.DefaultThresholds(), ThresholdsFrom(cfg.Planner))
}

func TestNewEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name    string
		ai      config.AIConfig
		keys    config.APIKeys
		wantErr bool
		check   func(t *testing.T, p embedding.EmbeddingProvider)
	}{
		{
			name: "ollama",
			ai:   config.AIConfig{EmbeddingProvider: "ollama", OllamaBaseURL: "http://localhost:11434", EmbeddingModel: "nomic-embed-text"},
			check: func(t *testing.T, p embedding.EmbeddingProvider) {
				assert.IsType(t, &embedding.OllamaProvider{}, p)
			},
		},
		{
			name: "jina",
			ai:   config.AIConfig{EmbeddingProvider: "jina"},
			keys: config.APIKeys{Jina: "key"},
			check: func(t *testing.T, p embedding.EmbeddingProvider) {
				assert.IsType(t, &jina.JinaProvider{}, p)
			},
		},
		{name: "gemini without key", ai: config.AIConfig{EmbeddingProvider: "gemini"}, wantErr: true},
		{name: "openai without key", ai: config.AIConfig{EmbeddingProvider: "openai"}, wantErr: true},
		{name: "unknown", ai: config.AIConfig{EmbeddingProvider: "word2vec"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewEmbeddingProvider(tt.ai, tt.keys)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestNewLLMProvider(t *testing.T) {
	_, err := NewLLMProvider(config.AIConfig{LLMProvider: "openai"}, config.APIKeys{})
	assert.Error(t, err)

	p, err := NewLLMProvider(config.AIConfig{LLMProvider: "Ollama", OllamaBaseURL: "http://localhost:11434", LLMModel: "llama3"}, config.APIKeys{})
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestNewContainerWithMemoryStore(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Load()
	cfg.App.LogFilePath = filepath.Join(dir, "app.log")
	cfg.App.LLMTraceLogPath = filepath.Join(dir, "llm.log")
	cfg.App.RedisURL = ""
	cfg.Vector.Store = "memory"
	cfg.Index.NatsEnabled = false
	cfg.Ai.EmbeddingProvider = "ollama"
	cfg.Ai.LLMProvider = "ollama"

	c, err := NewContainer(nil, cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.AvatarController)
	assert.NotNil(t, c.IndexController)
	assert.NotNil(t, c.HealthController)
	assert.NotNil(t, c.ConsumerService)
	assert.Nil(t, c.IngestService)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	count, err := c.VectorStore.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewContainerRejectsPgvectorWithoutDB(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Load()
	cfg.App.LogFilePath = filepath.Join(dir, "app.log")
	cfg.App.LLMTraceLogPath = filepath.Join(dir, "llm.log")
	cfg.Vector.Store = "pgvector"
	cfg.Ai.EmbeddingProvider = "ollama"
	cfg.Ai.LLMProvider = "ollama"

	_, err := NewContainer(nil, cfg)
	assert.Error(t, err)
}

func TestNewContainerRejectsEmbeddingDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Load()
	cfg.App.LogFilePath = filepath.Join(dir, "app.log")
	cfg.App.LLMTraceLogPath = filepath.Join(dir, "llm.log")
	cfg.Vector.Store = "pgvector"
	cfg.Ai.EmbeddingProvider = "ollama"
	cfg.Ai.LLMProvider = "ollama"
	cfg.Ai.EmbeddingDimensions = 1024

	_, err := NewContainer(nil, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMBEDDING_DIMENSIONS is 1024")
}
