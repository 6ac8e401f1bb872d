package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8086, cfg.Server.Port)
	assert.Equal(t, "raw-files", cfg.Storage.RawContainer)
	assert.Equal(t, "processed-files", cfg.Storage.ProcessedContainer)
	assert.Equal(t, 7, cfg.Storage.SignedURLTTLDays)
	assert.Equal(t, "manual_docs", cfg.Qdrant.Collection)
	assert.Equal(t, 15, cfg.Ingestion.BanThreshold)
	assert.Equal(t, 15, cfg.Ingestion.DuplicateThreshold)
	assert.Equal(t, 10, cfg.Retrieval.FullDocMaxPages)
	assert.Equal(t, 10, cfg.Retrieval.MaxImages)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.LLM.RetryDelay)
	assert.Equal(t, 300*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "memory", cfg.Cache.Driver)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
ingestion:
  ban_threshold: 12
retrieval:
  full_doc_max_pages: 20
cache:
  driver: redis
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Ingestion.BanThreshold)
	assert.Equal(t, 20, cfg.Retrieval.FullDocMaxPages)
	assert.Equal(t, "redis", cfg.Cache.Driver)

	// Untouched sections keep their defaults.
	assert.Equal(t, "manual_docs", cfg.Qdrant.Collection)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8086, cfg.Server.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7777")
	t.Setenv("QDRANT_COLLECTION", "other_docs")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REDIS_URL", "redis://cache.internal:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "other_docs", cfg.Qdrant.Collection)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache.internal:6379", cfg.Cache.Redis.Addr)
}

func TestLoad_ExplicitKeyBeatsSharedEnvKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-shared")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  api_key: sk-llm\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-llm", cfg.LLM.APIKey)
	assert.Equal(t, "sk-shared", cfg.Embedding.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "invalid cache driver",
			mutate:  func(c *Config) { c.Cache.Driver = "memcached" },
			wantErr: "invalid cache driver",
		},
		{
			name:    "ttl too small",
			mutate:  func(c *Config) { c.Storage.SignedURLTTLDays = 0 },
			wantErr: "signed_url_ttl_days",
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.Ingestion.DuplicateThreshold = -1 },
			wantErr: "thresholds",
		},
		{
			name:    "full doc pages too small",
			mutate:  func(c *Config) { c.Retrieval.FullDocMaxPages = 0 },
			wantErr: "full_doc_max_pages",
		},
		{
			name:    "negative max images",
			mutate:  func(c *Config) { c.Retrieval.MaxImages = -1 },
			wantErr: "max_images",
		},
		{
			name:    "zero embedding dimension",
			mutate:  func(c *Config) { c.Embedding.Dimension = 0 },
			wantErr: "dimension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
