// Package config provides unified configuration loading for ManualBridge.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the ingestion and answering services.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	SharePoint    SharePointConfig    `yaml:"sharepoint"`
	Qdrant        QdrantConfig        `yaml:"qdrant"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	LLM           LLMConfig           `yaml:"llm"`
	Ingestion     IngestionConfig     `yaml:"ingestion"`
	Retrieval     RetrievalConfig     `yaml:"retrieval"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// StorageConfig holds Azure blob storage settings.
type StorageConfig struct {
	ConnectionString   string `yaml:"connection_string"`
	RawContainer       string `yaml:"raw_container"`
	ProcessedContainer string `yaml:"processed_container"`
	SignedURLTTLDays   int    `yaml:"signed_url_ttl_days"`
}

// SharePointConfig holds Microsoft Graph settings for the SharePoint source.
type SharePointConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	SiteID       string `yaml:"site_id"`
	DriveID      string `yaml:"drive_id"`
	FolderPath   string `yaml:"folder_path"`
}

// QdrantConfig holds vector store settings.
type QdrantConfig struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LLMConfig holds chat completion settings.
type LLMConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// IngestionConfig holds pipeline settings.
type IngestionConfig struct {
	BannedImagesDir    string `yaml:"banned_images_dir"`
	BanThreshold       int    `yaml:"ban_threshold"`
	DuplicateThreshold int    `yaml:"duplicate_threshold"`
	CapturePageImages  bool   `yaml:"capture_page_images"`
	ExportDir          string `yaml:"export_dir"`
}

// RetrievalConfig holds search and context assembly settings.
type RetrievalConfig struct {
	FullDocMaxPages int `yaml:"full_doc_max_pages"`
	MaxImages       int `yaml:"max_images"`
}

// CacheConfig holds answer cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8086,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     5 * time.Minute,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   5 * time.Minute,
			GracefulShutdown: 10 * time.Second,
		},
		Storage: StorageConfig{
			RawContainer:       "raw-files",
			ProcessedContainer: "processed-files",
			SignedURLTTLDays:   7,
		},
		Qdrant: QdrantConfig{
			URL:        "http://localhost:6333",
			Collection: "manual_docs",
			Timeout:    15 * time.Second,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
			Timeout:   30 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "gpt-4o",
			Timeout:    300 * time.Second,
			MaxRetries: 3,
			RetryDelay: 3 * time.Second,
		},
		Ingestion: IngestionConfig{
			BanThreshold:       15,
			DuplicateThreshold: 15,
			CapturePageImages:  false,
		},
		Retrieval: RetrievalConfig{
			FullDocMaxPages: 10,
			MaxImages:       10,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        10 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "manualbridge",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Storage.SignedURLTTLDays < 1 {
		return fmt.Errorf("signed_url_ttl_days must be at least 1")
	}

	if c.Ingestion.BanThreshold < 0 || c.Ingestion.DuplicateThreshold < 0 {
		return fmt.Errorf("perceptual hash thresholds must be non-negative")
	}

	if c.Retrieval.FullDocMaxPages < 1 {
		return fmt.Errorf("full_doc_max_pages must be at least 1")
	}

	if c.Retrieval.MaxImages < 0 {
		return fmt.Errorf("max_images must be non-negative")
	}

	if c.Embedding.Dimension < 1 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("AZURE_STORAGE_CONNECTION_STRING"); v != "" {
		cfg.Storage.ConnectionString = v
	}

	if v := os.Getenv("AZURE_RAW_CONTAINER"); v != "" {
		cfg.Storage.RawContainer = v
	}

	if v := os.Getenv("AZURE_PROCESSED_CONTAINER"); v != "" {
		cfg.Storage.ProcessedContainer = v
	}

	if v := os.Getenv("QDRANT_URL"); v != "" {
		cfg.Qdrant.URL = v
	}

	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		cfg.Qdrant.APIKey = v
	}

	if v := os.Getenv("QDRANT_COLLECTION"); v != "" {
		cfg.Qdrant.Collection = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = v
		}
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = v
		}
	}

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("SHAREPOINT_TENANT_ID"); v != "" {
		cfg.SharePoint.TenantID = v
	}

	if v := os.Getenv("SHAREPOINT_CLIENT_ID"); v != "" {
		cfg.SharePoint.ClientID = v
	}

	if v := os.Getenv("SHAREPOINT_CLIENT_SECRET"); v != "" {
		cfg.SharePoint.ClientSecret = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("BANNED_IMAGES_DIR"); v != "" {
		cfg.Ingestion.BannedImagesDir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
