// Package app wires configuration into the concrete service graph shared by
// the API server and the CLI.
package app

import (
	"context"

	"github.com/manualbridge/manualbridge/internal/answer"
	"github.com/manualbridge/manualbridge/internal/assets"
	"github.com/manualbridge/manualbridge/internal/cache"
	"github.com/manualbridge/manualbridge/internal/config"
	"github.com/manualbridge/manualbridge/internal/embedding"
	"github.com/manualbridge/manualbridge/internal/imagefilter"
	"github.com/manualbridge/manualbridge/internal/ingest"
	"github.com/manualbridge/manualbridge/internal/llm"
	"github.com/manualbridge/manualbridge/internal/observability"
	"github.com/manualbridge/manualbridge/internal/retrieval"
	"github.com/manualbridge/manualbridge/internal/sharepoint"
	"github.com/manualbridge/manualbridge/internal/vectorstore"
)

// Options tweaks the wiring.
type Options struct {
	// UseSharePoint pulls source documents from the configured SharePoint
	// drive instead of the raw blob container.
	UseSharePoint bool
}

// App is the wired service graph.
type App struct {
	Config    *config.Config
	Logger    *observability.Logger
	BlobStore assets.BlobStore
	Pipeline  *ingest.Pipeline
	Retrieval *retrieval.Service
	Answer    *answer.Service
	Cache     cache.Client
}

// Build constructs the full service graph from configuration. Missing
// credentials for optional backends degrade to in-memory substitutes with a
// warning; a broken required configuration is an error.
func Build(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts Options) (*App, error) {
	blobStore, err := buildBlobStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	publisher := assets.NewPublisher(blobStore, cfg.Storage.ProcessedContainer, cfg.Storage.SignedURLTTLDays, logger)

	source, err := buildSource(cfg, logger, blobStore, opts)
	if err != nil {
		return nil, err
	}

	embedder := buildEmbedder(cfg, logger)

	store := vectorstore.NewQdrant(vectorstore.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Timeout:    cfg.Qdrant.Timeout,
	})
	if err := store.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		return nil, err
	}

	banSet, err := imagefilter.LoadBanSet(cfg.Ingestion.BannedImagesDir, logger)
	if err != nil {
		return nil, err
	}

	pipeline := ingest.NewPipeline(logger, source, publisher, embedder, store, banSet, ingest.PipelineConfig{
		BanThreshold:       cfg.Ingestion.BanThreshold,
		DuplicateThreshold: cfg.Ingestion.DuplicateThreshold,
		CapturePageImages:  cfg.Ingestion.CapturePageImages,
		ExportDir:          cfg.Ingestion.ExportDir,
	})

	searchSvc := retrieval.NewService(logger, embedder, store, retrieval.Config{
		FullDocMaxPages: cfg.Retrieval.FullDocMaxPages,
	})

	completer := llm.NewClient(llm.Config{
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
		RetryDelay: cfg.LLM.RetryDelay,
	})

	cacheClient := buildCache(cfg, logger)

	answerSvc := answer.NewService(logger, searchSvc, completer, cacheClient, answer.Config{
		MaxImages: cfg.Retrieval.MaxImages,
		CacheTTL:  cfg.Cache.TTL,
	})

	return &App{
		Config:    cfg,
		Logger:    logger,
		BlobStore: blobStore,
		Pipeline:  pipeline,
		Retrieval: searchSvc,
		Answer:    answerSvc,
		Cache:     cacheClient,
	}, nil
}

func buildBlobStore(ctx context.Context, cfg *config.Config, logger *observability.Logger) (assets.BlobStore, error) {
	if cfg.Storage.ConnectionString == "" {
		logger.Warn().Msg("No storage connection string, using in-memory blob store")
		return assets.NewMemoryStore(), nil
	}

	azure, err := assets.NewAzureStore(cfg.Storage.ConnectionString)
	if err != nil {
		return nil, err
	}

	for _, container := range []string{cfg.Storage.RawContainer, cfg.Storage.ProcessedContainer} {
		if err := azure.EnsureContainer(ctx, container); err != nil {
			return nil, err
		}
	}
	return azure, nil
}

func buildSource(cfg *config.Config, logger *observability.Logger, blobStore assets.BlobStore, opts Options) (ingest.SourceStore, error) {
	if !opts.UseSharePoint {
		return ingest.NewBlobSource(blobStore, cfg.Storage.RawContainer), nil
	}

	client, err := sharepoint.NewClient(sharepoint.Config{
		TenantID:     cfg.SharePoint.TenantID,
		ClientID:     cfg.SharePoint.ClientID,
		ClientSecret: cfg.SharePoint.ClientSecret,
		SiteID:       cfg.SharePoint.SiteID,
		DriveID:      cfg.SharePoint.DriveID,
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("folder", cfg.SharePoint.FolderPath).Msg("Using SharePoint document source")
	return ingest.NewSharePointSource(client, cfg.SharePoint.FolderPath), nil
}

func buildEmbedder(cfg *config.Config, logger *observability.Logger) embedding.Embedder {
	if cfg.Embedding.APIKey == "" {
		logger.Warn().Msg("No embedding API key, using mock embedder")
		return embedding.NewMockClient(cfg.Embedding.Dimension)
	}

	client, err := embedding.NewClient(embedding.Config{
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Embedding client init failed, using mock embedder")
		return embedding.NewMockClient(cfg.Embedding.Dimension)
	}
	return client
}

func buildCache(cfg *config.Config, logger *observability.Logger) cache.Client {
	if cfg.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err == nil {
			return client
		}
		logger.Warn().Err(err).Msg("Redis unavailable, falling back to memory cache")
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries)
}
