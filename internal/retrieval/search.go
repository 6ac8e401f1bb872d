// Package retrieval embeds questions and selects how much of a stored
// document should back the answer.
package retrieval

import (
	"context"

	"github.com/manualbridge/manualbridge/internal/domain"
	"github.com/manualbridge/manualbridge/internal/embedding"
	"github.com/manualbridge/manualbridge/internal/observability"
	"github.com/manualbridge/manualbridge/internal/vectorstore"
)

// SearchResult carries the selected mode plus the matched document, if any.
type SearchResult struct {
	Mode     domain.RetrievalMode
	Hit      *domain.RetrievalHit
	Context  string
	ErrorMsg string
}

// Service performs top-1 semantic search with mode selection.
type Service struct {
	logger          *observability.Logger
	embedder        embedding.Embedder
	store           vectorstore.Store
	fullDocMaxPages int
}

// Config holds retrieval settings.
type Config struct {
	FullDocMaxPages int
}

// NewService creates a retrieval service.
func NewService(logger *observability.Logger, embedder embedding.Embedder, store vectorstore.Store, cfg Config) *Service {
	maxPages := cfg.FullDocMaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	return &Service{
		logger:          logger,
		embedder:        embedder,
		store:           store,
		fullDocMaxPages: maxPages,
	}
}

// Search embeds the query, fetches the nearest document, and decides the
// retrieval mode. Small documents with a known file name are answered against
// their full markdown; larger ones fall back to the matched chunk text.
// Transport or embedding failures surface as mode error, never as a silent
// empty result.
func (s *Service) Search(ctx context.Context, query string) SearchResult {
	vector, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		s.logger.Error().Err(err).Msg("Query embedding failed")
		return SearchResult{Mode: domain.ModeError, ErrorMsg: "embedding failed: " + err.Error()}
	}

	hits, err := s.store.Search(ctx, vector, 1)
	if err != nil {
		s.logger.Error().Err(err).Msg("Vector search failed")
		return SearchResult{Mode: domain.ModeError, ErrorMsg: "vector search failed: " + err.Error()}
	}

	if len(hits) == 0 {
		return SearchResult{Mode: domain.ModeNone}
	}

	hit := hits[0]
	s.logger.Debug().
		Str("file", hit.Payload.FileName).
		Int("pages", hit.Payload.TotalPages).
		Float64("score", hit.Score).
		Msg("Nearest document")

	if hit.Payload.TotalPages <= s.fullDocMaxPages && hit.Payload.FileName != "" {
		return SearchResult{
			Mode:    domain.ModeFullDoc,
			Hit:     &hit,
			Context: hit.Payload.LLMMarkdown,
		}
	}

	return SearchResult{
		Mode:    domain.ModeChunk,
		Hit:     &hit,
		Context: hit.Payload.Text,
	}
}
