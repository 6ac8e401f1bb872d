package answer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/manualbridge/manualbridge/internal/cache"
	"github.com/manualbridge/manualbridge/internal/domain"
	"github.com/manualbridge/manualbridge/internal/llm"
	"github.com/manualbridge/manualbridge/internal/observability"
	"github.com/manualbridge/manualbridge/internal/retrieval"
)

const systemPrompt = `You are a technical documentation assistant. Answer the
question using only the supplied manual content and figures. Reference steps
by their number. When a figure illustrates your answer, include its markdown
image link exactly as given. If the manual does not cover the question, say so
plainly instead of guessing.`

// Service answers questions over ingested manuals.
type Service struct {
	logger    *observability.Logger
	search    *retrieval.Service
	completer llm.Completer
	cache     cache.Client
	cacheTTL  time.Duration
	maxImages int
}

// Config holds answer service settings.
type Config struct {
	MaxImages int
	CacheTTL  time.Duration
}

// NewService creates the Q&A service. The cache client may be nil to disable
// answer caching.
func NewService(logger *observability.Logger, search *retrieval.Service, completer llm.Completer, cacheClient cache.Client, cfg Config) *Service {
	maxImages := cfg.MaxImages
	if maxImages <= 0 {
		maxImages = 10
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		logger:    logger,
		search:    search,
		completer: completer,
		cache:     cacheClient,
		cacheTTL:  ttl,
		maxImages: maxImages,
	}
}

// Answer resolves a question end to end. Failures return a structured answer
// with Success=false and a message, never an empty result.
func (s *Service) Answer(ctx context.Context, question string) *domain.Answer {
	if cached := s.fromCache(ctx, question); cached != nil {
		return cached
	}

	result := s.search.Search(ctx, question)

	switch result.Mode {
	case domain.ModeNone:
		return &domain.Answer{
			Success:      false,
			ErrorMessage: "no matching document found for this question",
		}
	case domain.ModeError:
		return &domain.Answer{
			Success:      false,
			ErrorMessage: result.ErrorMsg,
		}
	}

	payload := result.Hit.Payload
	blocks := AssembleContext(payload, result.Context, s.maxImages)

	s.logger.Debug().
		Str("mode", string(result.Mode)).
		Str("file", payload.FileName).
		Int("blocks", len(blocks)).
		Int("images", CountImages(blocks)).
		Msg("Assembled answer context")

	messages := buildMessages(question, blocks)

	completion, err := s.completer.Complete(ctx, messages)
	if err != nil {
		s.logger.Error().Err(err).Msg("Completion failed")
		return &domain.Answer{
			Success:      false,
			ErrorMessage: "completion failed: " + err.Error(),
		}
	}

	restored := RestoreSignedURLs(completion, payload.SignedURLs, payload.LLMMarkdown)

	ans := &domain.Answer{
		Success:    true,
		Markdown:   restored,
		SourceFile: payload.FileName,
		Confidence: result.Hit.Score,
	}

	s.toCache(ctx, question, ans)
	return ans
}

// buildMessages converts context blocks into the multimodal chat payload.
func buildMessages(question string, blocks []domain.ContextBlock) []llm.Message {
	parts := make([]llm.ContentPart, 0, len(blocks)+1)
	for _, block := range blocks {
		switch b := block.(type) {
		case domain.TextBlock:
			parts = append(parts, llm.TextPart(b.Text))
		case domain.ImageBlock:
			detail := b.Detail
			if detail == "" {
				detail = "low"
			}
			parts = append(parts, llm.ImagePart(b.URL, detail))
		}
	}
	parts = append(parts, llm.TextPart("Question: "+question))

	return []llm.Message{
		{Role: "system", Content: []llm.ContentPart{llm.TextPart(systemPrompt)}},
		{Role: "user", Content: parts},
	}
}

func (s *Service) fromCache(ctx context.Context, question string) *domain.Answer {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, cache.AnswerKey(question))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Msg("Answer cache read failed")
		}
		return nil
	}

	var ans domain.Answer
	if err := json.Unmarshal(data, &ans); err != nil {
		return nil
	}
	return &ans
}

func (s *Service) toCache(ctx context.Context, question string, ans *domain.Answer) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(ans)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cache.AnswerKey(question), data, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("Answer cache write failed")
	}
}

// Chunks splits an answer into fixed-size pieces for SSE streaming.
func Chunks(text string, size int) []string {
	if size <= 0 {
		size = 200
	}

	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
