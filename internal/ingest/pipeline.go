// Package ingest orchestrates the manual ingestion pipeline: source
// discovery, structural parsing, step segmentation, figure filtering, asset
// publishing, markdown assembly and vector persistence.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manualbridge/manualbridge/internal/assets"
	"github.com/manualbridge/manualbridge/internal/domain"
	"github.com/manualbridge/manualbridge/internal/embedding"
	"github.com/manualbridge/manualbridge/internal/imagefilter"
	"github.com/manualbridge/manualbridge/internal/markdown"
	"github.com/manualbridge/manualbridge/internal/observability"
	"github.com/manualbridge/manualbridge/internal/parse"
	"github.com/manualbridge/manualbridge/internal/steps"
	"github.com/manualbridge/manualbridge/internal/vectorstore"
)

// Status is the terminal state of one document run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

const statusMarkerName = "status.txt"

// documentParser is the structural-parse surface the pipeline depends on.
type documentParser interface {
	Parse(ctx context.Context, pdfBytes []byte, fileName string) (*parse.ParsedDocument, error)
	RenderPages(ctx context.Context, pdfBytes []byte) ([]parse.PageRender, error)
}

// Pipeline processes one document at a time.
type Pipeline struct {
	logger    *observability.Logger
	parser    documentParser
	banSet    *imagefilter.BanSet
	source    SourceStore
	publisher *assets.Publisher
	embedder  embedding.Embedder
	store     vectorstore.Store
	config    PipelineConfig
}

// PipelineConfig holds per-run pipeline settings.
type PipelineConfig struct {
	BanThreshold       int
	DuplicateThreshold int
	CapturePageImages  bool
	ExportDir          string
}

// Result summarizes one document run.
type Result struct {
	Document        string        `json:"document"`
	FileName        string        `json:"file_name,omitempty"`
	Status          Status        `json:"status"`
	Message         string        `json:"message,omitempty"`
	TotalPages      int           `json:"total_pages,omitempty"`
	StepsBuilt      int           `json:"steps_built,omitempty"`
	AssetsPublished int           `json:"assets_published,omitempty"`
	ImagesBanned    int           `json:"images_banned,omitempty"`
	ImagesDeduped   int           `json:"images_deduped,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     time.Time     `json:"completed_at"`
	Duration        time.Duration `json:"duration"`
	Err             error         `json:"-"`
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	logger *observability.Logger,
	source SourceStore,
	publisher *assets.Publisher,
	embedder embedding.Embedder,
	store vectorstore.Store,
	banSet *imagefilter.BanSet,
	cfg PipelineConfig,
) *Pipeline {
	return &Pipeline{
		logger:    logger,
		parser:    parse.NewParser(logger),
		banSet:    banSet,
		source:    source,
		publisher: publisher,
		embedder:  embedder,
		store:     store,
		config:    cfg,
	}
}

// Ingest runs the full pipeline for one document folder. An existing status
// marker short-circuits the run with zero uploads and zero vector writes.
func (p *Pipeline) Ingest(ctx context.Context, docName string) *Result {
	log := p.logger.WithDocument(docName)
	result := &Result{
		Document:  docName,
		StartedAt: time.Now(),
	}
	defer func() {
		result.CompletedAt = time.Now()
		result.Duration = result.CompletedAt.Sub(result.StartedAt)
	}()

	log.Info().Msg("Starting ingestion")

	// Step 1: idempotency check against the status marker.
	markerPath := docName + "/" + statusMarkerName
	processed, err := p.publisher.Exists(ctx, markerPath)
	if err != nil {
		return result.fail("check status marker", err)
	}
	if processed {
		log.Info().Msg("Document already processed, skipping")
		result.Status = StatusSkipped
		result.Message = "already processed"
		return result
	}

	// Step 2: find and download the source PDF.
	files, err := p.source.List(ctx, docName)
	if err != nil {
		return result.fail("list source files", err)
	}
	pdfFile, ok := PickPDF(files)
	if !ok {
		return result.fail("find source",
			domain.NotFoundError(fmt.Sprintf("no PDF found under %s", docName), nil))
	}
	result.FileName = pdfFile.Name

	pdfBytes, err := p.source.Download(ctx, pdfFile)
	if err != nil {
		return result.fail("download source", err)
	}

	// Step 3: structural parse.
	parsed, err := p.parser.Parse(ctx, pdfBytes, pdfFile.Name)
	if err != nil {
		return result.fail("parse", err)
	}
	result.TotalPages = parsed.PageCount

	// Step 4: segment into steps.
	docSteps := steps.Build(parsed.Items)
	result.StepsBuilt = len(docSteps)

	// Step 5: filter figures and publish kept ones.
	contents, assetRefs, err := p.publishSteps(ctx, docName, docSteps, result)
	if err != nil {
		return result.fail("publish assets", err)
	}

	// Step 6: optional page-image capture.
	var pageImages map[int]string
	if p.config.CapturePageImages {
		pageImages, err = p.publishPageRenders(ctx, docName, pdfBytes)
		if err != nil {
			return result.fail("publish page renders", err)
		}
	}

	// Step 7: assemble both markdown variants.
	fullMD := markdown.Render(pdfFile.Name, contents)
	embedMD := markdown.StripURLs(fullMD)

	p.exportMarkdown(docName, fullMD, log)

	// Step 8: embed and persist.
	vector, err := p.embedder.EmbedSingle(ctx, embedMD)
	if err != nil {
		return result.fail("embed document", err)
	}

	urls := make([]string, 0, len(assetRefs))
	for _, a := range assetRefs {
		urls = append(urls, a.URL)
	}

	payload := domain.DocumentPayload{
		FileName:    pdfFile.Name,
		TotalPages:  parsed.PageCount,
		Text:        embedMD,
		LLMMarkdown: fullMD,
		SignedURLs:  urls,
		Assets:      assetRefs,
		PageImages:  pageImages,
		IngestedAt:  time.Now().UTC(),
	}
	if err := p.store.Upsert(ctx, payload, vector); err != nil {
		return result.fail("vector upsert", err)
	}

	// Step 9: best-effort status marker. The document is already persisted,
	// so a marker failure only costs an extra re-ingest later.
	if err := p.writeMarker(ctx, markerPath, pdfFile.Name); err != nil {
		log.Warn().Err(err).Msg("Failed to write status marker")
	}

	log.Info().
		Int("pages", result.TotalPages).
		Int("steps", result.StepsBuilt).
		Int("assets", result.AssetsPublished).
		Int("banned", result.ImagesBanned).
		Int("deduped", result.ImagesDeduped).
		Dur("duration", time.Since(result.StartedAt)).
		Msg("Ingestion complete")

	result.Status = StatusSucceeded
	return result
}

// IngestAll processes every document at the source, one at a time.
func (p *Pipeline) IngestAll(ctx context.Context) ([]*Result, error) {
	roots, err := p.source.Roots(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(roots))
	for _, docName := range roots {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		results = append(results, p.Ingest(ctx, docName))
	}
	return results, nil
}

// Documents lists the document names available at the source.
func (p *Pipeline) Documents(ctx context.Context) ([]string, error) {
	return p.source.Roots(ctx)
}

// publishSteps walks the steps in order, classifies each figure, and uploads
// the kept ones. The filter is fresh per run so deduplication never leaks
// across documents.
func (p *Pipeline) publishSteps(ctx context.Context, docName string, docSteps []domain.Step, result *Result) ([]markdown.StepContent, []domain.AssetRef, error) {
	filter := imagefilter.NewFilter(p.banSet, imagefilter.Config{
		BanThreshold:       p.config.BanThreshold,
		DuplicateThreshold: p.config.DuplicateThreshold,
	}, p.logger)

	contents := make([]markdown.StepContent, 0, len(docSteps))
	var assetRefs []domain.AssetRef
	figIndex := 0

	for _, step := range docSteps {
		content := markdown.StepContent{Number: step.Number, Title: step.Title}

		for _, item := range step.Items {
			switch it := item.(type) {
			case domain.TextItem:
				content.Parts = append(content.Parts, markdown.Part{Text: it.Content})

			case domain.ImageItem:
				switch filter.Classify(it.Image) {
				case imagefilter.DecisionBanned:
					result.ImagesBanned++
					continue
				case imagefilter.DecisionDuplicate:
					result.ImagesDeduped++
					continue
				case imagefilter.DecisionSkipped:
					continue
				}

				figIndex++
				id := fmt.Sprintf("fig_%d_page_%d", figIndex, it.Page)
				blobPath := fmt.Sprintf("%s/images/%s.png", docName, id)

				var buf bytes.Buffer
				if err := png.Encode(&buf, it.Image); err != nil {
					return nil, nil, domain.ParseError("Failed to encode figure", err)
				}

				url, err := p.publisher.Publish(ctx, blobPath, buf.Bytes())
				if err != nil {
					return nil, nil, err
				}

				ref := domain.AssetRef{ID: id, Page: it.Page, Step: step.Number, URL: url}
				assetRefs = append(assetRefs, ref)
				result.AssetsPublished++

				refCopy := ref
				content.Parts = append(content.Parts, markdown.Part{Asset: &refCopy})
			}
		}

		contents = append(contents, content)
	}

	return contents, assetRefs, nil
}

// publishPageRenders rasterizes and uploads every page.
func (p *Pipeline) publishPageRenders(ctx context.Context, docName string, pdfBytes []byte) (map[int]string, error) {
	renders, err := p.parser.RenderPages(ctx, pdfBytes)
	if err != nil {
		return nil, err
	}

	pageImages := make(map[int]string, len(renders))
	for _, render := range renders {
		blobPath := fmt.Sprintf("%s/pages/page_%d.png", docName, render.Page)
		url, err := p.publisher.Publish(ctx, blobPath, render.PNG)
		if err != nil {
			return nil, err
		}
		pageImages[render.Page] = url
	}
	return pageImages, nil
}

// writeMarker records a successful run.
func (p *Pipeline) writeMarker(ctx context.Context, markerPath, fileName string) error {
	marker := fmt.Sprintf("Processed: %s\nStatus: Success\nTimestamp: %s\n",
		fileName, time.Now().UTC().Format(time.RFC3339))
	return p.publisher.Upload(ctx, markerPath, []byte(marker))
}

// exportMarkdown writes a local debug copy when an export directory is
// configured. Failures are logged and swallowed.
func (p *Pipeline) exportMarkdown(docName, fullMD string, log *observability.Logger) {
	if p.config.ExportDir == "" {
		return
	}

	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, docName)

	dir := filepath.Join(p.config.ExportDir, safe)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Msg("Failed to create export directory")
		return
	}
	if err := os.WriteFile(filepath.Join(dir, "markdown.md"), []byte(fullMD), 0o644); err != nil {
		log.Warn().Err(err).Msg("Failed to export markdown")
	}
}

func (r *Result) fail(stage string, err error) *Result {
	r.Status = StatusFailed
	r.Message = fmt.Sprintf("%s: %v", stage, err)
	r.Err = err
	return r
}
