// Package parse extracts ordered text and figure items from PDF manuals.
package parse

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"image"
	_ "image/jpeg"
	"image/png"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/manualbridge/manualbridge/internal/domain"
	"github.com/manualbridge/manualbridge/internal/observability"
)

var (
	imgTagRe   = regexp.MustCompile(`<img[^>]*src="data:image/[a-zA-Z]+;base64,([^"]+)"[^>]*>`)
	blockEndRe = regexp.MustCompile(`</(p|div|h[1-6]|li|tr)>|<br\s*/?>`)
	anyTagRe   = regexp.MustCompile(`<[^>]+>`)
)

// ParsedDocument is the ordered content of one manual.
type ParsedDocument struct {
	Items     []domain.DocumentItem
	PageCount int
}

// PageRender is a full page rasterized to PNG.
type PageRender struct {
	Page int
	PNG  []byte
}

// Parser turns PDF bytes into ordered document items.
type Parser struct {
	logger *observability.Logger
}

// NewParser creates a structural parser.
func NewParser(logger *observability.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts text runs and figures page by page, preserving document
// order. Figures that fail to decode are skipped with a warning.
func (p *Parser) Parse(ctx context.Context, pdfBytes []byte, fileName string) (*ParsedDocument, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return nil, domain.ParseError("Failed to open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.ValidationError("PDF has no pages", nil)
	}

	parsed := &ParsedDocument{PageCount: pageCount}
	seq := 0

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pageHTML, err := doc.HTML(pageNum, false)
		if err != nil {
			return nil, domain.ParseError(fmt.Sprintf("Failed to export page %d", pageNum+1), err)
		}

		items := p.tokenizePage(pageHTML, pageNum+1, &seq)
		parsed.Items = append(parsed.Items, items...)
	}

	p.logger.Debug().
		Str("file", fileName).
		Int("pages", pageCount).
		Int("items", len(parsed.Items)).
		Msg("Parsed PDF structure")

	return parsed, nil
}

// tokenizePage splits one page's HTML export into interleaved text and image
// items in source order.
func (p *Parser) tokenizePage(pageHTML string, page int, seq *int) []domain.DocumentItem {
	var items []domain.DocumentItem

	cursor := 0
	for _, loc := range imgTagRe.FindAllStringSubmatchIndex(pageHTML, -1) {
		items = append(items, p.textItems(pageHTML[cursor:loc[0]], page, seq)...)

		b64 := pageHTML[loc[2]:loc[3]]
		if img := p.decodeImage(b64, page); img != nil {
			items = append(items, domain.ImageItem{Image: img, Page: page, Seq: *seq})
			*seq++
		}

		cursor = loc[1]
	}

	items = append(items, p.textItems(pageHTML[cursor:], page, seq)...)
	return items
}

// textItems strips markup from an HTML fragment and emits one text item per
// block-level run. Whitespace-only runs are dropped.
func (p *Parser) textItems(fragment string, page int, seq *int) []domain.DocumentItem {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	normalized := blockEndRe.ReplaceAllString(fragment, "\n")
	normalized = anyTagRe.ReplaceAllString(normalized, " ")
	normalized = html.UnescapeString(normalized)

	var items []domain.DocumentItem
	for _, line := range strings.Split(normalized, "\n") {
		text := strings.Join(strings.Fields(line), " ")
		if text == "" {
			continue
		}
		items = append(items, domain.TextItem{Content: text, Page: page, Seq: *seq})
		*seq++
	}
	return items
}

func (p *Parser) decodeImage(b64 string, page int) image.Image {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		p.logger.Warn().Err(err).Int("page", page).Msg("Skipping figure with invalid base64 payload")
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		p.logger.Warn().Err(err).Int("page", page).Msg("Skipping undecodable figure")
		return nil
	}
	return img
}

// RenderPages rasterizes every page to PNG for the page-image capture path.
func (p *Parser) RenderPages(ctx context.Context, pdfBytes []byte) ([]PageRender, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return nil, domain.ParseError("Failed to open PDF", err)
	}
	defer doc.Close()

	renders := make([]PageRender, 0, doc.NumPage())

	for pageNum := 0; pageNum < doc.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.Image(pageNum)
		if err != nil {
			return nil, domain.ParseError(fmt.Sprintf("Failed to render page %d", pageNum+1), err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, domain.ParseError(fmt.Sprintf("Failed to encode page %d", pageNum+1), err)
		}

		renders = append(renders, PageRender{Page: pageNum + 1, PNG: buf.Bytes()})
	}

	return renders, nil
}
