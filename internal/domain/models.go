// Package domain holds the core types shared across the ingestion and
// answering pipelines.
package domain

import (
	"image"
	"time"
)

// DocumentItem is a single unit of parsed PDF content. Items carry a
// document-order sequence number so segmentation can preserve reading order.
type DocumentItem interface {
	Sequence() int
	documentItem()
}

// TextItem is a run of text extracted from a page.
type TextItem struct {
	Content string
	Page    int
	Seq     int
}

func (t TextItem) Sequence() int { return t.Seq }
func (t TextItem) documentItem() {}

// ImageItem is a decoded figure extracted from a page.
type ImageItem struct {
	Image image.Image
	Page  int
	Seq   int
}

func (i ImageItem) Sequence() int { return i.Seq }
func (i ImageItem) documentItem() {}

// Step groups the items belonging to one numbered instruction step.
type Step struct {
	Number int
	Title  string
	Items  []DocumentItem
}

// AssetRef describes a published figure.
type AssetRef struct {
	ID   string `json:"id"`
	Page int    `json:"page"`
	Step int    `json:"step"`
	URL  string `json:"url"`
}

// SourceFile is a normalized listing entry from any document source
// (blob container or SharePoint drive).
type SourceFile struct {
	ID           string
	Name         string
	LastModified time.Time
}

// DocumentPayload is the canonical vector-store payload for a processed
// manual. Text is the embed-safe markdown (no URLs); LLMMarkdown is the full
// variant with inline signed image links.
type DocumentPayload struct {
	FileName    string         `json:"file_name"`
	TotalPages  int            `json:"total_pages"`
	Text        string         `json:"text"`
	LLMMarkdown string         `json:"llm_markdown"`
	SignedURLs  []string       `json:"signed_urls,omitempty"`
	Assets      []AssetRef     `json:"assets,omitempty"`
	PageImages  map[int]string `json:"page_images,omitempty"`
	RawText     string         `json:"raw_text,omitempty"`
	IngestedAt  time.Time      `json:"ingested_at,omitempty"`
}

// RetrievalMode describes how much of a stored document should back an answer.
type RetrievalMode string

const (
	ModeFullDoc RetrievalMode = "full_doc"
	ModeChunk   RetrievalMode = "chunk"
	ModeNone    RetrievalMode = "none"
	ModeError   RetrievalMode = "error"
)

// RetrievalHit is a single nearest-neighbour match.
type RetrievalHit struct {
	Payload DocumentPayload
	Score   float64
}

// Answer is the structured result of a question. Failures carry a message;
// the markdown is never silently empty on error.
type Answer struct {
	Success      bool    `json:"ok"`
	Markdown     string  `json:"answer_markdown"`
	SourceFile   string  `json:"source_file,omitempty"`
	Confidence   float64 `json:"confidence_score"`
	ErrorMessage string  `json:"message,omitempty"`
}

// ContextBlock is one element of the interleaved multimodal context
// assembled for the LLM.
type ContextBlock interface {
	contextBlock()
}

// TextBlock is a textual context element.
type TextBlock struct {
	Text string
}

func (TextBlock) contextBlock() {}

// ImageBlock references a signed image URL in the context. Detail is the
// provider-side resolution hint for the image, empty meaning "low".
type ImageBlock struct {
	URL    string
	Detail string
}

func (ImageBlock) contextBlock() {}
