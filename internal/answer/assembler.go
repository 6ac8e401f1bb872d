// Package answer turns retrieval results into grounded LLM answers: context
// assembly, the completion call, signed URL restoration and caching.
package answer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/manualbridge/manualbridge/internal/domain"
)

var imageLinkRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

// AssembleContext interleaves the document text with image blocks for its
// signed URLs, capped at maxImages. Figure URLs beyond the budget are folded
// into a textual listing so the model still knows they exist.
//
// When the payload carries full page renders, those lead the context followed
// by a manifest of figure assets instead of inlining every figure.
func AssembleContext(payload domain.DocumentPayload, text string, maxImages int) []domain.ContextBlock {
	if maxImages < 0 {
		maxImages = 0
	}

	if len(payload.PageImages) > 0 {
		return assemblePageImageContext(payload, text, maxImages)
	}

	var blocks []domain.ContextBlock
	var overflow []string
	used := 0
	cursor := 0
	inlined := make(map[string]bool)

	for _, loc := range imageLinkRe.FindAllStringSubmatchIndex(text, -1) {
		before := text[cursor:loc[0]]
		alt := text[loc[2]:loc[3]]
		url := text[loc[4]:loc[5]]
		cursor = loc[1]

		if strings.TrimSpace(before) != "" {
			blocks = append(blocks, domain.TextBlock{Text: before})
		}

		inlined[url] = true
		if used < maxImages {
			blocks = append(blocks, domain.ImageBlock{URL: url})
			used++
		} else {
			if alt != "" {
				blocks = append(blocks, domain.TextBlock{Text: alt})
			}
			overflow = append(overflow, url)
		}
	}

	if strings.TrimSpace(text[cursor:]) != "" {
		blocks = append(blocks, domain.TextBlock{Text: text[cursor:]})
	}

	// Chunk-mode text carries no inline links, so attach the payload's signed
	// URLs directly while budget remains.
	for _, url := range payload.SignedURLs {
		if inlined[url] {
			continue
		}
		if used < maxImages {
			blocks = append(blocks, domain.ImageBlock{URL: url})
			used++
		} else {
			overflow = append(overflow, url)
		}
	}

	if len(overflow) > 0 {
		blocks = append(blocks, domain.TextBlock{Text: overflowListing(overflow)})
	}

	return blocks
}

// assemblePageImageContext leads with page renders and describes figures in a
// manifest rather than inlining them.
func assemblePageImageContext(payload domain.DocumentPayload, text string, maxImages int) []domain.ContextBlock {
	pages := make([]int, 0, len(payload.PageImages))
	for page := range payload.PageImages {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	var blocks []domain.ContextBlock
	used := 0
	var overflow []string
	for _, page := range pages {
		url := payload.PageImages[page]
		if used < maxImages {
			blocks = append(blocks, domain.ImageBlock{URL: url})
			used++
		} else {
			overflow = append(overflow, url)
		}
	}

	if len(payload.Assets) > 0 {
		var b strings.Builder
		b.WriteString("Figure manifest:\n")
		for _, a := range payload.Assets {
			fmt.Fprintf(&b, "- %s (step %d, page %d): %s\n", a.ID, a.Step, a.Page, a.URL)
		}
		blocks = append(blocks, domain.TextBlock{Text: b.String()})
	}

	if strings.TrimSpace(text) != "" {
		blocks = append(blocks, domain.TextBlock{Text: text})
	}

	if len(overflow) > 0 {
		blocks = append(blocks, domain.TextBlock{Text: overflowListing(overflow)})
	}

	return blocks
}

func overflowListing(urls []string) string {
	var b strings.Builder
	b.WriteString("Additional figures not shown inline:\n")
	for _, url := range urls {
		b.WriteString("- " + url + "\n")
	}
	return b.String()
}

// CountImages returns the number of image blocks in an assembled context.
func CountImages(blocks []domain.ContextBlock) int {
	n := 0
	for _, b := range blocks {
		if _, ok := b.(domain.ImageBlock); ok {
			n++
		}
	}
	return n
}
