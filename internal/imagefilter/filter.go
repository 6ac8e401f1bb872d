// Package imagefilter classifies extracted figures with perceptual hashing.
// A filter carries a shared ban set plus a per-document seen set, so one
// filter instance serves exactly one document run.
package imagefilter

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/corona10/goimagehash"

	"github.com/manualbridge/manualbridge/internal/observability"
)

// Decision is the outcome of classifying a single image.
type Decision string

const (
	DecisionKeep      Decision = "keep"
	DecisionBanned    Decision = "banned"
	DecisionDuplicate Decision = "duplicate"
	DecisionSkipped   Decision = "skipped"
)

// BanSet holds the perceptual hashes of reference images that must never be
// kept (logos, watermarks, decorative borders). It is immutable after load
// and safe to share between filters.
type BanSet struct {
	hashes []*goimagehash.ImageHash
}

// LoadBanSet hashes every decodable image in dir. A missing or empty dir
// yields an empty set.
func LoadBanSet(dir string, logger *observability.Logger) (*BanSet, error) {
	set := &BanSet{}
	if dir == "" {
		return set, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("dir", dir).Msg("Banned images directory not found, ban list empty")
			return set, nil
		}
		return nil, fmt.Errorf("read banned images dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable banned image")
			continue
		}

		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Skipping undecodable banned image")
			continue
		}

		h, err := goimagehash.PerceptionHash(img)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to hash banned image")
			continue
		}

		set.hashes = append(set.hashes, h)
	}

	logger.Info().Int("count", len(set.hashes)).Str("dir", dir).Msg("Loaded banned image hashes")
	return set, nil
}

// Size returns the number of banned hashes.
func (s *BanSet) Size() int {
	return len(s.hashes)
}

// Filter classifies figures for one document run.
type Filter struct {
	banSet       *BanSet
	banThreshold int
	dupThreshold int
	seen         []*goimagehash.ImageHash
	logger       *observability.Logger
}

// Config holds filter thresholds. BanThreshold is inclusive (dist <= n is
// banned); DuplicateThreshold is exclusive (dist < n is a duplicate).
type Config struct {
	BanThreshold       int
	DuplicateThreshold int
}

// NewFilter creates a filter with a fresh seen set.
func NewFilter(banSet *BanSet, cfg Config, logger *observability.Logger) *Filter {
	if banSet == nil {
		banSet = &BanSet{}
	}
	return &Filter{
		banSet:       banSet,
		banThreshold: cfg.BanThreshold,
		dupThreshold: cfg.DuplicateThreshold,
		logger:       logger,
	}
}

// Classify decides whether img should be kept. The ban check runs before the
// duplicate check so a banned figure never enters the seen set, and only kept
// figures extend the seen set.
func (f *Filter) Classify(img image.Image) Decision {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		f.logger.Warn().Err(err).Msg("Perceptual hash failed, dropping image")
		return DecisionSkipped
	}

	for _, banned := range f.banSet.hashes {
		dist, err := h.Distance(banned)
		if err != nil {
			continue
		}
		if dist <= f.banThreshold {
			return DecisionBanned
		}
	}

	for _, prev := range f.seen {
		dist, err := h.Distance(prev)
		if err != nil {
			continue
		}
		if dist < f.dupThreshold {
			return DecisionDuplicate
		}
	}

	f.seen = append(f.seen, h)
	return DecisionKeep
}

// SeenCount returns the number of distinct kept figures so far.
func (f *Filter) SeenCount() int {
	return len(f.seen)
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
