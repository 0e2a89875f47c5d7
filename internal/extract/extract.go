// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls citation-backed quotes out of materialized documents
// in two passes: page localization first, then quote extraction over the
// relevant pages only.
package extract

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/ai"
	"github.com/pdiddy/deep-research/pkg/types"
)

const (
	defaultPageBatch = 4
	defaultTimeout   = 2 * time.Minute
)

// Extractor runs both extraction passes for a single document.
type Extractor struct {
	Reasoner ai.Reasoner
	Config   types.ExtractConfig
	Logger   *zap.Logger
}

// Extract localizes the relevant pages of doc, then extracts notes from them
// in ascending page order. Each note is passed to emit as soon as it exists;
// nothing is buffered until the document completes. Returns the number of
// notes emitted. Zero relevant pages is a normal outcome, not an error.
func (e *Extractor) Extract(ctx context.Context, doc *types.MaterializedDocument, questions []string, emit func(types.Note)) (int, error) {
	pages, err := e.Localize(ctx, doc, questions)
	if err != nil {
		return 0, err
	}
	return e.ExtractPages(ctx, doc, pages, questions, emit)
}

// ExtractPages runs pass 2 over already-localized pages.
func (e *Extractor) ExtractPages(ctx context.Context, doc *types.MaterializedDocument, pages []types.Page, questions []string, emit func(types.Note)) (int, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(pages) == 0 {
		logger.Debug("no relevant pages", zap.String("document", doc.ID))
		return 0, nil
	}

	batchSize := e.Config.PageBatch
	if batchSize <= 0 {
		batchSize = defaultPageBatch
	}
	timeout := e.Config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	emitted := 0
	for start := 0; start < len(pages); start += batchSize {
		if err := ctx.Err(); err != nil {
			return emitted, err
		}

		end := start + batchSize
		if end > len(pages) {
			end = len(pages)
		}
		batch := pages[start:end]

		notes, err := e.extractBatch(ctx, batch, questions, doc.Bibliography, timeout)
		if err != nil {
			return emitted, fmt.Errorf("extracting pages %d-%d of %s: %w",
				batch[0].Number, batch[len(batch)-1].Number, doc.ID, err)
		}

		for _, note := range notes {
			note.DocumentID = doc.ID
			note.Citations = LinkCitations(ParseCitations(note.Quote), doc.Bibliography)
			emit(note)
			emitted++
		}
	}

	logger.Debug("extraction complete",
		zap.String("document", doc.ID),
		zap.Int("pages", len(pages)),
		zap.Int("notes", emitted))
	return emitted, nil
}

// Localize performs pass 1: one reasoning call per document, never per page.
// The returned pages are deduplicated, restricted to pages the document
// actually has, and sorted ascending.
func (e *Extractor) Localize(ctx context.Context, doc *types.MaterializedDocument, questions []string) ([]types.Page, error) {
	numbers, err := e.Reasoner.LocalizePages(ctx, doc.Pages, questions)
	if err != nil {
		return nil, fmt.Errorf("localizing pages in %s: %w", doc.ID, err)
	}

	byNumber := make(map[int]types.Page, len(doc.Pages))
	for _, p := range doc.Pages {
		byNumber[p.Number] = p
	}

	seen := make(map[int]bool, len(numbers))
	var pages []types.Page
	for _, n := range numbers {
		if seen[n] {
			continue
		}
		seen[n] = true
		if p, ok := byNumber[n]; ok {
			pages = append(pages, p)
		}
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}

// extractBatch performs one pass-2 call under its own timeout.
func (e *Extractor) extractBatch(ctx context.Context, pages []types.Page, questions []string, bib []types.BibliographyEntry, timeout time.Duration) ([]types.Note, error) {
	batchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.Reasoner.ExtractNotes(batchCtx, pages, questions, bib)
}
