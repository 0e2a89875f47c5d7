// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gather fans structured search terms out to independent academic
// search providers, normalizes their results into one Candidate shape, and
// merges duplicates. A provider that errors or times out contributes an
// empty result set and a logged warning; it never fails the gather.
package gather

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/pool"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Provider searches a single academic API. Each provider owns its query
// construction and its raw-to-Candidate normalization; providers can be
// added or removed without touching each other.
type Provider interface {
	Name() string
	Search(ctx context.Context, terms types.StructuredTerms, cfg types.SearchConfig) ([]types.Candidate, error)
}

// Output holds the merged candidates and gather statistics.
type Output struct {
	Candidates     []types.Candidate
	DupsRemoved    int
	ProviderErrors []string
}

// Gather queries all providers concurrently through the worker pool and
// returns the deduplicated union. No ranking is performed here; that is
// the relevance filter's job.
func Gather(ctx context.Context, providers []Provider, terms types.StructuredTerms, cfg types.SearchConfig, logger *zap.Logger) Output {
	limit := cfg.ProviderConcurrency
	if limit <= 0 {
		limit = 3
	}

	results := pool.Map(ctx, limit, providers, func(ctx context.Context, p Provider) ([]types.Candidate, error) {
		return p.Search(ctx, terms, cfg)
	})

	var all []types.Candidate
	var providerErrors []string
	for i, r := range results {
		if r.Err != nil {
			logger.Warn("search provider failed",
				zap.String("provider", providers[i].Name()),
				zap.Error(r.Err))
			providerErrors = append(providerErrors, providers[i].Name()+": "+r.Err.Error())
			continue
		}
		all = append(all, r.Value...)
	}

	deduped, removed := deduplicate(all)
	return Output{
		Candidates:     deduped,
		DupsRemoved:    removed,
		ProviderErrors: providerErrors,
	}
}

// deduplicate merges candidates that share a normalized identifier or
// normalized title. Provider results arrive in any order; the merge is
// keyed, so output membership does not depend on network timing.
func deduplicate(candidates []types.Candidate) ([]types.Candidate, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []types.Candidate
	removed := 0

	for _, c := range candidates {
		key := ""
		if norm := NormalizeIdentifier(c.Identifier); norm != "" {
			key = "id:" + norm
		}
		titleKey := "title:" + normalizeTitle(c.Title)

		if key != "" {
			if idx, ok := seen[key]; ok {
				mergeInto(&deduped[idx], c)
				removed++
				continue
			}
		}
		if titleKey != "title:" {
			if idx, ok := seen[titleKey]; ok {
				mergeInto(&deduped[idx], c)
				removed++
				continue
			}
		}

		idx := len(deduped)
		deduped = append(deduped, c)
		if key != "" {
			seen[key] = idx
		}
		if titleKey != "title:" {
			seen[titleKey] = idx
		}
	}
	return deduped, removed
}

// mergeInto keeps the richer metadata set: the longer abstract, a non-empty
// author list, a known date, and the higher relevance score win.
func mergeInto(dst *types.Candidate, src types.Candidate) {
	if len(src.Abstract) > len(dst.Abstract) {
		dst.Abstract = src.Abstract
	}
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if len(dst.Authors) == 0 && len(src.Authors) > 0 {
		dst.Authors = src.Authors
	}
	if dst.Published.IsZero() && !src.Published.IsZero() {
		dst.Published = src.Published
	}
	if dst.DocumentURL == "" && src.DocumentURL != "" {
		dst.DocumentURL = src.DocumentURL
	}
	if src.RelevanceScore > dst.RelevanceScore {
		dst.RelevanceScore = src.RelevanceScore
	}
	if dst.Source != src.Source && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// NormalizeIdentifier lowercases an identifier and strips URL scheme,
// www, and doi.org prefixes so the same document matches across providers
// (case-insensitive URL/DOI match).
func NormalizeIdentifier(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, prefix := range []string{"https://", "http://", "www.", "doi.org/", "dx.doi.org/"} {
		id = strings.TrimPrefix(id, prefix)
	}
	return strings.TrimRight(id, "/")
}

// normalizeTitle returns a lowercased, punctuation-stripped title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// positionScore assigns a provisional relevance score from result order.
// Providers return relevance-sorted lists, so position is the only signal
// available before the filter stage.
func positionScore(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}
