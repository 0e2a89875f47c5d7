// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package terms expands a loose topic and question set into structured
// search terms via one reasoning-service call. Failure here is fatal to the
// run: without terms no provider query is meaningful, so the error is not
// retried internally and the caller surfaces a run-level failure.
package terms

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/deep-research/internal/ai"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Expand produces structured terms for the query's topics and questions.
// Topics and questions may each be empty, but not both.
func Expand(ctx context.Context, r ai.Reasoner, query types.RunQuery) (types.StructuredTerms, error) {
	if !query.HasSearchTerms() {
		return types.StructuredTerms{}, fmt.Errorf("nothing to expand: provide topics or questions")
	}

	terms, err := r.Expand(ctx, query.Topics, query.Questions)
	if err != nil {
		return types.StructuredTerms{}, fmt.Errorf("expanding search terms: %w", err)
	}

	terms = sanitize(terms)
	if terms.IsEmpty() {
		// Degenerate but recoverable: fall back to the raw topics so the
		// gather phase still has something to query with.
		terms.GeneralTerms = append([]string{}, query.Topics...)
		terms.GeneralTerms = append(terms.GeneralTerms, query.Questions...)
		terms = sanitize(terms)
	}
	if terms.IsEmpty() {
		return types.StructuredTerms{}, fmt.Errorf("term expansion produced no usable terms")
	}

	return terms, nil
}

// sanitize trims whitespace, drops empties, and enforces disjointness
// across the four lists. Earlier lists win: a term that appears as an exact
// phrase is removed from the later lists.
func sanitize(t types.StructuredTerms) types.StructuredTerms {
	seen := make(map[string]bool)

	clean := func(list []string) []string {
		var out []string
		for _, s := range list {
			s = strings.Join(strings.Fields(s), " ")
			if s == "" {
				continue
			}
			key := strings.ToLower(s)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
		return out
	}

	return types.StructuredTerms{
		ExactPhrases:  clean(t.ExactPhrases),
		TitleTerms:    clean(t.TitleTerms),
		AbstractTerms: clean(t.AbstractTerms),
		GeneralTerms:  clean(t.GeneralTerms),
	}
}
