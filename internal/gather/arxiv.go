// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/deep-research/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arxivPDFBase resolves an arXiv ID to its PDF.
var arxivPDFBase = "https://arxiv.org/pdf/"

// ArxivProvider queries the arXiv Atom API.
type ArxivProvider struct {
	Client *http.Client
}

// Name returns the provider identifier.
func (p *ArxivProvider) Name() string { return "arxiv" }

// Search queries the arXiv API and normalizes the Atom feed into candidates.
func (p *ArxivProvider) Search(ctx context.Context, terms types.StructuredTerms, cfg types.SearchConfig) ([]types.Candidate, error) {
	q := buildArxivQuery(terms)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	maxResults := cfg.MaxResultsPerProvider
	if maxResults <= 0 {
		maxResults = 25
	}

	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	fp := gofeed.NewParser()
	fp.Client = p.Client
	fp.UserAgent = cfg.UserAgent

	feed, err := fp.ParseURLWithContext(arxivAPIBase+"?"+params.Encode(), ctx)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}

	total := len(feed.Items)
	var candidates []types.Candidate
	for i, item := range feed.Items {
		arxivID := extractArxivID(item.GUID)
		if arxivID == "" {
			continue
		}

		c := types.Candidate{
			Identifier:     arxivID,
			Title:          strings.Join(strings.Fields(item.Title), " "),
			Abstract:       strings.TrimSpace(item.Description),
			Source:         "arxiv",
			DocumentURL:    arxivPDFBase + arxivID,
			RelevanceScore: positionScore(i, total),
		}
		for _, a := range item.Authors {
			if a != nil && a.Name != "" {
				c.Authors = append(c.Authors, strings.TrimSpace(a.Name))
			}
		}
		if item.PublishedParsed != nil {
			c.Published = *item.PublishedParsed
		}

		candidates = append(candidates, c)
	}
	return candidates, nil
}

// buildArxivQuery constructs the search_query parameter. Exact phrases are
// quoted, title terms use the ti: field, everything else matches all fields.
func buildArxivQuery(t types.StructuredTerms) string {
	var parts []string
	for _, phrase := range t.ExactPhrases {
		parts = append(parts, `all:"`+phrase+`"`)
	}
	for _, term := range t.TitleTerms {
		parts = append(parts, "ti:"+term)
	}
	for _, term := range t.AbstractTerms {
		parts = append(parts, "abs:"+term)
	}
	for _, term := range t.GeneralTerms {
		parts = append(parts, "all:"+term)
	}
	return strings.Join(parts, " OR ")
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
