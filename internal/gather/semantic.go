// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,publicationDate,openAccessPdf"

// SemanticScholarProvider queries the Semantic Scholar graph API.
type SemanticScholarProvider struct {
	Client *http.Client
	APIKey string
}

// Name returns the provider identifier.
func (p *SemanticScholarProvider) Name() string { return "semantic_scholar" }

// Search queries Semantic Scholar and returns normalized candidates.
// Semantic Scholar rate-limits aggressively, so requests go through the
// 429-aware retry helper.
func (p *SemanticScholarProvider) Search(ctx context.Context, terms types.StructuredTerms, cfg types.SearchConfig) ([]types.Candidate, error) {
	q := buildSemanticQuery(terms)
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	maxResults := cfg.MaxResultsPerProvider
	if maxResults <= 0 {
		maxResults = 25
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {semanticFields},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	apiKey := p.APIKey
	if apiKey == "" {
		apiKey = cfg.SemanticScholarAPIKey
	}
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	total := len(sr.Data)
	var candidates []types.Candidate
	for i, paper := range sr.Data {
		c := types.Candidate{
			Title:          paper.Title,
			Abstract:       paper.Abstract,
			Source:         "semantic_scholar",
			RelevanceScore: positionScore(i, total),
		}

		for _, a := range paper.Authors {
			c.Authors = append(c.Authors, a.Name)
		}

		if paper.PublicationDate != "" {
			if t, parseErr := time.Parse("2006-01-02", paper.PublicationDate); parseErr == nil {
				c.Published = t
			}
		} else if paper.Year > 0 {
			c.Published = time.Date(paper.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		}

		// Prefer arXiv ID, then DOI, then the opaque paper ID.
		switch {
		case paper.ExternalIDs.ArXiv != "":
			c.Identifier = paper.ExternalIDs.ArXiv
			c.DocumentURL = arxivPDFBase + paper.ExternalIDs.ArXiv
		case paper.ExternalIDs.DOI != "":
			c.Identifier = paper.ExternalIDs.DOI
		default:
			c.Identifier = paper.PaperID
		}
		if paper.OpenAccessPdf.URL != "" {
			c.DocumentURL = paper.OpenAccessPdf.URL
		}

		if c.Identifier == "" {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// buildSemanticQuery flattens the term lists into a plain-text query.
// The search endpoint has no phrase or field operators.
func buildSemanticQuery(t types.StructuredTerms) string {
	var parts []string
	parts = append(parts, t.ExactPhrases...)
	parts = append(parts, t.TitleTerms...)
	parts = append(parts, t.GeneralTerms...)
	return strings.Join(parts, " ")
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID         string              `json:"paperId"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Year            int                 `json:"year"`
	PublicationDate string              `json:"publicationDate"`
	Authors         []semanticAuthor    `json:"authors"`
	ExternalIDs     semanticExternalIDs `json:"externalIds"`
	OpenAccessPdf   semanticOpenAccess  `json:"openAccessPdf"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	ArXiv string `json:"ArXiv"`
	DOI   string `json:"DOI"`
}

type semanticOpenAccess struct {
	URL string `json:"url"`
}
