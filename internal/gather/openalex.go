// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/internal/pool"
	"github.com/pdiddy/deep-research/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// openAlexPageSize is the per_page value for paginated requests.
const openAlexPageSize = 25

// OpenAlexProvider queries the OpenAlex Works API. OpenAlex paginates, so
// multi-page queries fan their sub-requests through the worker pool.
type OpenAlexProvider struct {
	Client *http.Client
	// Email is sent as the mailto parameter for polite pool access.
	Email string
}

// Name returns the provider identifier.
func (p *OpenAlexProvider) Name() string { return "openalex" }

// Search queries OpenAlex and returns normalized candidates.
func (p *OpenAlexProvider) Search(ctx context.Context, terms types.StructuredTerms, cfg types.SearchConfig) ([]types.Candidate, error) {
	searchText := buildOpenAlexQuery(terms)
	if searchText == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	maxResults := cfg.MaxResultsPerProvider
	if maxResults <= 0 {
		maxResults = 25
	}

	numPages := (maxResults + openAlexPageSize - 1) / openAlexPageSize
	pages := make([]int, numPages)
	for i := range pages {
		pages[i] = i + 1
	}

	results := pool.Map(ctx, 2, pages, func(ctx context.Context, page int) ([]types.Candidate, error) {
		return p.fetchPage(ctx, searchText, page, cfg)
	})

	var candidates []types.Candidate
	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		candidates = append(candidates, r.Value...)
	}
	if len(candidates) == 0 && firstErr != nil {
		return nil, firstErr
	}
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates, nil
}

// fetchPage retrieves one page of results.
func (p *OpenAlexProvider) fetchPage(ctx context.Context, searchText string, page int, cfg types.SearchConfig) ([]types.Candidate, error) {
	params := url.Values{
		"search":   {searchText},
		"per_page": {strconv.Itoa(openAlexPageSize)},
		"page":     {strconv.Itoa(page)},
	}
	email := p.Email
	if email == "" {
		email = cfg.OpenAlexEmail
	}
	if email != "" {
		params.Set("mailto", email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	total := len(oar.Results)
	var candidates []types.Candidate
	for i, work := range oar.Results {
		c := types.Candidate{
			Title:          work.Title,
			Abstract:       reconstructAbstract(work.AbstractInvertedIndex),
			Source:         "openalex",
			RelevanceScore: positionScore(i, total),
		}

		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				c.Authors = append(c.Authors, authorship.Author.DisplayName)
			}
		}

		if work.PublicationDate != "" {
			if t, parseErr := time.Parse("2006-01-02", work.PublicationDate); parseErr == nil {
				c.Published = t
			}
		} else if work.PublicationYear > 0 {
			c.Published = time.Date(work.PublicationYear, 1, 1, 0, 0, 0, 0, time.UTC)
		}

		// Prefer the bare DOI as identifier since OpenAlex is DOI-centric.
		switch {
		case work.DOI != "":
			c.Identifier = strings.TrimPrefix(work.DOI, "https://doi.org/")
		case work.ID != "":
			c.Identifier = work.ID
		default:
			continue
		}

		// Open-access URL when the work has one; fall back to the DOI
		// resolver and let materialization classify what comes back.
		if work.OpenAccess.OAURL != "" {
			c.DocumentURL = work.OpenAccess.OAURL
		} else if work.DOI != "" {
			c.DocumentURL = work.DOI
		}

		candidates = append(candidates, c)
	}
	return candidates, nil
}

// buildOpenAlexQuery combines term lists into a plain search string.
// OpenAlex's search parameter has no field operators, so all lists flatten
// into one text query.
func buildOpenAlexQuery(t types.StructuredTerms) string {
	var parts []string
	parts = append(parts, t.ExactPhrases...)
	parts = append(parts, t.TitleTerms...)
	parts = append(parts, t.GeneralTerms...)
	return strings.Join(parts, " ")
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexOpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}
