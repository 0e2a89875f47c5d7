// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deep-research/internal/httputil"
)

func init() {
	// Avoid real backoff sleeps in the 429 retry test.
	httputil.RetryBaseDelay = time.Millisecond
}

func TestSemanticScholarSearch(t *testing.T) {
	var gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		json.NewEncoder(w).Encode(semanticResponse{
			Total: 2,
			Data: []semanticPaper{
				{
					PaperID:         "opaque-1",
					Title:           "Transformer Paper",
					Abstract:        "All about attention.",
					PublicationDate: "2023-01-17",
					Authors:         []semanticAuthor{{Name: "A. Vaswani"}},
					ExternalIDs:     semanticExternalIDs{ArXiv: "2301.07041"},
				},
				{
					PaperID:       "opaque-2",
					Title:         "DOI Paper",
					Year:          2020,
					ExternalIDs:   semanticExternalIDs{DOI: "10.1000/xyz"},
					OpenAccessPdf: semanticOpenAccess{URL: "https://host.example/xyz.pdf"},
				},
			},
		})
	}))
	defer ts.Close()

	orig := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = orig }()

	p := &SemanticScholarProvider{Client: ts.Client(), APIKey: "sk-test"}
	candidates, err := p.Search(context.Background(), testTerms(), testCfg())
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "sk-test", gotKey)

	assert.Equal(t, "2301.07041", candidates[0].Identifier)
	assert.Equal(t, arxivPDFBase+"2301.07041", candidates[0].DocumentURL)
	assert.Equal(t, 2023, candidates[0].Published.Year())

	assert.Equal(t, "10.1000/xyz", candidates[1].Identifier)
	assert.Equal(t, "https://host.example/xyz.pdf", candidates[1].DocumentURL)
	assert.Equal(t, 2020, candidates[1].Published.Year())
}

func TestSemanticScholarRetriesOn429(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(semanticResponse{})
	}))
	defer ts.Close()

	orig := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = orig }()

	p := &SemanticScholarProvider{Client: ts.Client()}
	_, err := p.Search(context.Background(), testTerms(), testCfg())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
