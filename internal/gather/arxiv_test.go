// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deep-research/pkg/types"
)

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Attention  Is All
 You Need</title>
    <summary>  We propose the Transformer. </summary>
    <published>2023-01-17T12:00:00Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2302.00001v1</id>
    <title>Second Paper</title>
    <summary>Another abstract.</summary>
    <published>2023-02-01T00:00:00Z</published>
    <author><name>Jane Doe</name></author>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(arxivFeedXML))
	}))
	defer ts.Close()

	orig := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = orig }()

	p := &ArxivProvider{Client: ts.Client()}
	terms := types.StructuredTerms{
		ExactPhrases: []string{"transformer attention"},
		TitleTerms:   []string{"attention"},
	}

	candidates, err := p.Search(context.Background(), terms, testCfg())
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Contains(t, gotQuery, `all:"transformer attention"`)
	assert.Contains(t, gotQuery, "ti:attention")

	first := candidates[0]
	assert.Equal(t, "2301.07041", first.Identifier)
	assert.Equal(t, "Attention Is All You Need", first.Title)
	assert.Equal(t, "We propose the Transformer.", first.Abstract)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, first.Authors)
	assert.Equal(t, "arxiv", first.Source)
	assert.Equal(t, arxivPDFBase+"2301.07041", first.DocumentURL)
	assert.Equal(t, 2023, first.Published.Year())

	// Position-based provisional scores, descending.
	assert.Greater(t, first.RelevanceScore, candidates[1].RelevanceScore)
}

func TestArxivSearchEmptyTerms(t *testing.T) {
	p := &ArxivProvider{Client: http.DefaultClient}
	_, err := p.Search(context.Background(), types.StructuredTerms{}, testCfg())
	assert.ErrorContains(t, err, "empty arXiv query")
}

func TestArxivSearchServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	orig := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = orig }()

	p := &ArxivProvider{Client: ts.Client()}
	_, err := p.Search(context.Background(), testTerms(), testCfg())
	assert.Error(t, err)
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/2301.07041", "2301.07041"},
		{"https://example.org/other", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractArxivID(tt.in), tt.in)
	}
}
