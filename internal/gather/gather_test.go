// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/pkg/types"
)

// --- mock provider ---

type mockProvider struct {
	name       string
	candidates []types.Candidate
	err        error
	delay      time.Duration
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(ctx context.Context, _ types.StructuredTerms, _ types.SearchConfig) ([]types.Candidate, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	return m.candidates, m.err
}

func testTerms() types.StructuredTerms {
	return types.StructuredTerms{GeneralTerms: []string{"attention"}}
}

func testCfg() types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		MaxResultsPerProvider: 25,
		ProviderConcurrency:   3,
	}
}

// --- Gather ---

func TestGatherMergesAllProviders(t *testing.T) {
	providers := []Provider{
		&mockProvider{name: "a", candidates: []types.Candidate{
			{Identifier: "2301.07041", Title: "Paper A", Source: "a"},
		}},
		&mockProvider{name: "b", candidates: []types.Candidate{
			{Identifier: "10.1000/xyz", Title: "Paper B", Source: "b"},
		}},
	}

	out := Gather(context.Background(), providers, testTerms(), testCfg(), zap.NewNop())
	assert.Len(t, out.Candidates, 2)
	assert.Zero(t, out.DupsRemoved)
	assert.Empty(t, out.ProviderErrors)
}

func TestGatherIsolatesFailingProvider(t *testing.T) {
	providers := []Provider{
		&mockProvider{name: "healthy1", candidates: []types.Candidate{
			{Identifier: "id-1", Title: "One", Source: "healthy1"},
		}},
		&mockProvider{name: "broken", err: errors.New("HTTP 500")},
		&mockProvider{name: "healthy2", candidates: []types.Candidate{
			{Identifier: "id-2", Title: "Two", Source: "healthy2"},
		}},
	}

	out := Gather(context.Background(), providers, testTerms(), testCfg(), zap.NewNop())

	require.Len(t, out.Candidates, 2)
	require.Len(t, out.ProviderErrors, 1)
	assert.Contains(t, out.ProviderErrors[0], "broken")
}

func TestGatherSlowProviderDoesNotBlockResults(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	providers := []Provider{
		&mockProvider{name: "slow", delay: 5 * time.Second},
		&mockProvider{name: "fast", candidates: []types.Candidate{
			{Identifier: "id-fast", Title: "Fast", Source: "fast"},
		}},
	}

	out := Gather(ctx, providers, testTerms(), testCfg(), zap.NewNop())

	require.Len(t, out.Candidates, 1)
	assert.Equal(t, "id-fast", out.Candidates[0].Identifier)
	assert.Len(t, out.ProviderErrors, 1)
}

// --- deduplication ---

func TestDeduplicateByNormalizedIdentifier(t *testing.T) {
	candidates := []types.Candidate{
		{Identifier: "10.1145/123.456", Title: "Paper A", Source: "openalex", Abstract: "short"},
		{Identifier: "https://doi.org/10.1145/123.456", Title: "Paper A", Source: "semantic_scholar",
			Abstract: "a much longer abstract with detail", Authors: []string{"Smith, A."}},
		{Identifier: "2301.99999", Title: "Paper B", Source: "arxiv"},
	}

	deduped, removed := deduplicate(candidates)
	require.Equal(t, 1, removed)
	require.Len(t, deduped, 2)

	// Richer metadata wins: longer abstract, non-empty author list.
	merged := deduped[0]
	assert.Equal(t, "a much longer abstract with detail", merged.Abstract)
	assert.Equal(t, []string{"Smith, A."}, merged.Authors)
	assert.Contains(t, merged.Source, "openalex")
	assert.Contains(t, merged.Source, "semantic_scholar")
}

func TestDeduplicateByTitleFallback(t *testing.T) {
	candidates := []types.Candidate{
		{Identifier: "arxiv-1", Title: "Attention Is All You Need", Source: "arxiv"},
		{Identifier: "10.5555/nips2017", Title: "attention is all you need!", Source: "openalex"},
	}

	deduped, removed := deduplicate(candidates)
	assert.Equal(t, 1, removed)
	assert.Len(t, deduped, 1)
}

func TestDeduplicateNoCollisions(t *testing.T) {
	candidates := []types.Candidate{
		{Identifier: "a", Title: "First"},
		{Identifier: "b", Title: "Second"},
	}
	deduped, removed := deduplicate(candidates)
	assert.Zero(t, removed)
	assert.Len(t, deduped, 2)
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.1145/ABC", "10.1145/abc"},
		{"https://doi.org/10.1145/abc", "10.1145/abc"},
		{"http://dx.doi.org/10.1145/abc/", "10.1145/abc"},
		{"  2301.07041 ", "2301.07041"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeIdentifier(tt.in), tt.in)
	}
}

func TestPositionScore(t *testing.T) {
	assert.Equal(t, 1.0, positionScore(0, 1))
	assert.Equal(t, 1.0, positionScore(0, 10))
	assert.InDelta(t, 0.1, positionScore(9, 10), 1e-9)
}
