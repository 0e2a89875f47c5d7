// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package terms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deep-research/internal/ai"
	"github.com/pdiddy/deep-research/pkg/types"
)

// mockReasoner implements only Expand; the other Reasoner methods are
// never reached from this package.
type mockReasoner struct {
	terms types.StructuredTerms
	err   error
}

func (m *mockReasoner) Expand(_ context.Context, _, _ []string) (types.StructuredTerms, error) {
	return m.terms, m.err
}

func (m *mockReasoner) Rerank(_ context.Context, _ []types.Candidate, _, _ []string) ([]ai.CandidateScore, error) {
	panic("not used")
}

func (m *mockReasoner) LocalizePages(_ context.Context, _ []types.Page, _ []string) ([]int, error) {
	panic("not used")
}

func (m *mockReasoner) ExtractNotes(_ context.Context, _ []types.Page, _ []string, _ []types.BibliographyEntry) ([]types.Note, error) {
	panic("not used")
}

func TestExpandRequiresTopicsOrQuestions(t *testing.T) {
	_, err := Expand(context.Background(), &mockReasoner{}, types.RunQuery{})
	assert.ErrorContains(t, err, "nothing to expand")
}

func TestExpandPropagatesServiceFailure(t *testing.T) {
	boom := errors.New("service down")
	_, err := Expand(context.Background(), &mockReasoner{err: boom},
		types.RunQuery{Topics: []string{"attention"}})
	assert.ErrorIs(t, err, boom)
}

func TestExpandSanitizesAndDeduplicates(t *testing.T) {
	m := &mockReasoner{terms: types.StructuredTerms{
		ExactPhrases:  []string{"  transformer attention ", "", "transformer attention"},
		TitleTerms:    []string{"attention", "Transformer Attention"},
		AbstractTerms: []string{"attention"},
		GeneralTerms:  []string{"neural networks"},
	}}

	got, err := Expand(context.Background(), m, types.RunQuery{Topics: []string{"transformers"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"transformer attention"}, got.ExactPhrases)
	// "Transformer Attention" collides case-insensitively with the exact phrase.
	assert.Equal(t, []string{"attention"}, got.TitleTerms)
	assert.Empty(t, got.AbstractTerms)
	assert.Equal(t, []string{"neural networks"}, got.GeneralTerms)
}

func TestExpandFallsBackToRawTopics(t *testing.T) {
	m := &mockReasoner{terms: types.StructuredTerms{}}

	got, err := Expand(context.Background(), m, types.RunQuery{
		Topics:    []string{"sparse attention"},
		Questions: []string{"How does it scale?"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sparse attention", "How does it scale?"}, got.GeneralTerms)
}
