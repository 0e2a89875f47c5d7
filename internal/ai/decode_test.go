// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONPlain(t *testing.T) {
	var resp expandResponse
	err := decodeJSON(`{"exact_phrases": ["a b"], "title_terms": ["x"]}`, &resp)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b"}, resp.ExactPhrases)
	assert.Equal(t, []string{"x"}, resp.TitleTerms)
	// Absent fields coerce to nil, not errors.
	assert.Nil(t, resp.AbstractTerms)
	assert.Nil(t, resp.GeneralTerms)
}

func TestDecodeJSONStripsFences(t *testing.T) {
	text := "```json\n{\"pages\": [2, 5]}\n```"
	var resp localizeResponse
	err := decodeJSON(text, &resp)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, resp.Pages)
}

func TestDecodeJSONEmpty(t *testing.T) {
	var resp localizeResponse
	assert.Error(t, decodeJSON("", &resp))
	assert.Error(t, decodeJSON("```\n```", &resp))
}

func TestDecodeJSONMalformed(t *testing.T) {
	var resp rerankResponse
	assert.Error(t, decodeJSON("not json at all", &resp))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.42, clamp01(0.42))
}
