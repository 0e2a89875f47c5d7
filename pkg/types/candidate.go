// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the deep-research pipeline.
package types

import "time"

// Candidate is a reference to an academic document discovered by search,
// before its full text is available. Identifiers are unique within one run
// after deduplication; candidates from different providers pointing at the
// same document are merged, preferring the richer metadata set.
type Candidate struct {
	// Identifier is the canonical ID from the source (arXiv ID, DOI, or URL).
	Identifier string `json:"identifier" yaml:"identifier"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract or summary.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Source identifies which provider found this candidate
	// (e.g. "arxiv", "openalex", "semantic_scholar").
	Source string `json:"source" yaml:"source"`

	// DocumentURL points at the full-text document for materialization.
	DocumentURL string `json:"document_url" yaml:"document_url"`

	// Published is the publication or preprint date. Zero when unknown.
	Published time.Time `json:"published,omitempty" yaml:"published,omitempty"`

	// RelevanceScore is a value between 0.0 and 1.0. Providers fill a
	// position-based score; the relevance filter overwrites it.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
}
