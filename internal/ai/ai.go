// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ai provides the reasoning and embedding service interfaces the
// pipeline depends on, plus Gemini-backed implementations. All tolerance of
// malformed model output lives here, at the decoding boundary; consumers
// receive typed values with defaults already substituted.
package ai

import (
	"context"

	"github.com/pdiddy/deep-research/pkg/types"
)

// TaskType selects the embedding task for similarity scoring.
type TaskType string

const (
	TaskSemanticSimilarity TaskType = "SEMANTIC_SIMILARITY"
	TaskRetrievalQuery     TaskType = "RETRIEVAL_QUERY"
	TaskRetrievalDocument  TaskType = "RETRIEVAL_DOCUMENT"
)

// Embedder produces embedding vectors, used only for similarity scoring.
type Embedder interface {
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error)
}

// CandidateScore is one candidate's re-rank outcome.
type CandidateScore struct {
	// Identifier matches a Candidate.Identifier from the input set.
	Identifier string `json:"identifier"`

	// Score is a relevance value between 0.0 and 1.0.
	Score float64 `json:"score"`
}

// Reasoner is the external reasoning service behind term expansion,
// relevance re-ranking, page localization, and note extraction.
// Implementations must tolerate malformed or partial structured output,
// coercing to safe empty defaults rather than failing the caller.
type Reasoner interface {
	// Expand turns topics and questions into structured search terms.
	Expand(ctx context.Context, topics, questions []string) (types.StructuredTerms, error)

	// Rerank scores candidates holistically against the questions and
	// keywords. Candidates missing from the response are simply unscored.
	Rerank(ctx context.Context, candidates []types.Candidate, questions, keywords []string) ([]CandidateScore, error)

	// LocalizePages returns the page numbers judged relevant to the
	// questions. One call per document, never per page.
	LocalizePages(ctx context.Context, pages []types.Page, questions []string) ([]int, error)

	// ExtractNotes pulls citation-backed verbatim quotes from the given
	// pages. Page, Quote, Justification, and Question are filled by the
	// service; DocumentID and citation linking are the caller's job.
	ExtractNotes(ctx context.Context, pages []types.Page, questions []string, bibliography []types.BibliographyEntry) ([]types.Note, error)
}
