// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "deep-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the candidate gathering stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResultsPerProvider caps each provider's result count (default 25).
	MaxResultsPerProvider int `json:"max_results_per_provider" yaml:"max_results_per_provider"`

	// ProviderConcurrency bounds concurrent provider queries (default 3).
	ProviderConcurrency int `json:"provider_concurrency" yaml:"provider_concurrency"`

	// EnableArxiv controls whether the arXiv provider is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// EnableOpenAlex controls whether the OpenAlex provider is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex"`

	// EnableSemanticScholar controls whether the Semantic Scholar provider is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`
}

// FilterConfig holds settings for the relevance filter.
type FilterConfig struct {
	// EmbedKeep is how many candidates survive the embedding-similarity
	// stage (default 60).
	EmbedKeep int `json:"embed_keep" yaml:"embed_keep"`

	// RerankBatch is the re-rank batch size (default 10).
	RerankBatch int `json:"rerank_batch" yaml:"rerank_batch"`

	// RerankTimeout bounds one re-rank batch; a batch that exceeds it keeps
	// embedding-only ordering (default 90s).
	RerankTimeout time.Duration `json:"rerank_timeout" yaml:"rerank_timeout"`

	// MaxShortlist caps the shortlist size (default 25).
	MaxShortlist int `json:"max_shortlist" yaml:"max_shortlist"`
}

// MaterializeConfig holds settings for document download and parse.
type MaterializeConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxDocumentBytes caps the downloaded document size (default 30 MB).
	MaxDocumentBytes int64 `json:"max_document_bytes" yaml:"max_document_bytes"`

	// ConvertURL is the PDF-to-Markdown conversion service endpoint.
	ConvertURL string `json:"convert_url" yaml:"convert_url"`
}

// ExtractConfig holds settings for the two-pass extractor.
type ExtractConfig struct {
	// PageBatch is how many relevant pages are sent per extraction call
	// (default 4).
	PageBatch int `json:"page_batch" yaml:"page_batch"`

	// Timeout bounds one per-document extraction pass (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// AIConfig holds shared settings for the reasoning and embedding services.
type AIConfig struct {
	// Model is the reasoning model identifier (e.g. "gemini-2.5-flash").
	Model string `json:"model" yaml:"model"`

	// EmbedModel is the embedding model identifier (e.g. "gemini-embedding-001").
	EmbedModel string `json:"embed_model" yaml:"embed_model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	Search      SearchConfig      `json:"search" yaml:"search"`
	Filter      FilterConfig      `json:"filter" yaml:"filter"`
	Materialize MaterializeConfig `json:"materialize" yaml:"materialize"`
	Extract     ExtractConfig     `json:"extract" yaml:"extract"`
	AI          AIConfig          `json:"ai" yaml:"ai"`

	// AnalysisConcurrency bounds concurrent per-document analysis (default 2).
	AnalysisConcurrency int `json:"analysis_concurrency" yaml:"analysis_concurrency"`
}
