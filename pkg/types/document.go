// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Page is one page of a materialized document's plain text.
type Page struct {
	// Number is the 1-based page number from the source document.
	Number int `json:"number" yaml:"number"`

	// Text is the page's plain text.
	Text string `json:"text" yaml:"text"`
}

// MaterializedDocument is a candidate or user document after download and
// parse. It is owned by the orchestrator for the duration of one run and
// never shared across runs.
type MaterializedDocument struct {
	// ID identifies the source candidate or user URL.
	ID string `json:"id" yaml:"id"`

	// Title is the document title, taken from candidate metadata when known
	// and otherwise derived from the parsed content.
	Title string `json:"title" yaml:"title"`

	// Authors lists the document authors, when known.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Pages holds the per-page plain text in page order.
	Pages []Page `json:"pages" yaml:"pages"`

	// Bibliography holds the reference entries parsed from the document.
	Bibliography []BibliographyEntry `json:"bibliography,omitempty" yaml:"bibliography,omitempty"`
}

// FailureReason classifies why a document could not be materialized, so the
// orchestrator can present actionable status rather than a generic error.
type FailureReason string

const (
	FailureNotADocument FailureReason = "not_a_document"
	FailureTooLarge     FailureReason = "too_large"
	FailureTimedOut     FailureReason = "timed_out"
	FailureBlocked      FailureReason = "blocked_by_source"
	FailureNetwork      FailureReason = "network_error"
)

// MaterializeError carries a typed failure reason alongside the underlying
// error.
type MaterializeError struct {
	Reason FailureReason
	Err    error
}

func (e *MaterializeError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *MaterializeError) Unwrap() error { return e.Err }
