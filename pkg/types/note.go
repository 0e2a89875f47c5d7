// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// BibliographyEntry is a parsed entry from a document's reference section.
type BibliographyEntry struct {
	// Key is the reference label as it appears in the document (e.g. "1",
	// "Smith2020").
	Key string `json:"key" yaml:"key"`

	// Authors lists the cited work's authors.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Title is the cited work's title.
	Title string `json:"title" yaml:"title"`

	// Year is the publication year.
	Year string `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal, conference, or publisher.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Raw is the unparsed entry text.
	Raw string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Citation links an inline reference marker inside a note's quote to a
// bibliography entry.
type Citation struct {
	// Key is the inline marker as it appears in the text (e.g. "1",
	// "Smith et al., 2020").
	Key string `json:"key" yaml:"key"`

	// BibIndex is the zero-based index into the source document's
	// bibliography for the matching entry, or -1 when unlinked.
	BibIndex int `json:"bib_index" yaml:"bib_index"`

	// Reference is the full reference string for the linked entry. Empty
	// when unlinked.
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
}

// Note is one extracted unit of evidence: a verbatim quote answering a user
// question, with provenance. Notes are immutable once created; the pipeline
// appends them to a run's result set and never edits them.
type Note struct {
	// Quote is the verbatim text from the source page.
	Quote string `json:"quote" yaml:"quote"`

	// Justification explains briefly why the quote answers the question.
	Justification string `json:"justification" yaml:"justification"`

	// Question is the user question this note answers.
	Question string `json:"question" yaml:"question"`

	// Page is the 1-based page number the quote was taken from.
	Page int `json:"page" yaml:"page"`

	// DocumentID identifies the source document.
	DocumentID string `json:"document_id" yaml:"document_id"`

	// Score is an optional relevance score between 0.0 and 1.0.
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`

	// Citations are inline references found in the quote, linked against
	// the document's bibliography where a matching entry exists.
	Citations []Citation `json:"citations,omitempty" yaml:"citations,omitempty"`
}
