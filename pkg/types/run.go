// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RunQuery is the immutable input to one pipeline run. It is created once
// per run invocation and never mutated.
type RunQuery struct {
	// Topics are loose research topics to expand into search terms.
	Topics []string `json:"topics" yaml:"topics"`

	// Questions are free-text questions the run should answer.
	Questions []string `json:"questions" yaml:"questions"`

	// Keywords are optional user-supplied relevance hints.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// DocumentURLs are explicit documents to analyze alongside (or instead
	// of) search results.
	DocumentURLs []string `json:"document_urls,omitempty" yaml:"document_urls,omitempty"`
}

// HasSearchTerms reports whether the query carries anything to search for.
// Without topics or questions the search and filter phases are skipped.
func (q RunQuery) HasSearchTerms() bool {
	return len(q.Topics) > 0 || len(q.Questions) > 0
}

// StructuredTerms is the term expander's output: four disjoint term lists
// from which provider-specific queries are built.
type StructuredTerms struct {
	// ExactPhrases are multi-word phrases to be quoted where the provider
	// supports phrase search.
	ExactPhrases []string `json:"exact_phrases" yaml:"exact_phrases"`

	// TitleTerms are terms to match against document titles.
	TitleTerms []string `json:"title_terms" yaml:"title_terms"`

	// AbstractTerms are terms to match against abstracts.
	AbstractTerms []string `json:"abstract_terms" yaml:"abstract_terms"`

	// GeneralTerms are fallback terms matched against any field.
	GeneralTerms []string `json:"general_terms" yaml:"general_terms"`
}

// IsEmpty reports whether expansion produced no usable terms.
func (t StructuredTerms) IsEmpty() bool {
	return len(t.ExactPhrases) == 0 && len(t.TitleTerms) == 0 &&
		len(t.AbstractTerms) == 0 && len(t.GeneralTerms) == 0
}

// RunPhase is the orchestrator's per-run state machine position.
type RunPhase string

const (
	PhaseIdle         RunPhase = "idle"
	PhaseInitializing RunPhase = "initializing"
	PhaseSearching    RunPhase = "searching"
	PhaseFiltering    RunPhase = "filtering"
	PhaseExtracting   RunPhase = "extracting"
	PhaseCompleted    RunPhase = "completed"
	PhaseFailed       RunPhase = "failed"
	PhaseStopped      RunPhase = "stopped"
)

// Terminal reports whether the phase is a terminal run state.
func (p RunPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseStopped
}

// AnalysisStatus tracks one candidate or user document through analysis.
// Transitions move forward only, except that any non-terminal status may
// move directly to stopped on cancellation or to failed on an
// unrecoverable error.
type AnalysisStatus string

const (
	StatusPending     AnalysisStatus = "pending"
	StatusDownloading AnalysisStatus = "downloading"
	StatusProcessing  AnalysisStatus = "processing"
	StatusExtracting  AnalysisStatus = "extracting"
	StatusCompleted   AnalysisStatus = "completed"
	StatusFailed      AnalysisStatus = "failed"
	StatusStopped     AnalysisStatus = "stopped"
)

// statusRank orders the forward chain. Terminal statuses share the top rank
// so no transition out of them is ever valid.
var statusRank = map[AnalysisStatus]int{
	StatusPending:     0,
	StatusDownloading: 1,
	StatusProcessing:  2,
	StatusExtracting:  3,
	StatusCompleted:   4,
	StatusFailed:      4,
	StatusStopped:     4,
}

// Terminal reports whether the status admits no further transitions.
func (s AnalysisStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusStopped
}

// CanTransition reports whether moving from s to next respects the
// monotonic forward order.
func (s AnalysisStatus) CanTransition(next AnalysisStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusStopped || next == StatusFailed {
		return true
	}
	return statusRank[next] > statusRank[s]
}
