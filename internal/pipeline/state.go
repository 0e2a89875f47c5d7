// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates one research run: term expansion, candidate
// gathering, relevance filtering, and fan-out document analysis, with
// per-item status tracking, streamed results, and cooperative cancellation.
package pipeline

import (
	"sync"

	"github.com/pdiddy/deep-research/pkg/types"
)

// EventType discriminates run events on the stream.
type EventType string

const (
	EventPhase  EventType = "phase"
	EventStatus EventType = "status"
	EventNote   EventType = "note"
)

// Event is one observable run occurrence. Phase events carry Phase and
// possibly Message; status events carry ItemID and Status; note events
// carry Note.
type Event struct {
	Type    EventType
	Phase   types.RunPhase
	ItemID  string
	Status  types.AnalysisStatus
	Note    *types.Note
	Message string
}

// Item is one unit of analysis work: a shortlisted candidate or a
// user-supplied document URL.
type Item struct {
	// ID is the candidate identifier, or the URL itself for user documents.
	ID string

	// URI is where the full document is fetched from.
	URI string

	// Candidate is set for shortlisted candidates, nil for user URLs.
	Candidate *types.Candidate

	Status types.AnalysisStatus

	// Error holds the failure message when Status is failed.
	Error string
}

// RunState is the single mutable aggregate for one run. All mutation goes
// through SetPhase, SetStatus, and AppendNote; everything else reads a
// snapshot under the lock.
type RunState struct {
	mu sync.Mutex

	id      string
	query   types.RunQuery
	terms   types.StructuredTerms
	phase   types.RunPhase
	message string
	items   map[string]*Item
	order   []string
	notes   []types.Note

	events chan Event
}

const eventBuffer = 256

func newRunState(id string, query types.RunQuery) *RunState {
	return &RunState{
		id:     id,
		query:  query,
		phase:  types.PhaseIdle,
		items:  make(map[string]*Item),
		events: make(chan Event, eventBuffer),
	}
}

// ID returns the run identifier.
func (s *RunState) ID() string { return s.id }

// Query returns the immutable run input.
func (s *RunState) Query() types.RunQuery { return s.query }

// Events returns the run's event stream. The channel is closed when the
// run reaches a terminal phase.
func (s *RunState) Events() <-chan Event { return s.events }

// emit delivers an event without ever blocking a pipeline stage. A consumer
// that falls more than eventBuffer behind loses the oldest-pending events.
func (s *RunState) emit(e Event) {
	select {
	case s.events <- e:
	default:
	}
}

// SetPhase advances the run phase and emits a phase event. Transitions out
// of a terminal phase are ignored.
func (s *RunState) SetPhase(phase types.RunPhase, message string) {
	s.mu.Lock()
	if s.phase.Terminal() {
		s.mu.Unlock()
		return
	}
	s.phase = phase
	if message != "" {
		s.message = message
	}
	s.mu.Unlock()
	s.emit(Event{Type: EventPhase, Phase: phase, Message: message})
}

// Phase returns the current run phase.
func (s *RunState) Phase() types.RunPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Message returns the run-level message, set on completion or failure.
func (s *RunState) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *RunState) setTerms(t types.StructuredTerms) {
	s.mu.Lock()
	s.terms = t
	s.mu.Unlock()
}

// Terms returns the expanded search terms.
func (s *RunState) Terms() types.StructuredTerms {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terms
}

// addItem registers an analysis item in pending state. Duplicate IDs are
// ignored so a user URL matching a shortlisted candidate is analyzed once.
func (s *RunState) addItem(item Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; ok {
		return false
	}
	item.Status = types.StatusPending
	s.items[item.ID] = &item
	s.order = append(s.order, item.ID)
	return true
}

// SetStatus transitions one item's status, enforcing the monotonic forward
// order. Invalid transitions (including any transition out of a terminal
// status) are rejected and return false.
func (s *RunState) SetStatus(itemID string, next types.AnalysisStatus, errMsg string) bool {
	s.mu.Lock()
	item, ok := s.items[itemID]
	if !ok || !item.Status.CanTransition(next) {
		s.mu.Unlock()
		return false
	}
	item.Status = next
	if errMsg != "" {
		item.Error = errMsg
	}
	s.mu.Unlock()
	s.emit(Event{Type: EventStatus, ItemID: itemID, Status: next, Message: errMsg})
	return true
}

// Status returns one item's current status.
func (s *RunState) Status(itemID string) (types.AnalysisStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return "", false
	}
	return item.Status, true
}

// Items returns a snapshot of all analysis items in registration order.
func (s *RunState) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// AppendNote appends one extracted note and emits a note event. Notes are
// immutable once appended.
func (s *RunState) AppendNote(note types.Note) {
	s.mu.Lock()
	s.notes = append(s.notes, note)
	s.mu.Unlock()
	s.emit(Event{Type: EventNote, Note: &note})
}

// Notes returns a snapshot of all notes appended so far.
func (s *RunState) Notes() []types.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Snapshot is a point-in-time copy of a run's state, safe to hand to
// persistence or presentation code after the run ends.
type Snapshot struct {
	ID      string
	Query   types.RunQuery
	Phase   types.RunPhase
	Message string
	Items   []Item
	Notes   []types.Note
}

// Snapshot copies the run state under the lock.
func (s *RunState) Snapshot() Snapshot {
	items := s.Items()
	notes := s.Notes()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:      s.id,
		Query:   s.query,
		Phase:   s.phase,
		Message: s.message,
		Items:   items,
		Notes:   notes,
	}
}

// stopPending flips every non-terminal item to stopped. Notes already
// appended are preserved.
func (s *RunState) stopPending() {
	s.mu.Lock()
	var flipped []string
	for _, id := range s.order {
		item := s.items[id]
		if !item.Status.Terminal() {
			item.Status = types.StatusStopped
			flipped = append(flipped, id)
		}
	}
	s.mu.Unlock()
	for _, id := range flipped {
		s.emit(Event{Type: EventStatus, ItemID: id, Status: types.StatusStopped})
	}
}

// finish moves the run to a terminal phase and closes the event stream.
func (s *RunState) finish(phase types.RunPhase, message string) {
	s.mu.Lock()
	if !s.phase.Terminal() {
		s.phase = phase
		if message != "" {
			s.message = message
		}
	}
	s.mu.Unlock()
	s.emit(Event{Type: EventPhase, Phase: phase, Message: message})
	close(s.events)
}
