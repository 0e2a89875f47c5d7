// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/ai"
	"github.com/pdiddy/deep-research/internal/extract"
	"github.com/pdiddy/deep-research/internal/filter"
	"github.com/pdiddy/deep-research/internal/gather"
	"github.com/pdiddy/deep-research/internal/materialize"
	"github.com/pdiddy/deep-research/internal/pool"
	"github.com/pdiddy/deep-research/internal/terms"
	"github.com/pdiddy/deep-research/pkg/types"
)

const defaultAnalysisConcurrency = 2

// Runner builds and drives pipeline runs. One Runner serves the whole
// process; at most one run is active at a time, and starting a new run
// cancels the previous one.
type Runner struct {
	Providers    []gather.Provider
	Embedder     ai.Embedder
	Reasoner     ai.Reasoner
	Materializer *materialize.Materializer
	Extractor    *extract.Extractor
	Config       types.PipelineConfig
	Logger       *zap.Logger

	mu     sync.Mutex
	active *Run
}

// Run is one in-flight (or finished) pipeline invocation.
type Run struct {
	State *RunState

	cancel context.CancelFunc
	done   chan struct{}
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.State.ID() }

// Events returns the run's event stream, closed when the run ends.
func (r *Run) Events() <-chan Event { return r.State.Events() }

// Stop requests cooperative cancellation. In-flight work stops at its next
// cancellation check; notes already streamed are kept.
func (r *Run) Stop() { r.cancel() }

// Wait blocks until the run reaches a terminal phase.
func (r *Run) Wait() { <-r.done }

// Start launches a new run for query, superseding any prior run. The prior
// run's context is cancelled before the new run begins.
func (r *Runner) Start(ctx context.Context, query types.RunQuery) *Run {
	r.mu.Lock()
	if r.active != nil {
		r.active.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		State:  newRunState(uuid.NewString(), query),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.active = run
	r.mu.Unlock()

	go func() {
		defer close(run.done)
		r.execute(runCtx, run.State)
	}()
	return run
}

// execute drives the run state machine to a terminal phase.
func (r *Runner) execute(ctx context.Context, state *RunState) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run", state.ID()))
	query := state.Query()

	shortlist, err := r.search(ctx, state, logger)
	if err != nil {
		if stopped(ctx) {
			state.finish(types.PhaseStopped, "run stopped")
			return
		}
		state.finish(types.PhaseFailed, err.Error())
		return
	}

	if stopped(ctx) {
		state.finish(types.PhaseStopped, "run stopped")
		return
	}

	items := r.registerItems(state, shortlist, query.DocumentURLs)
	if len(items) == 0 {
		state.finish(types.PhaseCompleted, "no matches for the given topics and questions")
		return
	}

	state.SetPhase(types.PhaseExtracting, "")
	concurrency := r.Config.AnalysisConcurrency
	if concurrency <= 0 {
		concurrency = defaultAnalysisConcurrency
	}
	pool.Map(ctx, concurrency, items, func(ctx context.Context, item Item) (struct{}, error) {
		r.analyze(ctx, state, item)
		return struct{}{}, nil
	})

	if stopped(ctx) {
		state.stopPending()
		state.finish(types.PhaseStopped, "run stopped")
		return
	}
	state.finish(types.PhaseCompleted, "")
}

// search runs term expansion, gathering, and filtering. Both phases are
// skipped when the query has no topics or questions. Term-expansion failure
// is the only error returned; everything downstream degrades instead.
func (r *Runner) search(ctx context.Context, state *RunState, logger *zap.Logger) ([]types.Candidate, error) {
	query := state.Query()
	if !query.HasSearchTerms() {
		return nil, nil
	}

	state.SetPhase(types.PhaseInitializing, "")
	expanded, err := terms.Expand(ctx, r.Reasoner, query)
	if err != nil {
		return nil, fmt.Errorf("expanding search terms: %w", err)
	}
	state.setTerms(expanded)

	state.SetPhase(types.PhaseSearching, "")
	out := gather.Gather(ctx, r.Providers, expanded, r.Config.Search, logger)
	// Providers absorb their own ctx errors, so a cancelled gather looks
	// like an empty result. Distinguish it from a genuine zero-hit search.
	if stopped(ctx) {
		return nil, ctx.Err()
	}
	logger.Info("gathered candidates",
		zap.Int("candidates", len(out.Candidates)),
		zap.Int("duplicates_removed", out.DupsRemoved),
		zap.Int("provider_errors", len(out.ProviderErrors)))
	if len(out.Candidates) == 0 {
		return nil, nil
	}

	state.SetPhase(types.PhaseFiltering, "")
	return filter.Shortlist(ctx, out.Candidates, query, r.Embedder, r.Reasoner, r.Config.Filter, logger), nil
}

// registerItems builds the mixed analysis batch: shortlisted candidates
// first, then user-supplied URLs not already covered by a candidate.
func (r *Runner) registerItems(state *RunState, shortlist []types.Candidate, urls []string) []Item {
	var items []Item
	for i := range shortlist {
		cand := shortlist[i]
		item := Item{ID: cand.Identifier, URI: cand.DocumentURL, Candidate: &cand}
		if state.addItem(item) {
			items = append(items, item)
		}
	}
	for _, u := range urls {
		item := Item{ID: u, URI: u}
		if state.addItem(item) {
			items = append(items, item)
		}
	}
	return items
}

// analyze carries one item from pending to a terminal status. Failures are
// recorded on the item and never propagate to siblings or the run.
func (r *Runner) analyze(ctx context.Context, state *RunState, item Item) {
	if item.URI == "" {
		state.SetStatus(item.ID, types.StatusFailed, string(types.FailureNotADocument))
		return
	}

	if !state.SetStatus(item.ID, types.StatusDownloading, "") {
		return
	}

	known := materialize.Known{ID: item.ID}
	if item.Candidate != nil {
		known.Title = item.Candidate.Title
		known.Authors = item.Candidate.Authors
	}
	doc, err := r.Materializer.Materialize(ctx, item.URI, known)
	if err != nil {
		r.fail(ctx, state, item.ID, err)
		return
	}

	questions := state.Query().Questions
	if len(questions) == 0 {
		questions = state.Query().Topics
	}

	state.SetStatus(item.ID, types.StatusProcessing, "")
	pages, err := r.Extractor.Localize(ctx, doc, questions)
	if err != nil {
		r.fail(ctx, state, item.ID, err)
		return
	}
	if len(pages) == 0 {
		state.SetStatus(item.ID, types.StatusCompleted, "")
		return
	}

	state.SetStatus(item.ID, types.StatusExtracting, "")
	_, err = r.Extractor.ExtractPages(ctx, doc, pages, questions, state.AppendNote)
	if err != nil {
		r.fail(ctx, state, item.ID, err)
		return
	}
	state.SetStatus(item.ID, types.StatusCompleted, "")
}

// fail marks an item failed, or stopped when the error came from
// cancellation rather than the item itself.
func (r *Runner) fail(ctx context.Context, state *RunState, itemID string, err error) {
	if stopped(ctx) || errors.Is(err, context.Canceled) {
		state.SetStatus(itemID, types.StatusStopped, "")
		return
	}

	msg := err.Error()
	var merr *types.MaterializeError
	if errors.As(err, &merr) {
		msg = string(merr.Reason)
	}
	state.SetStatus(itemID, types.StatusFailed, msg)
}

func stopped(ctx context.Context) bool {
	return ctx.Err() != nil
}
