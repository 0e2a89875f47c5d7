// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pool provides a bounded-concurrency executor with per-item fault
// isolation. Every fan-out in the pipeline (provider queries, pagination,
// per-document analysis) runs through it.
package pool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result holds one item's outcome, positionally aligned with the input
// slice. Exactly one of Value or Err is meaningful.
type Result[O any] struct {
	Value O
	Err   error
}

// Map runs fn over items with at most limit in flight. Results are aligned
// with the inputs: results[i] is item i's outcome. A failing or panicking
// item records its error in its own slot and never aborts siblings.
//
// Cancellation is cooperative: once ctx is done no new item starts (its
// slot records ctx.Err()), and items already in flight run until they
// observe ctx themselves.
func Map[I, O any](ctx context.Context, limit int, items []I, fn func(context.Context, I) (O, error)) []Result[O] {
	if limit <= 0 {
		limit = 1
	}

	results := make([]Result[O], len(items))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			defer func() {
				if r := recover(); r != nil {
					results[i].Err = fmt.Errorf("panic: %v", r)
				}
			}()
			v, err := fn(ctx, item)
			results[i] = Result[O]{Value: v, Err: err}
			return nil
		})
	}

	// Worker funcs never return errors to the group, so Wait only blocks.
	g.Wait() //nolint:errcheck

	return results
}

// Values returns the successful values from results, dropping errored slots.
func Values[O any](results []Result[O]) []O {
	out := make([]O, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}
