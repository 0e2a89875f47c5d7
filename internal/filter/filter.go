// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter ranks gathered candidates against the user's questions and
// keywords, producing an ordered, size-bounded shortlist. Two stages:
// embedding similarity cuts a large candidate set down cheaply, then a
// reasoning-service re-rank scores the survivors holistically. A re-rank
// batch that times out keeps embedding-only ordering; the run never fails
// here.
package filter

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/ai"
	"github.com/pdiddy/deep-research/pkg/types"
)

const (
	defaultEmbedKeep     = 60
	defaultRerankBatch   = 10
	defaultRerankTimeout = 90 * time.Second
	defaultMaxShortlist  = 25
)

// scored carries a candidate through both stages. Reranked candidates sort
// above embedding-only ones: the re-rank score dominates unless absent.
type scored struct {
	cand       types.Candidate
	embedScore float64
	rankScore  float64
	reranked   bool
}

// Shortlist orders candidates by relevance to the query and truncates to
// the configured maximum. It degrades rather than fails: an embedding
// outage keeps the gatherer's order, a re-rank outage keeps embedding
// order.
func Shortlist(ctx context.Context, candidates []types.Candidate, query types.RunQuery, emb ai.Embedder, r ai.Reasoner, cfg types.FilterConfig, logger *zap.Logger) []types.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	embedKeep := cfg.EmbedKeep
	if embedKeep <= 0 {
		embedKeep = defaultEmbedKeep
	}
	maxShortlist := cfg.MaxShortlist
	if maxShortlist <= 0 {
		maxShortlist = defaultMaxShortlist
	}

	pool := embedStage(ctx, candidates, query, emb, embedKeep, logger)
	pool = rerankStage(ctx, pool, query, r, cfg, logger)

	// Reranked candidates first, ordered by re-rank score; embedding-only
	// candidates after, ordered by similarity. Stable so equal scores keep
	// their prior relative order.
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].reranked != pool[j].reranked {
			return pool[i].reranked
		}
		if pool[i].reranked {
			return pool[i].rankScore > pool[j].rankScore
		}
		return pool[i].embedScore > pool[j].embedScore
	})

	if len(pool) > maxShortlist {
		pool = pool[:maxShortlist]
	}

	out := make([]types.Candidate, len(pool))
	for i, s := range pool {
		c := s.cand
		if s.reranked {
			c.RelevanceScore = s.rankScore
		} else {
			c.RelevanceScore = s.embedScore
		}
		out[i] = c
	}
	return out
}

// embedStage scores each candidate's abstract against the concatenated
// questions and keywords and keeps the top embedKeep. On failure the
// gatherer's order survives, truncated to the same size.
func embedStage(ctx context.Context, candidates []types.Candidate, query types.RunQuery, emb ai.Embedder, embedKeep int, logger *zap.Logger) []scored {
	pool := make([]scored, len(candidates))
	for i, c := range candidates {
		pool[i] = scored{cand: c, embedScore: c.RelevanceScore}
	}

	queryText := strings.Join(append(append([]string{}, query.Questions...), query.Keywords...), "\n")

	queryVec, err := emb.Embed(ctx, queryText, ai.TaskRetrievalQuery)
	if err != nil {
		logger.Warn("query embedding failed, keeping gather order", zap.Error(err))
		return truncate(pool, embedKeep)
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Title + "\n" + c.Abstract
	}
	vecs, err := emb.EmbedBatch(ctx, texts, ai.TaskRetrievalDocument)
	if err != nil || len(vecs) != len(candidates) {
		logger.Warn("candidate embedding failed, keeping gather order", zap.Error(err))
		return truncate(pool, embedKeep)
	}

	for i := range pool {
		pool[i].embedScore = cosine(queryVec, vecs[i])
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].embedScore > pool[j].embedScore
	})
	return truncate(pool, embedKeep)
}

// rerankStage sends the pool to the reasoning service in size-bounded
// batches, each under its own timeout. The re-rank is the slowest single
// step in the pipeline; a timed-out batch degrades to embedding order for
// its members.
func rerankStage(ctx context.Context, pool []scored, query types.RunQuery, r ai.Reasoner, cfg types.FilterConfig, logger *zap.Logger) []scored {
	batchSize := cfg.RerankBatch
	if batchSize <= 0 {
		batchSize = defaultRerankBatch
	}
	timeout := cfg.RerankTimeout
	if timeout <= 0 {
		timeout = defaultRerankTimeout
	}

	byID := make(map[string]*scored, len(pool))
	for i := range pool {
		byID[gatherKey(pool[i].cand.Identifier)] = &pool[i]
	}

	for start := 0; start < len(pool); start += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + batchSize
		if end > len(pool) {
			end = len(pool)
		}

		batch := make([]types.Candidate, 0, end-start)
		for _, s := range pool[start:end] {
			batch = append(batch, s.cand)
		}

		batchCtx, cancel := context.WithTimeout(ctx, timeout)
		scores, err := r.Rerank(batchCtx, batch, query.Questions, query.Keywords)
		cancel()
		if err != nil {
			logger.Warn("re-rank batch degraded to embedding order",
				zap.Int("batch_start", start), zap.Error(err))
			continue
		}

		for _, s := range scores {
			if entry, ok := byID[gatherKey(s.Identifier)]; ok {
				entry.rankScore = s.Score
				entry.reranked = true
			}
		}
	}
	return pool
}

// gatherKey matches re-rank response identifiers back to candidates even
// when the model normalizes case or echoes a DOI URL.
func gatherKey(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, prefix := range []string{"https://", "http://", "doi.org/"} {
		id = strings.TrimPrefix(id, prefix)
	}
	return strings.TrimRight(id, "/")
}

func truncate(pool []scored, n int) []scored {
	if len(pool) > n {
		return pool[:n]
	}
	return pool
}

// cosine computes cosine similarity between two vectors, 0 when either is
// degenerate.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
