// Package recall implements the hybrid retrieval engine: cache lookup,
// vector search, graph expansion, score fusion, and cache write-back.
package recall

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/agentmemz/agentmemz/internal/config"
	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/logger"
	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
	"github.com/agentmemz/agentmemz/internal/utils"
)

type service struct {
	facts    interfaces.FactRepository
	embedder interfaces.EmbeddingClient
	index    interfaces.VectorIndex
	graph    interfaces.GraphStore
	cache    interfaces.Cache
	cfg      config.MemoryConfig
}

// NewService creates the hybrid retrieval engine.
func NewService(
	facts interfaces.FactRepository,
	embedder interfaces.EmbeddingClient,
	index interfaces.VectorIndex,
	graph interfaces.GraphStore,
	cache interfaces.Cache,
	cfg config.MemoryConfig,
) interfaces.RecallService {
	return &service{
		facts:    facts,
		embedder: embedder,
		index:    index,
		graph:    graph,
		cache:    cache,
		cfg:      cfg,
	}
}

func (s *service) Recall(ctx context.Context, query, userID string, k int, threshold float64) ([]types.ScoredFact, error) {
	if k <= 0 {
		k = s.cfg.RecallK
	}
	if threshold <= 0 {
		threshold = s.cfg.RecallThreshold
	}

	cacheKey := utils.RecallCacheKey(query, userID, k, threshold)
	if data, ok := s.cache.Get(ctx, cacheKey); ok {
		var cached []types.ScoredFact
		if err := json.Unmarshal(data, &cached); err == nil {
			logger.Debugf(ctx, "recall cache hit for user %s", userID)
			return cached, nil
		}
		logger.Warnf(ctx, "discarding corrupt recall cache entry %s", cacheKey)
	}

	// Vector search is the primary signal; without a query embedding there
	// is no fallback path.
	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	// Over-fetch so graph-based reranking has room before truncation.
	matches, err := s.index.TopK(ctx, userID, queryEmbedding, s.cfg.Overfetch*k, threshold, true)
	if err != nil {
		return nil, errs.Retrieval("recall", err)
	}
	if len(matches) == 0 {
		s.writeCache(ctx, cacheKey, []types.ScoredFact{})
		return []types.ScoredFact{}, nil
	}

	ids := make([]string, len(matches))
	similarity := make(map[string]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		similarity[m.ID] = m.Score
	}

	rows, err := s.facts.GetByIDs(ctx, userID, ids)
	if err != nil {
		return nil, errs.Retrieval("recall", err)
	}
	factByID := make(map[string]*types.MemoryFact, len(rows))
	for _, f := range rows {
		factByID[f.ID] = f
	}

	wVector, wGraph, wConfidence := s.cfg.VectorWeight, s.cfg.GraphWeight, s.cfg.ConfidenceWeight
	relatedness := map[string]float64{}

	neighborhoods, gErr := s.graph.Neighborhood(ctx, userID, ids, s.cfg.GraphDepth)
	if gErr != nil {
		// Degrade: drop the graph term and fold its weight into the vector
		// term so weights still sum to one.
		wVector += wGraph
		wGraph = 0
		logger.Warnf(ctx, "graph store degraded during recall for user %s, reweighting to vector=%.2f: %v", userID, wVector, gErr)
	} else {
		relatedness = graphRelatedness(ids, neighborhoods)
	}

	results := make([]types.ScoredFact, 0, len(matches))
	for _, id := range ids {
		fact, ok := factByID[id]
		if !ok {
			continue
		}
		sim := similarity[id]
		rel := relatedness[id]
		results = append(results, types.ScoredFact{
			Fact:             *fact,
			Similarity:       sim,
			GraphRelatedness: rel,
			Score:            wVector*sim + wGraph*rel + wConfidence*fact.Confidence,
		})
	}

	// Fused score descending; frequently recalled facts surface first on
	// exact ties.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Fact.AccessCount > results[j].Fact.AccessCount
	})
	if len(results) > k {
		results = results[:k]
	}

	s.trackAccess(ctx, results)
	s.writeCache(ctx, cacheKey, results)
	return results, nil
}

// graphRelatedness computes, per candidate, the fraction of its depth-2
// neighbors shared with at least one other candidate's neighborhood.
func graphRelatedness(ids []string, neighborhoods map[string][]string) map[string]float64 {
	// How many candidate neighborhoods each node appears in.
	appearances := map[string]int{}
	for _, id := range ids {
		for _, n := range neighborhoods[id] {
			appearances[n]++
		}
	}

	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		neighbors := neighborhoods[id]
		if len(neighbors) == 0 {
			out[id] = 0
			continue
		}
		shared := 0
		for _, n := range neighbors {
			if appearances[n] > 1 {
				shared++
			}
		}
		out[id] = float64(shared) / float64(len(neighbors))
	}
	return out
}

// trackAccess increments access statistics. The returned facts reflect the
// increment immediately; persistence is fire-and-forget and never fails
// the recall call.
func (s *service) trackAccess(ctx context.Context, results []types.ScoredFact) {
	if len(results) == 0 {
		return
	}
	now := time.Now().UTC()
	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].Fact.ID
		results[i].Fact.AccessCount++
		results[i].Fact.LastAccessed = &now
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.facts.TouchAccess(bg, ids, now); err != nil {
			logger.Warnf(bg, "failed to track fact access: %v", err)
		}
	}()
}

// writeCache stores the final ranked list. A cancelled call must not cache
// a partial result, so the write is skipped once ctx is done.
func (s *service) writeCache(ctx context.Context, key string, results []types.ScoredFact) {
	if ctx.Err() != nil {
		logger.Debugf(ctx, "recall cancelled, skipping cache write for %s", key)
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		logger.Warnf(ctx, "failed to encode recall results for cache: %v", err)
		return
	}
	s.cache.Set(ctx, key, data, s.cfg.ResultCacheTTL)
}
