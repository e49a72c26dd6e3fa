package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/ranker"
)

// ShardedExecutor fans a query plan out to every shard's engine in
// parallel and merges the per-shard top-k lists into one global ranking.
// Cosine scores are comparable across shards, so the merge needs no
// cross-shard renormalization.
type ShardedExecutor struct {
	engines []*indexer.Engine
	logger  *slog.Logger
}

// NewSharded creates a ShardedExecutor over engines (shard-ID order).
func NewSharded(engines []*indexer.Engine) *ShardedExecutor {
	return &ShardedExecutor{
		engines: engines,
		logger:  slog.Default().With("component", "sharded-executor"),
	}
}

// Execute runs plan on every shard concurrently and merges the results.
// A shard that fails is skipped with a logged error; the query only fails
// outright when every shard does.
func (se *ShardedExecutor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if len(plan.Terms) == 0 {
		return &SearchResult{Query: plan.RawQuery, Results: []ranker.Hit{}}, nil
	}

	type shardOut struct {
		hits  []ranker.Hit
		stats map[string]int
		err   error
	}
	results := make([]shardOut, len(se.engines))
	var wg sync.WaitGroup
	for i, engine := range se.engines {
		wg.Add(1)
		go func(shardID int, eng *indexer.Engine) {
			defer wg.Done()
			sub := New(eng)
			res, err := sub.Execute(ctx, plan, limit)
			if err != nil {
				results[shardID] = shardOut{err: fmt.Errorf("shard %d: %w", shardID, err)}
				return
			}
			hits := res.Results
			for j := range hits {
				hits[j].Shard = shardID
			}
			results[shardID] = shardOut{hits: hits, stats: res.TermStats}
		}(i, engine)
	}
	wg.Wait()

	perShard := make([][]ranker.Hit, 0, len(results))
	termStats := make(map[string]int)
	failed := 0
	for _, r := range results {
		if r.err != nil {
			se.logger.Error("shard query failed", "error", r.err)
			failed++
			continue
		}
		perShard = append(perShard, r.hits)
		for term, n := range r.stats {
			termStats[term] += n
		}
	}
	if failed == len(se.engines) && len(se.engines) > 0 {
		return nil, fmt.Errorf("all %d shards failed", len(se.engines))
	}

	merged := merger.Merge(perShard, limit)
	se.logger.Info("sharded query executed",
		"query", plan.RawQuery,
		"shards_queried", len(perShard),
		"results", len(merged),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		TotalHits: len(merged),
		Results:   merged,
		TermStats: termStats,
	}, nil
}
