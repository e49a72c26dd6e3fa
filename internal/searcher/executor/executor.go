// Package executor runs parsed query plans against the index core's
// Searcher: ranked free-text retrieval first, then NOT-exclusion
// filtering, then deterministic final ordering.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/ranker"
)

// SearchResult is the executor's answer to one query.
type SearchResult struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	Results   []ranker.Hit   `json:"results"`
	TermStats map[string]int `json:"term_stats,omitempty"`
}

// overfetchFactor widens the ranked retrieval when exclusions are
// present, so filtering still leaves enough hits to fill the limit.
const overfetchFactor = 3

// Executor answers queries against a single index engine.
type Executor struct {
	engine *indexer.Engine
	logger *slog.Logger
}

// New creates an Executor over engine.
func New(engine *indexer.Engine) *Executor {
	return &Executor{
		engine: engine,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Execute runs plan against the engine and returns up to limit ranked
// hits.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	if len(plan.Terms) == 0 {
		return &SearchResult{Query: plan.RawQuery, Results: []ranker.Hit{}}, nil
	}

	k := limit
	if len(plan.ExcludeTerms) > 0 {
		k = limit * overfetchFactor
	}
	hits, err := e.engine.Search(ctx, strings.Join(plan.Terms, " "), k)
	if err != nil {
		return nil, fmt.Errorf("executing query %q: %w", plan.RawQuery, err)
	}

	excluded, err := excludedDocs(e.engine, plan.ExcludeTerms)
	if err != nil {
		return nil, err
	}

	results := make([]ranker.Hit, 0, len(hits))
	for _, h := range hits {
		if _, drop := excluded[h.DocID]; drop {
			continue
		}
		results = append(results, ranker.Hit{URL: h.URL, Score: ranker.Round(h.Score)})
	}
	results = ranker.Order(results, limit)

	e.logger.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"excluded_terms", plan.ExcludeTerms,
		"results", len(results),
	)
	return &SearchResult{
		Query:     plan.RawQuery,
		TotalHits: len(results),
		Results:   results,
		TermStats: termStats(e.engine, plan.Terms),
	}, nil
}

// excludedDocs unions the doc-id sets of every NOT term.
func excludedDocs(engine *indexer.Engine, terms []string) (map[uint32]struct{}, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	out := make(map[uint32]struct{})
	for _, term := range terms {
		docs, err := engine.Matches(term)
		if err != nil {
			return nil, fmt.Errorf("resolving excluded term %q: %w", term, err)
		}
		for id := range docs {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// termStats reports how many documents match each query term, for the
// response's diagnostics block.
func termStats(engine *indexer.Engine, terms []string) map[string]int {
	stats := make(map[string]int, len(terms))
	for _, term := range terms {
		docs, err := engine.Matches(term)
		if err != nil {
			continue
		}
		if len(docs) > 0 {
			stats[term] = len(docs)
		}
	}
	return stats
}
