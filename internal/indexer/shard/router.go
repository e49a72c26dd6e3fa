// Package shard fans documents out across independent index engines.
// Each shard owns its own corpus directory, named index, and path mapper
// under the shared app-data root; the Router dispatches documents by URL
// hash so a given page always lands in the same shard.
package shard

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/metrics"
)

// Router maps shard IDs to dedicated indexer.Engine instances.
type Router struct {
	engines   []*indexer.Engine
	numShards int
	logger    *slog.Logger
}

// NewRouter creates numShards engines. Shard i stages its corpus under
// <source>/shard-<i> and builds into the index named <name>-<i>, keeping
// partition file naming collision-free across shards.
func NewRouter(baseCfg config.IndexCoreConfig, numShards int, m *metrics.Metrics) (*Router, error) {
	if numShards <= 0 {
		numShards = 1
	}
	r := &Router{
		engines:   make([]*indexer.Engine, 0, numShards),
		numShards: numShards,
		logger:    slog.Default().With("component", "shard-router"),
	}
	for i := 0; i < numShards; i++ {
		shardCfg := baseCfg
		shardCfg.Source = filepath.Join(baseCfg.Source, fmt.Sprintf("shard-%d", i))
		shardCfg.IndexName = fmt.Sprintf("%s-%d", baseCfg.IndexName, i)
		engine, err := indexer.NewEngine(shardCfg, i, m)
		if err != nil {
			r.closeAll()
			return nil, fmt.Errorf("creating engine for shard %d: %w", i, err)
		}
		r.engines = append(r.engines, engine)
		r.logger.Info("shard engine initialized",
			"shard_id", i,
			"corpus_dir", shardCfg.Source,
			"index_name", shardCfg.IndexName,
			"state", engine.State().String(),
		)
	}
	if m != nil {
		m.ActiveShards.Set(float64(numShards))
	}
	r.logger.Info("shard router ready", "num_shards", numShards)
	return r, nil
}

// ShardFor returns the shard ID owning url.
func (r *Router) ShardFor(url string) int {
	return int(xxhash.Sum64String(url) % uint64(r.numShards))
}

// Route returns the Engine responsible for url.
func (r *Router) Route(url string) *indexer.Engine {
	return r.engines[r.ShardFor(url)]
}

// Engine returns the Engine for an explicit shard ID.
func (r *Router) Engine(shardID int) (*indexer.Engine, error) {
	if shardID < 0 || shardID >= r.numShards {
		return nil, fmt.Errorf("unknown shard ID %d (valid range: 0-%d)", shardID, r.numShards-1)
	}
	return r.engines[shardID], nil
}

// Engines returns all shard engines in shard-ID order.
func (r *Router) Engines() []*indexer.Engine {
	out := make([]*indexer.Engine, len(r.engines))
	copy(out, r.engines)
	return out
}

// NumShards returns the number of shards managed by this router.
func (r *Router) NumShards() int {
	return r.numShards
}

// StageDocument writes one page record into its owning shard's corpus.
func (r *Router) StageDocument(url, content string) error {
	return r.Route(url).StageDocument(url, content)
}

// StagedDocs returns the total number of documents staged across all
// shards since their last builds.
func (r *Router) StagedDocs() int64 {
	var total int64
	for _, e := range r.engines {
		total += e.StagedDocs()
	}
	return total
}

// BuildAll rebuilds every shard's index concurrently and returns the
// aggregate stats. A failed shard aborts with its error; the other
// shards' completed builds remain valid on disk.
func (r *Router) BuildAll(ctx context.Context, force bool) (index.Stats, error) {
	var (
		mu    sync.Mutex
		total index.Stats
		first error
		wg    sync.WaitGroup
	)
	for id, engine := range r.engines {
		wg.Add(1)
		go func(id int, e *indexer.Engine) {
			defer wg.Done()
			stats, err := e.Build(ctx, force)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Error("shard build failed", "shard_id", id, "error", err)
				if first == nil {
					first = fmt.Errorf("shard %d: %w", id, err)
				}
				return
			}
			total.DocsIndexed += stats.DocsIndexed
			total.DocsRejectedMalformed += stats.DocsRejectedMalformed
			total.DocsRejectedTokenization += stats.DocsRejectedTokenization
			total.DocsRejectedDuplicate += stats.DocsRejectedDuplicate
			total.SpillFiles += stats.SpillFiles
			total.PartitionFiles += stats.PartitionFiles
			if stats.Elapsed > total.Elapsed {
				total.Elapsed = stats.Elapsed
			}
		}(id, engine)
	}
	wg.Wait()
	return total, first
}

// ReloadAll re-opens every shard's on-disk index, returning how many
// shards came up ready.
func (r *Router) ReloadAll() int {
	ready := 0
	for id, engine := range r.engines {
		if err := engine.Reload(); err != nil {
			r.logger.Error("shard reload failed", "shard_id", id, "error", err)
			continue
		}
		if engine.Ready() {
			ready++
		}
	}
	return ready
}

// Ready reports whether every shard has a queryable index.
func (r *Router) Ready() bool {
	for _, e := range r.engines {
		if !e.Ready() {
			return false
		}
	}
	return true
}

// Close closes every shard engine.
func (r *Router) Close() error {
	return r.closeAll()
}

func (r *Router) closeAll() error {
	var firstErr error
	for id, engine := range r.engines {
		if err := engine.Close(); err != nil {
			r.logger.Error("close failed", "shard_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
