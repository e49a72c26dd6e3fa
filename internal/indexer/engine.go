// Package indexer wraps the index core in a long-running service engine:
// it stages incoming corpus documents on disk, drives full index builds
// through the lifecycle state machine, and hands out a query Searcher
// once the index is ready.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/lifecycle"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/search"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/metrics"
)

// corpusFile is the JSON shape staged under the corpus directory, the
// same record format the index builder ingests.
type corpusFile struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Engine owns one on-disk index: its corpus directory, its lifecycle
// machine, and (when ready) an open Searcher. All methods are safe for
// concurrent use; builds are serialized by buildMu.
type Engine struct {
	cfg     config.IndexCoreConfig
	machine *lifecycle.Machine
	logger  *slog.Logger
	metrics *metrics.Metrics
	shardID int

	buildMu sync.Mutex
	staged  atomic.Int64

	mu       sync.RWMutex
	searcher *search.Searcher
}

// NewEngine creates an Engine for cfg. If a complete index already exists
// on disk it is opened immediately and the engine starts in the ready
// state; otherwise the engine starts absent and waits for a build.
func NewEngine(cfg config.IndexCoreConfig, shardID int, m *metrics.Metrics) (*Engine, error) {
	if err := os.MkdirAll(cfg.Source, 0o755); err != nil {
		return nil, fmt.Errorf("indexer: creating corpus directory: %w", err)
	}
	e := &Engine{
		cfg:     cfg,
		machine: lifecycle.New(lifecycle.Absent),
		logger:  slog.Default().With("component", "indexer", "shard_id", shardID),
		metrics: m,
		shardID: shardID,
	}
	if !cfg.Rebuild && index.DetectReady(cfg) {
		s, err := search.Open(cfg)
		if err != nil {
			// Artifacts present but unreadable: treat as corrupt and let
			// the next build start from a clean slate.
			e.logger.Warn("existing index failed to load, rebuild required", "error", err)
		} else {
			e.machine.Restore(lifecycle.Ready)
			e.searcher = s
			e.logger.Info("existing index loaded",
				"docs", s.DocCount(),
				"partitions", s.PartitionCount(),
			)
		}
	}
	e.publishState()
	return e, nil
}

// StageDocument writes one corpus page record into the engine's corpus
// directory, to be picked up by the next build. The file name is derived
// from the URL hash so re-staging the same URL overwrites in place.
func (e *Engine) StageDocument(url, content string) error {
	doc := corpusFile{URL: url, Content: content}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("indexer: encoding corpus document: %w", err)
	}
	name := fmt.Sprintf("%016x.json", xxhash.Sum64String(url))
	path := filepath.Join(e.cfg.Source, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("indexer: staging corpus document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("indexer: staging corpus document: %w", err)
	}
	e.staged.Add(1)
	return nil
}

// StagedDocs returns the number of documents staged since the last build.
func (e *Engine) StagedDocs() int64 { return e.staged.Load() }

// Build runs a full index build over the corpus directory and, on
// success, swaps in a fresh Searcher over the new artifacts. force
// discards all existing index state first.
func (e *Engine) Build(ctx context.Context, force bool) (index.Stats, error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	cfg := e.cfg
	cfg.Rebuild = force || cfg.Rebuild

	stats, err := index.Build(ctx, cfg, e.machine)
	e.publishState()
	if err != nil {
		if e.metrics != nil {
			e.metrics.IndexBuildsTotal.WithLabelValues("failure").Inc()
		}
		return stats, err
	}
	e.staged.Store(0)

	s, err := search.Open(cfg)
	if err != nil {
		e.machine.Fail()
		e.publishState()
		if e.metrics != nil {
			e.metrics.IndexBuildsTotal.WithLabelValues("failure").Inc()
		}
		return stats, fmt.Errorf("indexer: opening freshly built index: %w", err)
	}
	e.mu.Lock()
	// A configured forced rebuild applies to the first build only;
	// subsequent builds rebuild from the corpus wholesale anyway.
	e.cfg.Rebuild = false
	old := e.searcher
	e.searcher = s
	e.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	if e.metrics != nil {
		e.metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
		e.metrics.IndexBuildDuration.Observe(stats.Elapsed.Seconds())
		e.metrics.DocsIndexedTotal.Add(float64(stats.DocsIndexed))
		e.metrics.IndexFlushesTotal.WithLabelValues("success").Add(float64(stats.SpillFiles))
		shard := fmt.Sprintf("%d", e.shardID)
		e.metrics.ShardDocCount.WithLabelValues(shard).Set(float64(s.DocCount()))
		e.metrics.ShardPartitionCount.WithLabelValues(shard).Set(float64(s.PartitionCount()))
	}
	return stats, nil
}

// Reload re-detects on-disk index artifacts and swaps in a fresh
// Searcher if they are present. Used by query-only processes after
// another process has completed a build.
func (e *Engine) Reload() error {
	if !index.DetectReady(e.cfg) {
		return nil
	}
	s, err := search.Open(e.cfg)
	if err != nil {
		return fmt.Errorf("indexer: reloading index: %w", err)
	}
	e.mu.Lock()
	old := e.searcher
	e.searcher = s
	e.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	e.machine.Restore(lifecycle.Ready)
	e.publishState()
	e.logger.Info("index reloaded", "docs", s.DocCount(), "partitions", s.PartitionCount())
	return nil
}

// Search answers a ranked free-text query against the current index. An
// engine with no ready index returns an empty result set.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	e.mu.RLock()
	s := e.searcher
	e.mu.RUnlock()
	if s == nil {
		return nil, nil
	}
	return s.Search(ctx, query, k)
}

// Matches returns the doc ids containing term, for exclusion filtering.
func (e *Engine) Matches(term string) (map[uint32]struct{}, error) {
	e.mu.RLock()
	s := e.searcher
	e.mu.RUnlock()
	if s == nil {
		return nil, nil
	}
	return s.Matches(term)
}

// Ready reports whether the engine has a queryable index.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.searcher != nil && e.machine.IsReady()
}

// State returns the engine's lifecycle state.
func (e *Engine) State() lifecycle.State { return e.machine.State() }

// DocCount returns the number of indexed documents, or 0 when not ready.
func (e *Engine) DocCount() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.searcher == nil {
		return 0
	}
	return int64(e.searcher.DocCount())
}

// PartitionCount returns the number of final partition files, or 0 when
// not ready.
func (e *Engine) PartitionCount() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.searcher == nil {
		return 0
	}
	return int64(e.searcher.PartitionCount())
}

// Close releases the engine's open Searcher, if any.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searcher == nil {
		return nil
	}
	err := e.searcher.Close()
	e.searcher = nil
	return err
}

func (e *Engine) publishState() {
	if e.metrics == nil {
		return
	}
	e.metrics.IndexState.WithLabelValues(fmt.Sprintf("%d", e.shardID)).Set(float64(e.machine.State()))
}
