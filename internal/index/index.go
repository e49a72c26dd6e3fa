// Package index orchestrates the full build pipeline: walk a corpus
// directory of JSON page records, run every record through the text
// pipeline and (optionally) duplicate detection, assign dense document
// ids via the path mapper, accumulate postings in the partition builder,
// spill, K-way merge, and split into the final partitioned on-disk index
// plus its document-frequency and vector tables.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/builder"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/dedup"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/docmap"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/lifecycle"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/split"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/textpipeline"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/resilience"
)

// corpusDoc is the minimal shape of a corpus JSON record; unknown keys are
// ignored by encoding/json.
type corpusDoc struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Stats summarizes one build run, useful for logs and metrics.
type Stats struct {
	DocsIndexed              int
	DocsRejectedMalformed    int
	DocsRejectedTokenization int
	DocsRejectedDuplicate    int
	SpillFiles               int
	PartitionFiles           int
	Elapsed                  time.Duration
}

// Dir returns the on-disk root for a named index under an app-data root
// (indexes/<name>/).
func Dir(dataDir, indexName string) string {
	return filepath.Join(dataDir, "indexes", indexName)
}

// DetectReady reports whether a previously built index's artifacts are all
// present: the partition directory, the df table, the vector table, and
// the path mapper. It does not validate checksums beyond what opening
// each file already does; a corrupt file surfaces as a load error later,
// which callers treat as a signal to force a rebuild.
func DetectReady(cfg config.IndexCoreConfig) bool {
	dir := Dir(cfg.DataDir, cfg.IndexName)
	for _, name := range []string{"directory.gob", "df.bin", "vectors.bin"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	mapper, err := docmap.Load(cfg.DataDir, cfg.Source)
	if err != nil || mapper.Len() == 0 {
		return false
	}
	return true
}

// Build runs the full indexing pipeline against cfg.Source, writing the
// final index under Dir(cfg.DataDir, cfg.IndexName). It drives m through
// Building -> Merging -> Splitting -> Ready, or back to Absent on any
// fatal error: a write failure aborts the build and clears partial
// state, while per-document failures only skip that document.
func Build(ctx context.Context, cfg config.IndexCoreConfig, m *lifecycle.Machine) (Stats, error) {
	start := time.Now()
	log := slog.Default().With("component", "index-builder")

	dir := Dir(cfg.DataDir, cfg.IndexName)
	if cfg.Rebuild {
		if err := os.RemoveAll(dir); err != nil {
			return Stats{}, fmt.Errorf("index: clearing %s for forced rebuild: %w", dir, apperrors.ErrIoFatal)
		}
		if err := docmap.Remove(cfg.DataDir, cfg.Source); err != nil {
			return Stats{}, fmt.Errorf("index: clearing path mapper for forced rebuild: %w", apperrors.ErrIoFatal)
		}
		m.Fail()
	}

	if err := m.Transition(lifecycle.Building); err != nil {
		return Stats{}, err
	}

	spillDir := filepath.Join(dir, "spills")
	if err := os.MkdirAll(spillDir, 0o755); err != nil {
		m.Fail()
		return Stats{}, fmt.Errorf("index: creating spill directory: %w", apperrors.ErrIoFatal)
	}

	mapper := docmap.New(cfg.DataDir, cfg.Source)
	var detector *dedup.Detector
	if !cfg.NoDuplicateDetection {
		maxDist := cfg.SimHashHammingMax
		if maxDist <= 0 {
			maxDist = dedup.HammingMax
		}
		detector = dedup.NewDetector(maxDist)
	}
	b := builder.New(spillDir, flushThreshold(cfg), log)

	stats := Stats{}
	walkErr := filepath.WalkDir(cfg.Source, func(path string, d fs.DirEntry, err error) error {
		// Aborts are honored between documents; partial state is discarded
		// by the caller observing the error.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			log.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		raw, readErr := readWithRetry(ctx, path)
		if readErr != nil {
			log.Warn("skipping unreadable document after retry", "path", path, "error", readErr)
			return nil
		}
		var doc corpusDoc
		if jsonErr := json.Unmarshal(raw, &doc); jsonErr != nil || doc.URL == "" || doc.Content == "" {
			log.Warn("skipping malformed document", "path", path, "error", jsonErr)
			stats.DocsRejectedMalformed++
			return nil
		}
		tokens, tokErr := textpipeline.TokenizeHTML(doc.Content)
		if tokErr != nil {
			log.Warn("skipping document: tokenization failed", "url", doc.URL, "error", tokErr)
			stats.DocsRejectedTokenization++
			return nil
		}
		if len(tokens) == 0 {
			// A document with no tokens after the pipeline is excluded
			// from the index and consumes no doc id.
			stats.DocsRejectedTokenization++
			return nil
		}
		if detector != nil {
			termFreq := make(map[string]uint32, len(tokens))
			for _, t := range tokens {
				termFreq[t.Term]++
			}
			prospectiveID := uint32(mapper.Len())
			if _, dup := detector.Check(prospectiveID, doc.Content, termFreq); dup {
				stats.DocsRejectedDuplicate++
				return nil
			}
		}
		docID := mapper.Intern(doc.URL)
		if err := b.AddDocument(docID, tokens); err != nil {
			return fmt.Errorf("index: adding document %s: %w", doc.URL, apperrors.ErrIoFatal)
		}
		stats.DocsIndexed++
		if cfg.Debug {
			log.Debug("document indexed",
				"url", doc.URL,
				"doc_id", docID,
				"tokens", len(tokens),
				"builder_bytes", b.MemoryBytes(),
			)
		}
		return nil
	})
	if walkErr != nil {
		m.Fail()
		return Stats{}, walkErr
	}

	spillPaths, err := b.Finish()
	if err != nil {
		m.Fail()
		return Stats{}, fmt.Errorf("index: finishing builder: %w", apperrors.ErrIoFatal)
	}
	stats.SpillFiles = len(spillPaths)

	if err := mapper.Save(); err != nil {
		m.Fail()
		return Stats{}, fmt.Errorf("index: saving path mapper: %w", apperrors.ErrIoFatal)
	}

	if err := m.Transition(lifecycle.Merging); err != nil {
		m.Fail()
		return Stats{}, err
	}
	if err := m.Transition(lifecycle.Splitting); err != nil {
		m.Fail()
		return Stats{}, err
	}

	weights := tagWeights(cfg)
	result, err := split.Run(spillPaths, dir, partitionTargetBytes(cfg), uint32(mapper.Len()), weights)
	if err != nil {
		m.Fail()
		return Stats{}, fmt.Errorf("index: splitting merged stream: %w", apperrors.ErrIoFatal)
	}
	stats.PartitionFiles = len(result.Directory)

	for _, p := range spillPaths {
		if rmErr := os.Remove(p); rmErr != nil {
			log.Warn("failed to remove consumed spill file", "path", p, "error", rmErr)
		}
	}
	_ = os.Remove(spillDir)

	if err := m.Transition(lifecycle.Ready); err != nil {
		m.Fail()
		return Stats{}, err
	}

	stats.Elapsed = time.Since(start)
	log.Info("build complete",
		"docs_indexed", stats.DocsIndexed,
		"docs_rejected_malformed", stats.DocsRejectedMalformed,
		"docs_rejected_tokenization", stats.DocsRejectedTokenization,
		"docs_rejected_duplicate", stats.DocsRejectedDuplicate,
		"spill_files", stats.SpillFiles,
		"partition_files", stats.PartitionFiles,
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}

// readWithRetry reads path, retrying a single time so a transient read
// failure does not cost the document its place in the index.
func readWithRetry(ctx context.Context, path string) ([]byte, error) {
	var raw []byte
	err := resilience.Retry(ctx, "corpus-read", resilience.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 10 * time.Millisecond,
	}, func() error {
		var readErr error
		raw, readErr = os.ReadFile(path)
		return readErr
	})
	return raw, err
}

func flushThreshold(cfg config.IndexCoreConfig) int64 {
	if cfg.MemoryFlushThreshold > 0 {
		return cfg.MemoryFlushThreshold
	}
	return 64 << 20
}

func partitionTargetBytes(cfg config.IndexCoreConfig) int64 {
	if cfg.PartitionTargetBytes > 0 {
		return cfg.PartitionTargetBytes
	}
	return 8 << 20
}

func tagWeights(cfg config.IndexCoreConfig) scoring.TagWeights {
	if len(cfg.TagWeights) == 0 {
		return scoring.DefaultTagWeights()
	}
	byName := make(map[string]posting.Tag, len(posting.TagNames))
	for tag, name := range posting.TagNames {
		byName[name] = posting.Tag(tag)
	}
	w := make(scoring.TagWeights, len(cfg.TagWeights))
	for name, mult := range cfg.TagWeights {
		if tag, ok := byName[name]; ok {
			w[tag] = mult
		}
	}
	return w
}
