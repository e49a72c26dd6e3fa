package index_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/docmap"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/lifecycle"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
)

func writeDoc(t *testing.T, dir, name string, fields map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating corpus dir: %v", err)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshaling doc: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		t.Fatalf("writing doc: %v", err)
	}
}

func testConfig(t *testing.T) config.IndexCoreConfig {
	root := t.TempDir()
	return config.IndexCoreConfig{
		Source:               filepath.Join(root, "corpus"),
		DataDir:              filepath.Join(root, "data"),
		IndexName:            "test",
		NoDuplicateDetection: true,
		MemoryFlushThreshold: 1 << 30,
		PartitionTargetBytes: 1 << 20,
	}
}

func TestBuildProducesReadyIndex(t *testing.T) {
	cfg := testConfig(t)
	for i := 0; i < 5; i++ {
		writeDoc(t, cfg.Source, fmt.Sprintf("doc-%d.json", i), map[string]string{
			"url":     fmt.Sprintf("https://example.com/%d", i),
			"content": fmt.Sprintf("<html><body>page number %d about indexing</body></html>", i),
		})
	}
	m := lifecycle.New(lifecycle.Absent)
	stats, err := index.Build(context.Background(), cfg, m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.DocsIndexed != 5 {
		t.Errorf("DocsIndexed = %d, want 5", stats.DocsIndexed)
	}
	if stats.PartitionFiles == 0 {
		t.Errorf("no partition files written")
	}
	if !m.IsReady() {
		t.Errorf("machine in state %s after successful build, want ready", m.State())
	}
	if !index.DetectReady(cfg) {
		t.Errorf("DetectReady = false after successful build")
	}
}

func TestDetectReadyOnFreshDataDir(t *testing.T) {
	cfg := testConfig(t)
	if index.DetectReady(cfg) {
		t.Errorf("DetectReady = true with no index on disk")
	}
}

func TestMalformedAndUnknownKeysHandling(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg.Source, "good.json", map[string]string{
		"url": "https://example.com/good", "content": "<p>valid page body</p>",
	})
	// Unknown keys are ignored, not fatal.
	writeDoc(t, cfg.Source, "extra.json", map[string]string{
		"url": "https://example.com/extra", "content": "<p>another valid page</p>",
		"crawled_at": "2024-01-01", "depth": "3",
	})
	// Missing content: skipped with a warning.
	writeDoc(t, cfg.Source, "missing.json", map[string]string{
		"url": "https://example.com/missing",
	})
	// Not JSON at all: skipped.
	if err := os.WriteFile(filepath.Join(cfg.Source, "junk.json"), []byte("{{{"), 0o644); err != nil {
		t.Fatalf("writing junk: %v", err)
	}

	m := lifecycle.New(lifecycle.Absent)
	stats, err := index.Build(context.Background(), cfg, m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.DocsIndexed != 2 {
		t.Errorf("DocsIndexed = %d, want 2", stats.DocsIndexed)
	}
	if stats.DocsRejectedMalformed != 2 {
		t.Errorf("DocsRejectedMalformed = %d, want 2", stats.DocsRejectedMalformed)
	}
}

func TestDuplicateSuppression(t *testing.T) {
	cfg := testConfig(t)
	cfg.NoDuplicateDetection = false
	content := "<html><body>byte identical page body for duplicate detection</body></html>"
	writeDoc(t, cfg.Source, "a.json", map[string]string{
		"url": "https://example.com/first", "content": content,
	})
	writeDoc(t, cfg.Source, "b.json", map[string]string{
		"url": "https://example.com/second", "content": content,
	})

	m := lifecycle.New(lifecycle.Absent)
	stats, err := index.Build(context.Background(), cfg, m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.DocsIndexed != 1 || stats.DocsRejectedDuplicate != 1 {
		t.Errorf("indexed=%d rejected=%d, want 1 and 1", stats.DocsIndexed, stats.DocsRejectedDuplicate)
	}

	mapper, err := docmap.Load(cfg.DataDir, cfg.Source)
	if err != nil {
		t.Fatalf("loading mapper: %v", err)
	}
	if mapper.Len() != 1 {
		t.Errorf("mapper holds %d urls, want 1", mapper.Len())
	}
	if _, ok := mapper.Lookup("https://example.com/first"); !ok {
		t.Errorf("first url missing from mapper")
	}
	if _, ok := mapper.Lookup("https://example.com/second"); ok {
		t.Errorf("rejected duplicate url was assigned a doc id")
	}
}

func TestZeroLengthDocumentExcluded(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg.Source, "real.json", map[string]string{
		"url": "https://example.com/real", "content": "<p>actual words</p>",
	})
	writeDoc(t, cfg.Source, "empty.json", map[string]string{
		"url": "https://example.com/empty", "content": "<p>!!! ... ???</p>",
	})
	m := lifecycle.New(lifecycle.Absent)
	stats, err := index.Build(context.Background(), cfg, m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.DocsIndexed != 1 {
		t.Errorf("DocsIndexed = %d, want 1 (empty doc excluded)", stats.DocsIndexed)
	}
	mapper, err := docmap.Load(cfg.DataDir, cfg.Source)
	if err != nil {
		t.Fatalf("loading mapper: %v", err)
	}
	if _, ok := mapper.Lookup("https://example.com/empty"); ok {
		t.Errorf("zero-length document consumed a doc id")
	}
}

func TestForcedRebuildClearsState(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg.Source, "a.json", map[string]string{
		"url": "https://example.com/a", "content": "<p>original corpus page</p>",
	})
	m := lifecycle.New(lifecycle.Absent)
	if _, err := index.Build(context.Background(), cfg, m); err != nil {
		t.Fatalf("first build: %v", err)
	}

	// Second build with REBUILD discards the mapper and index wholesale.
	writeDoc(t, cfg.Source, "b.json", map[string]string{
		"url": "https://example.com/b", "content": "<p>added corpus page</p>",
	})
	cfg.Rebuild = true
	stats, err := index.Build(context.Background(), cfg, m)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if stats.DocsIndexed != 2 {
		t.Errorf("rebuild indexed %d docs, want 2", stats.DocsIndexed)
	}
	if !index.DetectReady(cfg) {
		t.Errorf("index not ready after rebuild")
	}
}

func TestBuildCancelledBetweenDocuments(t *testing.T) {
	cfg := testConfig(t)
	for i := 0; i < 10; i++ {
		writeDoc(t, cfg.Source, fmt.Sprintf("doc-%d.json", i), map[string]string{
			"url": fmt.Sprintf("https://example.com/%d", i), "content": "<p>page body</p>",
		})
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := lifecycle.New(lifecycle.Absent)
	if _, err := index.Build(ctx, cfg, m); err == nil {
		t.Errorf("build with cancelled context should fail")
	}
	if m.State() != lifecycle.Absent {
		t.Errorf("aborted build left state %s, want absent", m.State())
	}
}

func TestMissingSourceDirectory(t *testing.T) {
	cfg := testConfig(t)
	// Source never created: the walk root itself errors, which is skipped
	// per-path, leaving an empty but consistent index.
	m := lifecycle.New(lifecycle.Absent)
	stats, err := index.Build(context.Background(), cfg, m)
	if err != nil {
		t.Fatalf("Build over missing source: %v", err)
	}
	if stats.DocsIndexed != 0 {
		t.Errorf("DocsIndexed = %d, want 0", stats.DocsIndexed)
	}
}
