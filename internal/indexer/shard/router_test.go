package shard

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
)

func routerConfig(t *testing.T) config.IndexCoreConfig {
	root := t.TempDir()
	return config.IndexCoreConfig{
		Source:               filepath.Join(root, "corpus"),
		DataDir:              filepath.Join(root, "data"),
		IndexName:            "router-test",
		NoDuplicateDetection: true,
		MemoryFlushThreshold: 1 << 30,
		PartitionTargetBytes: 1 << 20,
	}
}

func TestShardForDeterministicAndInRange(t *testing.T) {
	r, err := NewRouter(routerConfig(t), 4, nil)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	defer r.Close()

	for i := 0; i < 100; i++ {
		url := fmt.Sprintf("https://example.com/page-%d", i)
		shard := r.ShardFor(url)
		if shard < 0 || shard >= 4 {
			t.Fatalf("ShardFor(%s) = %d, out of range", url, shard)
		}
		if again := r.ShardFor(url); again != shard {
			t.Errorf("ShardFor(%s) not deterministic: %d then %d", url, shard, again)
		}
	}
}

func TestEngineByID(t *testing.T) {
	r, err := NewRouter(routerConfig(t), 2, nil)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	defer r.Close()

	if _, err := r.Engine(0); err != nil {
		t.Errorf("Engine(0): %v", err)
	}
	if _, err := r.Engine(2); err == nil {
		t.Errorf("Engine(2) of 2-shard router should fail")
	}
	if _, err := r.Engine(-1); err == nil {
		t.Errorf("Engine(-1) should fail")
	}
}

func TestStageBuildSearchAcrossShards(t *testing.T) {
	r, err := NewRouter(routerConfig(t), 3, nil)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	defer r.Close()

	total := 30
	for i := 0; i < total; i++ {
		url := fmt.Sprintf("https://example.com/page-%d", i)
		content := fmt.Sprintf("<html><body>sharded corpus page number%d with shared vocabulary</body></html>", i)
		if err := r.StageDocument(url, content); err != nil {
			t.Fatalf("StageDocument: %v", err)
		}
	}
	if r.StagedDocs() != int64(total) {
		t.Errorf("StagedDocs = %d, want %d", r.StagedDocs(), total)
	}

	stats, err := r.BuildAll(context.Background(), false)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if stats.DocsIndexed != total {
		t.Errorf("BuildAll indexed %d docs, want %d", stats.DocsIndexed, total)
	}
	if !r.Ready() {
		t.Fatalf("router not ready after BuildAll")
	}

	// Every document is searchable in exactly the shard that owns it.
	for i := 0; i < total; i++ {
		url := fmt.Sprintf("https://example.com/page-%d", i)
		engine := r.Route(url)
		results, err := engine.Search(context.Background(), fmt.Sprintf("number%d", i), 5)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		found := false
		for _, hit := range results {
			if hit.URL == url {
				found = true
			}
		}
		if !found {
			t.Errorf("document %s not found in its owning shard", url)
		}
	}

	var docSum int64
	for _, e := range r.Engines() {
		docSum += e.DocCount()
	}
	if docSum != int64(total) {
		t.Errorf("shard doc counts sum to %d, want %d", docSum, total)
	}
}

func TestReloadAll(t *testing.T) {
	cfg := routerConfig(t)
	writer, err := NewRouter(cfg, 2, nil)
	if err != nil {
		t.Fatalf("NewRouter (writer): %v", err)
	}
	populated := make(map[int]bool)
	for i := 0; i < 10; i++ {
		url := fmt.Sprintf("https://example.com/%d", i)
		if err := writer.StageDocument(url, "<p>reloadable page</p>"); err != nil {
			t.Fatalf("StageDocument: %v", err)
		}
		populated[writer.ShardFor(url)] = true
	}
	if _, err := writer.BuildAll(context.Background(), false); err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	writer.Close()

	// Only shards that actually received documents have index artifacts
	// to adopt.
	reader, err := NewRouter(cfg, 2, nil)
	if err != nil {
		t.Fatalf("NewRouter (reader): %v", err)
	}
	defer reader.Close()
	if ready := reader.ReloadAll(); ready != len(populated) {
		t.Errorf("ReloadAll reported %d ready shards, want %d", ready, len(populated))
	}
}
