package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
)

func builtEngine(t *testing.T, docs map[string]string) *indexer.Engine {
	t.Helper()
	root := t.TempDir()
	cfg := config.IndexCoreConfig{
		Source:               filepath.Join(root, "corpus"),
		DataDir:              filepath.Join(root, "data"),
		IndexName:            "executor-test",
		NoDuplicateDetection: true,
		MemoryFlushThreshold: 1 << 30,
		PartitionTargetBytes: 1 << 20,
	}
	e, err := indexer.NewEngine(cfg, 0, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	for url, content := range docs {
		if err := e.StageDocument(url, content); err != nil {
			t.Fatalf("StageDocument: %v", err)
		}
	}
	if _, err := e.Build(context.Background(), false); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return e
}

var executorDocs = map[string]string{
	"https://example.com/fox":    "<html><body>the quick brown fox</body></html>",
	"https://example.com/dogs":   "<html><body>quick brown dogs</body></html>",
	"https://example.com/lazy":   "<html><body>lazy fox sleeping</body></html>",
	"https://example.com/turtle": "<html><body>slow green turtle</body></html>",
}

func TestExecuteRankedQuery(t *testing.T) {
	exec := New(builtEngine(t, executorDocs))
	res, err := exec.Execute(context.Background(), parser.Parse("quick fox"), 10)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.TotalHits != 3 {
		t.Errorf("TotalHits = %d, want 3", res.TotalHits)
	}
	if res.Results[0].URL != "https://example.com/fox" {
		t.Errorf("top hit = %s, want the document with both terms", res.Results[0].URL)
	}
	if res.TermStats["quick"] != 2 || res.TermStats["fox"] != 2 {
		t.Errorf("TermStats = %v", res.TermStats)
	}
}

func TestExecuteEmptyPlan(t *testing.T) {
	exec := New(builtEngine(t, executorDocs))
	res, err := exec.Execute(context.Background(), parser.Parse("the a of"), 10)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Results) != 0 {
		t.Errorf("stop-word-only plan returned %d hits", len(res.Results))
	}
}

func TestExecuteNotExclusion(t *testing.T) {
	exec := New(builtEngine(t, executorDocs))
	res, err := exec.Execute(context.Background(), parser.Parse("fox NOT lazy"), 10)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, hit := range res.Results {
		if hit.URL == "https://example.com/lazy" {
			t.Errorf("excluded document returned: %v", res.Results)
		}
	}
	if len(res.Results) != 1 || res.Results[0].URL != "https://example.com/fox" {
		t.Errorf("Results = %v, want only the fox document", res.Results)
	}
}

func TestShardedExecutorMergesAcrossShards(t *testing.T) {
	root := t.TempDir()
	cfg := config.IndexCoreConfig{
		Source:               filepath.Join(root, "corpus"),
		DataDir:              filepath.Join(root, "data"),
		IndexName:            "sharded-test",
		NoDuplicateDetection: true,
		MemoryFlushThreshold: 1 << 30,
		PartitionTargetBytes: 1 << 20,
	}
	router, err := shard.NewRouter(cfg, 2, nil)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	defer router.Close()

	total := 12
	for i := 0; i < total; i++ {
		url := fmt.Sprintf("https://example.com/page-%d", i)
		if err := router.StageDocument(url, fmt.Sprintf("<p>common corpus token plus unique%d</p>", i)); err != nil {
			t.Fatalf("StageDocument: %v", err)
		}
	}
	if _, err := router.BuildAll(context.Background(), false); err != nil {
		t.Fatalf("BuildAll: %v", err)
	}

	exec := NewSharded(router.Engines())
	res, err := exec.Execute(context.Background(), parser.Parse("common"), total)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Results) != total {
		t.Errorf("sharded query returned %d hits, want %d from both shards", len(res.Results), total)
	}
	seen := make(map[string]bool)
	for _, hit := range res.Results {
		if seen[hit.URL] {
			t.Errorf("duplicate hit for %s", hit.URL)
		}
		seen[hit.URL] = true
	}
	for i := 1; i < len(res.Results); i++ {
		if res.Results[i].Score > res.Results[i-1].Score {
			t.Errorf("merged results not in descending score order")
		}
	}
}

func TestShardedExecutorEmptyPlan(t *testing.T) {
	exec := NewSharded(nil)
	res, err := exec.Execute(context.Background(), parser.Parse(""), 10)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Results) != 0 {
		t.Errorf("empty plan returned hits: %v", res.Results)
	}
}
