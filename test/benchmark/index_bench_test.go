// Package benchmark contains Go benchmarks for the index build pipeline
// and the search path, measuring throughput and allocation behaviour.
package benchmark

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/builder"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/merge"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/split"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/textpipeline"
)

func benchmarkTokens(i int) []textpipeline.TaggedToken {
	text := fmt.Sprintf(
		"benchmark document number %d with several repeated terms for measuring indexing throughput across partitions", i)
	return textpipeline.Tokenize(text, posting.TagOther)
}

// BenchmarkBuilderAddDocument measures per-document insert throughput into
// the in-memory accumulator (threshold high enough that no spill occurs).
func BenchmarkBuilderAddDocument(b *testing.B) {
	bl := builder.New(b.TempDir(), 1<<40, nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := bl.AddDocument(uint32(i), benchmarkTokens(i)); err != nil {
			b.Fatalf("adding document: %v", err)
		}
	}
}

// BenchmarkBuilderSpill measures accumulating and spilling sorted runs
// under a tight memory threshold.
func BenchmarkBuilderSpill(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		dir := filepath.Join(b.TempDir(), fmt.Sprintf("run-%d", i))
		bl := builder.New(dir, 16<<10, nil)
		b.StartTimer()
		for d := 0; d < 200; d++ {
			if err := bl.AddDocument(uint32(d), benchmarkTokens(d)); err != nil {
				b.Fatalf("adding document: %v", err)
			}
		}
		if _, err := bl.Finish(); err != nil {
			b.Fatalf("finishing builder: %v", err)
		}
	}
}

// BenchmarkKWayMerge measures merging several sorted spill files into the
// combined token stream.
func BenchmarkKWayMerge(b *testing.B) {
	dir := b.TempDir()
	bl := builder.New(dir, 8<<10, nil)
	for d := 0; d < 500; d++ {
		if err := bl.AddDocument(uint32(d), benchmarkTokens(d)); err != nil {
			b.Fatalf("adding document: %v", err)
		}
	}
	spills, err := bl.Finish()
	if err != nil {
		b.Fatalf("finishing builder: %v", err)
	}
	if len(spills) < 2 {
		b.Fatalf("expected multiple spills, got %d", len(spills))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m, err := merge.Open(spills)
		if err != nil {
			b.Fatalf("opening merge: %v", err)
		}
		for {
			_, ok, err := m.Next()
			if err != nil {
				b.Fatalf("merging: %v", err)
			}
			if !ok {
				break
			}
		}
		m.Close()
	}
}

// BenchmarkSplit measures draining the merged stream into final partitions
// plus df-table and vector-table construction.
func BenchmarkSplit(b *testing.B) {
	srcDir := b.TempDir()
	bl := builder.New(srcDir, 8<<10, nil)
	for d := 0; d < 500; d++ {
		if err := bl.AddDocument(uint32(d), benchmarkTokens(d)); err != nil {
			b.Fatalf("adding document: %v", err)
		}
	}
	spills, err := bl.Finish()
	if err != nil {
		b.Fatalf("finishing builder: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		outDir := filepath.Join(b.TempDir(), fmt.Sprintf("out-%d", i))
		if _, err := split.Run(spills, outDir, 4<<10, 500, scoring.DefaultTagWeights()); err != nil {
			b.Fatalf("splitting: %v", err)
		}
	}
}
