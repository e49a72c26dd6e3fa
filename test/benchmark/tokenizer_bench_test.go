package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/textpipeline"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Distributed search engines process queries across multiple shards to achieve
        horizontal scalability. Each shard maintains its own inverted index and responds
        to queries independently. Results are merged using a global ranking algorithm
        that accounts for term frequency and inverse document frequency across the
        entire corpus. This architecture enables sub-second query latency even with
        billions of documents spread across hundreds of nodes.`,
	"long": strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. These systems combine tokenization, lemmatization, and stop word
        removal to normalize text into searchable terms. The inverted index maps each
        term to the documents containing it, along with a per-tag frequency breakdown for
        weighted scoring. Cosine ranking over normalized document vectors produces
        relevance scores, while TF-IDF upper bounds prune the candidate set. Caching
        layers reduce latency for repeated queries while circuit breakers protect
        against cascade failures in distributed deployments. `, 20),
}

var sampleHTML = `<html><head><title>Search engine internals</title></head><body>
<h1>Inverted indexes</h1>
<p>An inverted index maps <b>tokens</b> to the documents containing them.</p>
<h2>Partitioning</h2>
<p>Partitions cover disjoint token ranges and are located via a binary-searchable
directory keyed by each partition's <strong>smallest token</strong>.</p>
<script>ignore.me()</script>
</body></html>`

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := textpipeline.Tokenize(text, posting.TagOther)
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := textpipeline.Tokenize(text, posting.TagOther)
			_ = tokens
		}
	})
}

func BenchmarkTokenizeHTML(b *testing.B) {
	b.ReportAllocs()
	b.SetBytes(int64(len(sampleHTML)))
	for i := 0; i < b.N; i++ {
		tokens, err := textpipeline.TokenizeHTML(sampleHTML)
		if err != nil {
			b.Fatalf("tokenizing html: %v", err)
		}
		_ = tokens
	}
}

func BenchmarkNormalization(b *testing.B) {
	words := []string{
		"running", "distributed", "searching", "indexing",
		"tokenization", "normalization", "efficiently",
		"processing", "infrastructure", "scalability",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			tokens := textpipeline.Tokenize(w, posting.TagOther)
			_ = tokens
		}
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "distributed search analytics platform indexing "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := textpipeline.Tokenize(text, posting.TagOther)
				_ = tokens
			}
		})
	}
}
