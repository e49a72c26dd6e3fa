// Package builder implements the Partition Builder: it accumulates
// tokenized documents in a bounded in-memory map and spills a
// token-sorted run to disk whenever a monotone memory estimator crosses
// the configured threshold, per the external-memory sort-then-spill
// algorithm.
package builder

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/textpipeline"
)

// perPostingOverhead is a fixed per-posting byte estimate (doc id,
// frequency, and bookkeeping) added to the memory estimator once for every
// new (token, doc) posting, independent of map/slice growth factors. It keeps
// the estimator monotone and cheap to maintain incrementally.
const perPostingOverhead = 32

// Builder accumulates postings in memory and spills sorted partitions to
// disk. The zero value is not usable; construct with New.
type Builder struct {
	dir       string
	threshold int64

	index     map[string]map[uint32]*posting.Posting
	memBytes  int64
	spillSeq  int
	spillPaths []string

	log *slog.Logger
}

// New creates a Builder that spills sorted runs into dir whenever the
// memory estimator exceeds memoryThreshold bytes.
func New(dir string, memoryThreshold int64, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		dir:       dir,
		threshold: memoryThreshold,
		index:     make(map[string]map[uint32]*posting.Posting),
		log:       log.With("component", "builder"),
	}
}

// AddDocument records every tagged token's occurrence against docID.
// Duplicate tokens within the same document accumulate frequency and
// per-tag frequency on a single Posting, so a posting list never holds
// two entries for the same document.
func (b *Builder) AddDocument(docID uint32, tokens []textpipeline.TaggedToken) error {
	for _, tok := range tokens {
		docs, ok := b.index[tok.Term]
		if !ok {
			docs = make(map[uint32]*posting.Posting)
			b.index[tok.Term] = docs
			b.memBytes += int64(len(tok.Term)) + 48
		}
		p, ok := docs[docID]
		if !ok {
			p = &posting.Posting{DocID: docID, TagFrequency: make(map[posting.Tag]uint32)}
			docs[docID] = p
			b.memBytes += perPostingOverhead
		}
		p.Frequency++
		p.TagFrequency[tok.Tag]++
		b.memBytes += 8
	}
	if b.memBytes >= b.threshold {
		if err := b.spill(); err != nil {
			return err
		}
	}
	return nil
}

// spill writes the current in-memory map out as a token-sorted spill file
// and resets the accumulator.
func (b *Builder) spill() error {
	if len(b.index) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(b.index))
	for t := range b.index {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)

	w, err := segment.CreateSpill(b.dir, b.spillSeq)
	if err != nil {
		return fmt.Errorf("builder: creating spill: %w", err)
	}
	for _, t := range tokens {
		docs := b.index[t]
		postings := make(posting.PostingList, 0, len(docs))
		for _, p := range docs {
			postings = append(postings, *p)
		}
		sort.Slice(postings, func(i, j int) bool { return postings[i].DocID < postings[j].DocID })
		if err := w.Write(posting.TokenEntry{Token: t, Postings: postings}); err != nil {
			return fmt.Errorf("builder: writing spill entry: %w", err)
		}
	}
	path, err := w.Close()
	if err != nil {
		return fmt.Errorf("builder: closing spill: %w", err)
	}
	b.log.Info("spilled partition", "path", path, "tokens", len(tokens), "seq", b.spillSeq)
	b.spillSeq++
	b.spillPaths = append(b.spillPaths, path)
	b.index = make(map[string]map[uint32]*posting.Posting)
	b.memBytes = 0
	return nil
}

// Finish flushes any remaining in-memory postings and returns the full
// list of spill file paths written over the builder's lifetime, in
// creation order.
func (b *Builder) Finish() ([]string, error) {
	if err := b.spill(); err != nil {
		return nil, err
	}
	return b.spillPaths, nil
}

// MemoryBytes reports the current estimator value, for tests and metrics.
func (b *Builder) MemoryBytes() int64 { return b.memBytes }
