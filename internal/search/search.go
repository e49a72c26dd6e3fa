// Package search implements the Searcher: the query-time half of the
// retrieval pipeline. It loads a built index's Partition Directory,
// document-frequency table, and document vectors, then answers queries
// with a two-stage pipeline — TF-IDF upper-bound pruning to a bounded
// candidate set, followed by an exact cosine-similarity rerank against
// the precomputed document vectors — mirroring the platform's
// retrieve-then-rank executor/ranker split.
package search

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/dftable"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/docmap"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/index"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/split"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/textpipeline"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/vectors"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/errors"
)

// defaultPruneFactor is used when the config leaves PruneCandidateFactor
// unset: the pruning stage keeps the top factor*k candidates by TF-IDF
// upper bound before the cosine rerank.
const defaultPruneFactor = 10

// Result is a single ranked hit. Score is a cosine similarity in [0, 1].
type Result struct {
	DocID uint32  `json:"doc_id"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Searcher answers queries against one loaded index. It is safe for
// concurrent use; partition readers are opened lazily and cached.
type Searcher struct {
	cfg     config.IndexCoreConfig
	dir     split.Directory
	dft     *dftable.Table
	vecs    *vectors.Reader
	mapper  *docmap.Mapper
	weights scoring.TagWeights

	mu         sync.Mutex
	partitions map[string]*segment.PartitionReader
}

// Open loads a previously built index's artifacts for querying. Any load
// failure is reported as a corrupt index so callers can prompt a rebuild.
func Open(cfg config.IndexCoreConfig) (*Searcher, error) {
	dir := index.Dir(cfg.DataDir, cfg.IndexName)

	directory, err := split.LoadDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("search: loading partition directory: %w", apperrors.ErrCorruptIndex)
	}
	dft, err := dftable.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("search: loading df table: %w", apperrors.ErrCorruptIndex)
	}
	vecs, err := vectors.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("search: loading vector table: %w", apperrors.ErrCorruptIndex)
	}
	mapper, err := docmap.Load(cfg.DataDir, cfg.Source)
	if err != nil {
		vecs.Close()
		return nil, fmt.Errorf("search: loading path mapper: %w", apperrors.ErrCorruptIndex)
	}

	return &Searcher{
		cfg:        cfg,
		dir:        directory,
		dft:        dft,
		vecs:       vecs,
		mapper:     mapper,
		weights:    tagWeightsFromConfig(cfg),
		partitions: make(map[string]*segment.PartitionReader),
	}, nil
}

// Close releases open file handles.
func (s *Searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.partitions {
		_ = p.Close()
	}
	return s.vecs.Close()
}

// DocCount returns the number of documents the loaded index covers.
func (s *Searcher) DocCount() uint32 { return s.dft.TotalDocs }

// PartitionCount returns the number of final partition files.
func (s *Searcher) PartitionCount() int { return len(s.dir) }

func tagWeightsFromConfig(cfg config.IndexCoreConfig) scoring.TagWeights {
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

// partitionFor returns a cached (or newly opened) reader for path. A
// missing partition file is reported as not-found rather than an error so
// its tokens degrade to unknown instead of failing the whole query.
func (s *Searcher) partitionFor(path string) (*segment.PartitionReader, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.partitions[path]; ok {
		return r, true, nil
	}
	r, err := segment.OpenPartition(path)
	if err != nil {
		if isMissingFile(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("search: opening partition %s: %w", path, apperrors.ErrCorruptIndex)
	}
	s.partitions[path] = r
	return r, true, nil
}

// lookup resolves a single query token to its TokenEntry, or ok=false if
// the token is unknown to the index.
func (s *Searcher) lookup(token string) (posting.TokenEntry, bool, error) {
	path, found := s.dir.Find(token)
	if !found {
		return posting.TokenEntry{}, false, nil
	}
	r, found, err := s.partitionFor(path)
	if err != nil || !found {
		return posting.TokenEntry{}, false, err
	}
	return r.Lookup(token)
}

// Matches returns the set of doc ids containing term (after running term
// through the shared text pipeline). Used by the query executor's NOT
// exclusion filter and its per-term match counts.
func (s *Searcher) Matches(term string) (map[uint32]struct{}, error) {
	tokens := textpipeline.Tokenize(term, posting.TagOther)
	out := make(map[uint32]struct{})
	for _, t := range tokens {
		entry, ok, err := s.lookup(t.Term)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, p := range entry.Postings {
			out[p.DocID] = struct{}{}
		}
	}
	return out, nil
}

// candidate accumulates a document's TF-IDF upper-bound score across the
// query's matched terms, ahead of the exact cosine rerank.
type candidate struct {
	docID uint32
	bound float64
}

// Search tokenizes query the same way the builder tokenizes documents,
// looks up each distinct term's posting list, prunes to the top M
// candidates by TF-IDF upper bound, reranks the survivors by exact cosine
// similarity against their precomputed document vectors, and returns the
// top k results tie-broken by ascending doc id.
//
// A query that tokenizes to nothing, or whose terms are all unknown to
// the index, returns an empty result set and no error. Cancellation is
// checked between the lookup, prune, and score stages.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	terms := dedupeTerms(textpipeline.Tokenize(query, posting.TagOther))
	if len(terms) == 0 {
		return nil, nil
	}

	queryVector := make(map[string]float64, len(terms))
	bounds := make(map[uint32]float64)
	matched, err := s.accumulate(terms, queryVector, bounds)
	if err != nil {
		return nil, err
	}
	if matched == 0 && s.cfg.UseSpellcheck {
		// Zero-hit fallback: retry with the closest in-vocabulary variant
		// of each unknown term.
		corrected := make([]string, 0, len(terms))
		for _, term := range terms {
			if variant, ok := s.Suggest(term); ok {
				corrected = append(corrected, variant)
			}
		}
		if len(corrected) > 0 {
			matched, err = s.accumulate(corrected, queryVector, bounds)
			if err != nil {
				return nil, err
			}
		}
	}
	if matched == 0 || len(bounds) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pruneFactor := s.cfg.PruneCandidateFactor
	if pruneFactor <= 0 {
		pruneFactor = defaultPruneFactor
	}
	m := k * pruneFactor
	if m <= 0 || m > len(bounds) {
		m = len(bounds)
	}

	candidates := make([]candidate, 0, len(bounds))
	for id, b := range bounds {
		candidates = append(candidates, candidate{docID: id, bound: b})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].bound != candidates[j].bound {
			return candidates[i].bound > candidates[j].bound
		}
		return candidates[i].docID < candidates[j].docID
	})
	candidates = candidates[:m]
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		docVec, ok, err := s.vecs.Get(c.docID)
		if err != nil {
			return nil, fmt.Errorf("search: reading document vector: %w", apperrors.ErrCorruptIndex)
		}
		var score float64
		if ok {
			score = vectors.CosineSimilarity(queryVector, docVec)
		}
		url, _ := s.mapper.URL(c.docID)
		results = append(results, Result{DocID: c.docID, URL: url, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// accumulate folds each term's posting list into the query vector and the
// per-document upper-bound map, returning how many terms were found in
// the index.
func (s *Searcher) accumulate(terms []string, queryVector map[string]float64, bounds map[uint32]float64) (int, error) {
	matched := 0
	for _, term := range terms {
		entry, ok, err := s.lookup(term)
		if err != nil {
			return matched, err
		}
		if !ok {
			continue
		}
		matched++
		idf := s.dft.IDF(uint32(entry.DocFreq()))
		queryVector[term] = idf
		for _, p := range entry.Postings {
			bounds[p.DocID] += s.weights.TermWeight(p, idf)
		}
	}
	return matched, nil
}

func dedupeTerms(tokens []textpipeline.TaggedToken) []string {
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t.Term]; ok {
			continue
		}
		seen[t.Term] = struct{}{}
		terms = append(terms, t.Term)
	}
	return terms
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
