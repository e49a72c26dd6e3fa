// Package split implements the Index Splitter: it drains the K-way
// Merger's combined token stream into size-bounded final partition files,
// builds the Partition Directory over them, and — since the merged stream
// is the only point where every token's final document frequency is
// known — simultaneously builds the document-frequency table and each
// document's L2-normalized TF-IDF vector for the Searcher's cosine
// rerank stage.
package split

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/dftable"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/merge"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/vectors"
)

var sanitizeExpr = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DirectoryEntry maps a partition's smallest token to its file path, the
// unit the Partition Directory binary-searches over.
type DirectoryEntry struct {
	SmallestToken string
	Path          string
}

// Directory is the Partition Directory: an ascending, binary-searchable
// list of partitions.
type Directory []DirectoryEntry

// Find returns the path of the partition that would contain token, or
// false if the directory is empty.
func (d Directory) Find(token string) (string, bool) {
	if len(d) == 0 {
		return "", false
	}
	i := sort.Search(len(d), func(i int) bool { return d[i].SmallestToken > token })
	if i == 0 {
		return d[0].Path, true
	}
	return d[i-1].Path, true
}

// Result summarizes one split run.
type Result struct {
	Directory Directory
	DFTable   *dftable.Table
}

// Run drains spillPaths through the K-way Merger, writing size-bounded
// final partitions to outDir, and returns the resulting Partition
// Directory and document-frequency table. totalDocs is the corpus size
// from the Path Mapper, used for IDF. The term-weight formula matches the
// Searcher's exactly (see internal/scoring) so pruning stays admissible
// against the cosine rerank.
//
// A new partition starts only at a token boundary, once the current file's
// record bytes reach or exceed targetBytes.
func Run(spillPaths []string, outDir string, targetBytes int64, totalDocs uint32, weights scoring.TagWeights) (Result, error) {
	m, err := merge.Open(spillPaths)
	if err != nil {
		return Result{}, fmt.Errorf("split: opening merge: %w", err)
	}
	defer m.Close()

	dft := dftable.New(totalDocs)
	docWeights := make(map[uint32]map[string]float64)

	var dir Directory
	var cur *segment.PartitionWriter
	var curSmallest string

	rollIfNeeded := func(token string) error {
		if cur != nil && cur.BytesWritten() < targetBytes {
			return nil
		}
		if cur != nil {
			path, err := cur.Close()
			if err != nil {
				return err
			}
			dir = append(dir, DirectoryEntry{SmallestToken: curSmallest, Path: path})
		}
		w, err := segment.CreatePartition(outDir, sanitizeExpr.ReplaceAllString(token, "_"))
		if err != nil {
			return err
		}
		cur = w
		curSmallest = token
		return nil
	}

	for {
		entry, ok, err := m.Next()
		if err != nil {
			return Result{}, fmt.Errorf("split: merging: %w", err)
		}
		if !ok {
			break
		}
		if err := rollIfNeeded(entry.Token); err != nil {
			return Result{}, fmt.Errorf("split: rolling partition: %w", err)
		}
		if err := cur.Write(entry); err != nil {
			return Result{}, fmt.Errorf("split: writing entry: %w", err)
		}

		df := uint32(entry.DocFreq())
		dft.Add(entry.Token, df)
		idf := dft.IDF(df)
		for _, p := range entry.Postings {
			wv, ok := docWeights[p.DocID]
			if !ok {
				wv = make(map[string]float64)
				docWeights[p.DocID] = wv
			}
			wv[entry.Token] = weights.TermWeight(p, idf)
		}
	}
	if cur != nil {
		path, err := cur.Close()
		if err != nil {
			return Result{}, fmt.Errorf("split: closing final partition: %w", err)
		}
		dir = append(dir, DirectoryEntry{SmallestToken: curSmallest, Path: path})
	}

	vw, err := vectors.Create(outDir)
	if err != nil {
		return Result{}, fmt.Errorf("split: creating vector file: %w", err)
	}
	docIDs := make([]uint32, 0, len(docWeights))
	for id := range docWeights {
		docIDs = append(docIDs, id)
	}
	sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })
	for _, id := range docIDs {
		if err := vw.Write(id, vectors.Normalize(docWeights[id])); err != nil {
			return Result{}, fmt.Errorf("split: writing vector: %w", err)
		}
	}
	if err := vw.Close(); err != nil {
		return Result{}, fmt.Errorf("split: closing vector file: %w", err)
	}
	if err := dft.Save(outDir); err != nil {
		return Result{}, fmt.Errorf("split: saving df table: %w", err)
	}

	if err := SaveDirectory(outDir, dir); err != nil {
		return Result{}, err
	}
	return Result{Directory: dir, DFTable: dft}, nil
}

// DirectoryPath is the well-known file name the directory is persisted
// under; callers that need to reload an index read partitions from this
// file rather than re-scanning outDir.
func DirectoryPath(outDir string) string { return filepath.Join(outDir, "directory.gob") }

// SaveDirectory persists dir atomically under outDir.
func SaveDirectory(outDir string, dir Directory) error {
	tmp := DirectoryPath(outDir) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("split: creating directory file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(dir); err != nil {
		f.Close()
		return fmt.Errorf("split: encoding directory: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("split: closing directory file: %w", err)
	}
	return os.Rename(tmp, DirectoryPath(outDir))
}

// LoadDirectory reads a previously persisted Directory.
func LoadDirectory(outDir string) (Directory, error) {
	f, err := os.Open(DirectoryPath(outDir))
	if err != nil {
		return nil, fmt.Errorf("split: opening directory file: %w", err)
	}
	defer f.Close()
	var dir Directory
	if err := gob.NewDecoder(f).Decode(&dir); err != nil {
		return nil, fmt.Errorf("split: decoding directory: %w", err)
	}
	return dir, nil
}
