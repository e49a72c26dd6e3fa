// Package vectors persists per-document L2-normalized TF-IDF vectors
// (sparse, token-keyed) built by the Index Splitter and consulted by the
// Searcher's cosine-similarity rerank stage.
package vectors

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Vector is one document's sparse term-weight vector, already L2
// normalized.
type Vector map[string]float64

// Norm computes the L2 (Euclidean) norm of a raw weight vector.
func Norm(v map[string]float64) float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Normalize returns a copy of v scaled to unit L2 norm. A zero vector
// yields an empty Vector (norm 0 means the document had no scored tokens).
func Normalize(v map[string]float64) Vector {
	n := Norm(v)
	if n == 0 {
		return Vector{}
	}
	out := make(Vector, len(v))
	for term, w := range v {
		out[term] = w / n
	}
	return out
}

// CosineSimilarity computes the cosine similarity between a (possibly
// unnormalized) query vector and a unit-normalized document vector.
func CosineSimilarity(query map[string]float64, doc Vector) float64 {
	var dot, queryNorm float64
	for term, qw := range query {
		queryNorm += qw * qw
		if dw, ok := doc[term]; ok {
			dot += qw * dw
		}
	}
	if queryNorm == 0 {
		return 0
	}
	return dot / math.Sqrt(queryNorm)
}

func filePath(dir string) string { return filepath.Join(dir, "vectors.bin") }

type entry struct {
	docID  uint32
	offset int64
	length int64
}

// Writer builds the random-access vector file: callers must write
// documents in ascending doc id order (the order the Index Splitter
// produces them in as it drains the merge stream).
type Writer struct {
	f    *os.File
	dict []entry
	off  int64
	tmp  string
	fin  string
}

// Create opens a new vector file under dir.
func Create(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("vectors: creating directory: %w", err)
	}
	fin := filePath(dir)
	tmp := fin + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("vectors: creating file: %w", err)
	}
	if _, err := f.Seek(16, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("vectors: seeking past header: %w", err)
	}
	return &Writer{f: f, tmp: tmp, fin: fin}, nil
}

// Write appends one document's vector.
func (w *Writer) Write(docID uint32, v Vector) error {
	var b []byte
	terms := make([]string, 0, len(v))
	for t := range v {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	for _, t := range terms {
		b = protowire.AppendString(b, t)
		b = protowire.AppendFixed64(b, math.Float64bits(v[t]))
	}
	n, err := w.f.Write(b)
	if err != nil {
		return fmt.Errorf("vectors: writing vector: %w", err)
	}
	w.dict = append(w.dict, entry{docID: docID, offset: w.off, length: int64(n)})
	w.off += int64(n)
	return nil
}

// Close writes the dictionary and header, and atomically renames the file
// into place.
func (w *Writer) Close() error {
	dictOffset := 16 + w.off
	var dictBytes []byte
	for _, e := range w.dict {
		dictBytes = protowire.AppendVarint(dictBytes, uint64(e.docID))
		dictBytes = protowire.AppendVarint(dictBytes, uint64(e.offset))
		dictBytes = protowire.AppendVarint(dictBytes, uint64(e.length))
	}
	if _, err := w.f.Write(dictBytes); err != nil {
		w.f.Close()
		return fmt.Errorf("vectors: writing dictionary: %w", err)
	}
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(w.dict)))
	binary.LittleEndian.PutUint64(header[4:12], uint64(dictOffset))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(dictBytes)))
	if _, err := w.f.WriteAt(header, 0); err != nil {
		w.f.Close()
		return fmt.Errorf("vectors: writing header: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return fmt.Errorf("vectors: syncing: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("vectors: closing: %w", err)
	}
	return os.Rename(w.tmp, w.fin)
}

// Reader provides random-access lookup of a document's vector by doc id.
type Reader struct {
	f    *os.File
	dict map[uint32]entry
}

// Open opens a previously written vector file.
func Open(dir string) (*Reader, error) {
	f, err := os.Open(filePath(dir))
	if err != nil {
		return nil, fmt.Errorf("vectors: opening: %w", err)
	}
	header := make([]byte, 16)
	if _, err := f.ReadAt(header, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("vectors: reading header: %w", err)
	}
	count := binary.LittleEndian.Uint32(header[0:4])
	dictOffset := int64(binary.LittleEndian.Uint64(header[4:12]))
	dictSize := binary.LittleEndian.Uint32(header[12:16])
	dictBytes := make([]byte, dictSize)
	if _, err := f.ReadAt(dictBytes, dictOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("vectors: reading dictionary: %w", err)
	}
	dict := make(map[uint32]entry, count)
	b := dictBytes
	for len(b) > 0 {
		docID, n := protowire.ConsumeVarint(b)
		b = b[n:]
		offset, n := protowire.ConsumeVarint(b)
		b = b[n:]
		length, n := protowire.ConsumeVarint(b)
		b = b[n:]
		dict[uint32(docID)] = entry{docID: uint32(docID), offset: int64(offset), length: int64(length)}
	}
	return &Reader{f: f, dict: dict}, nil
}

// Get returns the vector for docID, or false if not present.
func (r *Reader) Get(docID uint32) (Vector, bool, error) {
	e, ok := r.dict[docID]
	if !ok {
		return nil, false, nil
	}
	buf := make([]byte, e.length)
	if _, err := r.f.ReadAt(buf, 16+e.offset); err != nil {
		return nil, false, fmt.Errorf("vectors: reading vector: %w", err)
	}
	v := make(Vector)
	for len(buf) > 0 {
		term, n := protowire.ConsumeString(buf)
		buf = buf[n:]
		bits, n := protowire.ConsumeFixed64(buf)
		buf = buf[n:]
		v[term] = math.Float64frombits(bits)
	}
	return v, true, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error { return r.f.Close() }
