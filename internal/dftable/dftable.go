// Package dftable implements the document-frequency table: the per-token
// df counts and the corpus-wide document count the Searcher needs to turn
// a token's df into an IDF weight. It is built by the Index Splitter in
// the same pass that writes the final partitions and persisted alongside
// them as df.bin.
package dftable

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/encoding/protowire"
)

const magic uint32 = 0x53504446 // "SPDF"

// Table maps every indexed token to its document frequency and records the
// total number of indexed documents.
type Table struct {
	TotalDocs uint32
	DF        map[string]uint32
}

// New returns an empty Table for a corpus of totalDocs documents.
func New(totalDocs uint32) *Table {
	return &Table{TotalDocs: totalDocs, DF: make(map[string]uint32)}
}

// Add records token's document frequency.
func (t *Table) Add(token string, df uint32) {
	t.DF[token] = df
}

// Lookup returns token's document frequency, or 0 if the token is not in
// the vocabulary.
func (t *Table) Lookup(token string) uint32 {
	return t.DF[token]
}

// Contains reports whether token is in the indexed vocabulary.
func (t *Table) Contains(token string) bool {
	_, ok := t.DF[token]
	return ok
}

// Tokens returns the vocabulary in unspecified order.
func (t *Table) Tokens() []string {
	out := make([]string, 0, len(t.DF))
	for tok := range t.DF {
		out = append(out, tok)
	}
	return out
}

// IDF returns log(N/df) for a token with the given document frequency, or
// 0 for a token absent from the corpus.
func (t *Table) IDF(df uint32) float64 {
	if df == 0 || t.TotalDocs == 0 {
		return 0
	}
	return math.Log(float64(t.TotalDocs) / float64(df))
}

func path(dir string) string { return filepath.Join(dir, "df.bin") }

// Save persists the table atomically under dir: a fixed header, a run of
// varint-framed (token, df) pairs, and a CRC32 footer over the pairs.
func (t *Table) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dftable: creating directory: %w", err)
	}
	var body []byte
	for tok, df := range t.DF {
		body = protowire.AppendString(body, tok)
		body = protowire.AppendVarint(body, uint64(df))
	}
	header := make([]byte, 12)
	binary.LittleEndian.PutUint32(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], t.TotalDocs)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(t.DF)))
	footer := make([]byte, 4)
	binary.LittleEndian.PutUint32(footer, crc32.ChecksumIEEE(body))

	tmp := path(dir) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("dftable: creating %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	for _, chunk := range [][]byte{header, body, footer} {
		if _, err := w.Write(chunk); err != nil {
			f.Close()
			return fmt.Errorf("dftable: writing: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("dftable: flushing: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("dftable: syncing: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("dftable: closing: %w", err)
	}
	return os.Rename(tmp, path(dir))
}

// Load reads a previously persisted Table from dir, verifying its
// checksum.
func Load(dir string) (*Table, error) {
	raw, err := os.ReadFile(path(dir))
	if err != nil {
		return nil, fmt.Errorf("dftable: reading: %w", err)
	}
	if len(raw) < 16 {
		return nil, fmt.Errorf("dftable: truncated file")
	}
	if got := binary.LittleEndian.Uint32(raw[0:4]); got != magic {
		return nil, fmt.Errorf("dftable: bad magic %x", got)
	}
	totalDocs := binary.LittleEndian.Uint32(raw[4:8])
	count := binary.LittleEndian.Uint32(raw[8:12])
	body := raw[12 : len(raw)-4]
	wantCRC := binary.LittleEndian.Uint32(raw[len(raw)-4:])
	if gotCRC := crc32.ChecksumIEEE(body); gotCRC != wantCRC {
		return nil, fmt.Errorf("dftable: checksum mismatch")
	}
	// count comes from the header, which the checksum does not cover, so
	// it is only compared after parsing and never used as a size hint.
	t := &Table{TotalDocs: totalDocs, DF: make(map[string]uint32)}
	for len(body) > 0 {
		tok, n := protowire.ConsumeString(body)
		if n < 0 {
			return nil, fmt.Errorf("dftable: consuming token: %w", protowire.ParseError(n))
		}
		body = body[n:]
		df, n := protowire.ConsumeVarint(body)
		if n < 0 {
			return nil, fmt.Errorf("dftable: consuming df: %w", protowire.ParseError(n))
		}
		body = body[n:]
		t.DF[tok] = uint32(df)
	}
	if uint32(len(t.DF)) != count {
		return nil, io.ErrUnexpectedEOF
	}
	return t, nil
}
