package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
)

// PartitionMagic identifies a final, directory-indexed partition file.
const (
	PartitionMagic uint32 = 0x53505058 // "SPPX"
	FormatVersion  uint32 = 1
	HeaderSize     int    = 32
	FooterSize     int    = 16
)

// PartitionHeader is the fixed-size header written at the start of every
// partition file.
type PartitionHeader struct {
	Magic      uint32
	Version    uint32
	TokenCount uint32
	DocCount   uint32
	DictOffset int64
	DictSize   int64
}

// DictEntry locates one token's record within the partition's record
// region, and carries the document frequency so the Partition Directory
// and Searcher can read df without touching the postings themselves.
type DictEntry struct {
	Token      string
	RecOffset  int64
	RecLen     int64
	DocFreq    uint32
}

// PartitionWriter writes a single final partition file: a sorted run of
// token-entry records followed by a dictionary and checksummed footer.
// Callers must supply entries in ascending token order (the K-way Merger's
// output order).
type PartitionWriter struct {
	f    *os.File
	buf  *bufio.Writer
	dict []DictEntry
	off  int64
	tmp  string
	fin  string
}

// CreatePartition opens a new partition file under dir, named
// partition_<name>.bin where name is the partition's smallest token
// (sanitized by the caller).
func CreatePartition(dir, name string) (*PartitionWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("segment: creating partition directory: %w", err)
	}
	fin := filepath.Join(dir, "partition_"+name+".bin")
	tmp := fin + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("segment: creating partition file: %w", err)
	}
	if _, err := f.Seek(int64(HeaderSize), io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: seeking past partition header: %w", err)
	}
	return &PartitionWriter{f: f, buf: bufio.NewWriter(f), tmp: tmp, fin: fin}, nil
}

// Write appends one token entry's record and a corresponding dictionary
// entry.
func (w *PartitionWriter) Write(e posting.TokenEntry) error {
	payload := EncodeTokenEntry(e)
	n, err := w.buf.Write(payload)
	if err != nil {
		return fmt.Errorf("segment: writing partition record: %w", err)
	}
	w.dict = append(w.dict, DictEntry{
		Token:     e.Token,
		RecOffset: w.off,
		RecLen:    int64(n),
		DocFreq:   uint32(e.DocFreq()),
	})
	w.off += int64(n)
	return nil
}

// Close writes the dictionary, a CRC32-checksummed footer, then the final
// header, syncs, and atomically renames the file into place. It returns the
// final path.
func (w *PartitionWriter) Close() (path string, err error) {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return "", fmt.Errorf("segment: flushing partition file: %w", err)
	}
	dictOffset := int64(HeaderSize) + w.off
	var dictBytes []byte
	for _, d := range w.dict {
		dictBytes = protowire.AppendString(dictBytes, d.Token)
		dictBytes = protowire.AppendVarint(dictBytes, uint64(d.RecOffset))
		dictBytes = protowire.AppendVarint(dictBytes, uint64(d.RecLen))
		dictBytes = protowire.AppendVarint(dictBytes, uint64(d.DocFreq))
	}
	if _, err := w.f.Write(dictBytes); err != nil {
		w.f.Close()
		return "", fmt.Errorf("segment: writing partition dictionary: %w", err)
	}
	checksum := crc32.ChecksumIEEE(dictBytes)
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], checksum)
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(w.dict)))
	if _, err := w.f.Write(footer); err != nil {
		w.f.Close()
		return "", fmt.Errorf("segment: writing partition footer: %w", err)
	}
	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], PartitionMagic)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(w.dict)))
	binary.LittleEndian.PutUint64(header[16:24], uint64(dictOffset))
	binary.LittleEndian.PutUint64(header[24:32], uint64(len(dictBytes)))
	if _, err := w.f.WriteAt(header, 0); err != nil {
		w.f.Close()
		return "", fmt.Errorf("segment: writing partition header: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return "", fmt.Errorf("segment: syncing partition file: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return "", fmt.Errorf("segment: closing partition file: %w", err)
	}
	if err := os.Rename(w.tmp, w.fin); err != nil {
		return "", fmt.Errorf("segment: renaming partition file: %w", err)
	}
	return w.fin, nil
}

// SmallestToken returns the first token written, used by the Index
// Splitter to name and directory-index the partition.
func (w *PartitionWriter) SmallestToken() (string, bool) {
	if len(w.dict) == 0 {
		return "", false
	}
	return w.dict[0].Token, true
}

// BytesWritten reports how many record bytes have been written so far,
// the quantity the Index Splitter's rollover policy is defined over.
func (w *PartitionWriter) BytesWritten() int64 { return w.off }

// PartitionReader provides random-access lookup into a single partition
// file, binary-searching the in-memory dictionary.
type PartitionReader struct {
	f        *os.File
	path     string
	header   PartitionHeader
	dict     []DictEntry
	recBase  int64
}

// OpenPartition opens a partition file, validates its magic and footer
// checksum, and loads its dictionary into memory.
func OpenPartition(path string) (*PartitionReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("segment: opening partition file: %w", err)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: reading partition header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != PartitionMagic {
		f.Close()
		return nil, fmt.Errorf("segment: %s: bad partition magic %x", path, magic)
	}
	header := PartitionHeader{
		Magic:      magic,
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		TokenCount: binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:   binary.LittleEndian.Uint32(headerBytes[12:16]),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: reading partition dictionary: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.DictOffset+header.DictSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: reading partition footer: %w", err)
	}
	wantCRC := binary.LittleEndian.Uint32(footer[0:4])
	if gotCRC := crc32.ChecksumIEEE(dictBytes); gotCRC != wantCRC {
		f.Close()
		return nil, fmt.Errorf("segment: %s: corrupt partition dictionary (crc mismatch)", path)
	}
	dict, err := decodeDict(dictBytes, int(header.TokenCount))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &PartitionReader{f: f, path: path, header: header, dict: dict, recBase: int64(HeaderSize)}, nil
}

func decodeDict(b []byte, count int) ([]DictEntry, error) {
	dict := make([]DictEntry, 0, count)
	for len(b) > 0 {
		token, n := protowire.ConsumeString(b)
		if n < 0 {
			return nil, fmt.Errorf("segment: consuming dict token: %w", protowire.ParseError(n))
		}
		b = b[n:]
		offset, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("segment: consuming dict offset: %w", protowire.ParseError(n))
		}
		b = b[n:]
		length, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("segment: consuming dict length: %w", protowire.ParseError(n))
		}
		b = b[n:]
		docFreq, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("segment: consuming dict doc freq: %w", protowire.ParseError(n))
		}
		b = b[n:]
		dict = append(dict, DictEntry{Token: token, RecOffset: int64(offset), RecLen: int64(length), DocFreq: uint32(docFreq)})
	}
	return dict, nil
}

// Lookup binary-searches the dictionary for token and, on a hit, decodes
// and returns its token entry.
func (r *PartitionReader) Lookup(token string) (posting.TokenEntry, bool, error) {
	i := sort.Search(len(r.dict), func(i int) bool { return r.dict[i].Token >= token })
	if i >= len(r.dict) || r.dict[i].Token != token {
		return posting.TokenEntry{}, false, nil
	}
	d := r.dict[i]
	payload := make([]byte, d.RecLen)
	if _, err := r.f.ReadAt(payload, r.recBase+d.RecOffset); err != nil {
		return posting.TokenEntry{}, false, fmt.Errorf("segment: reading record: %w", err)
	}
	entry, err := DecodeTokenEntry(payload)
	if err != nil {
		return posting.TokenEntry{}, false, err
	}
	return entry, true, nil
}

// Tokens returns the partition's dictionary tokens in ascending order.
func (r *PartitionReader) Tokens() []string {
	out := make([]string, len(r.dict))
	for i, d := range r.dict {
		out[i] = d.Token
	}
	return out
}

// DocFreq returns the document frequency of token without decoding its
// full posting list, or 0 if the token isn't present.
func (r *PartitionReader) DocFreq(token string) uint32 {
	i := sort.Search(len(r.dict), func(i int) bool { return r.dict[i].Token >= token })
	if i >= len(r.dict) || r.dict[i].Token != token {
		return 0
	}
	return r.dict[i].DocFreq
}

// Path returns the underlying file path.
func (r *PartitionReader) Path() string { return r.path }

// Close releases the underlying file handle.
func (r *PartitionReader) Close() error {
	return r.f.Close()
}
