package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
)

// SpillMagic identifies an unsorted-run spill file emitted by the
// Partition Builder when its memory budget is exceeded.
const SpillMagic uint32 = 0x53504c4c // "SPLL"

// SpillWriter streams token entries to a single spill file in the order
// they're given. The Partition Builder sorts its in-memory map by token
// before calling Write for each entry, so the resulting file is already
// token-sorted.
type SpillWriter struct {
	f   *os.File
	buf *bufio.Writer
	crc uint32
	tmp string
	fin string
}

// CreateSpill opens a new spill file under dir named spill-<seq>.spl,
// writing to a .tmp path first for atomic rename-on-Close.
func CreateSpill(dir string, seq int) (*SpillWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("segment: creating spill directory: %w", err)
	}
	fin := filepath.Join(dir, fmt.Sprintf("spill-%06d.spl", seq))
	tmp := fin + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("segment: creating spill file: %w", err)
	}
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], SpillMagic)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: writing spill header: %w", err)
	}
	return &SpillWriter{f: f, buf: bufio.NewWriter(f), tmp: tmp, fin: fin}, nil
}

// Write appends one token entry record: a varint length prefix followed by
// the protowire-encoded entry.
func (w *SpillWriter) Write(e posting.TokenEntry) error {
	payload := EncodeTokenEntry(e)
	var lenPrefix []byte
	lenPrefix = protowire.AppendVarint(lenPrefix, uint64(len(payload)))
	w.crc = crc32.Update(w.crc, crc32.IEEETable, lenPrefix)
	w.crc = crc32.Update(w.crc, crc32.IEEETable, payload)
	if _, err := w.buf.Write(lenPrefix); err != nil {
		return fmt.Errorf("segment: writing spill record length: %w", err)
	}
	if _, err := w.buf.Write(payload); err != nil {
		return fmt.Errorf("segment: writing spill record: %w", err)
	}
	return nil
}

// Close flushes, appends the CRC32 footer, syncs, and atomically renames
// the spill file into place. It returns the final path.
func (w *SpillWriter) Close() (string, error) {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return "", fmt.Errorf("segment: flushing spill file: %w", err)
	}
	footer := make([]byte, 4)
	binary.LittleEndian.PutUint32(footer, w.crc)
	if _, err := w.f.Write(footer); err != nil {
		w.f.Close()
		return "", fmt.Errorf("segment: writing spill footer: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return "", fmt.Errorf("segment: syncing spill file: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return "", fmt.Errorf("segment: closing spill file: %w", err)
	}
	if err := os.Rename(w.tmp, w.fin); err != nil {
		return "", fmt.Errorf("segment: renaming spill file: %w", err)
	}
	return w.fin, nil
}

// SpillReader streams token entries back out of a spill file in file
// order, for the K-way Merger to consume.
type SpillReader struct {
	f   *os.File
	r   *bufio.Reader
	err error
}

// OpenSpill opens an existing spill file, validates its header, and scopes
// reading to the record region between the header and the trailing CRC32
// footer.
func OpenSpill(path string) (*SpillReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("segment: opening spill file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: stat spill file: %w", err)
	}
	header := make([]byte, 8)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: reading spill header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != SpillMagic {
		f.Close()
		return nil, fmt.Errorf("segment: %s: bad spill magic %x", path, magic)
	}
	recordBytes := info.Size() - 8 - 4
	if recordBytes < 0 {
		f.Close()
		return nil, fmt.Errorf("segment: %s: truncated spill file", path)
	}
	limited := &io.LimitedReader{R: f, N: recordBytes}
	return &SpillReader{f: f, r: bufio.NewReader(limited)}, nil
}

// Next returns the next token entry, or io.EOF when the footer is
// reached (the reader is limited to the record region, so the trailing
// 4-byte CRC32 is never read as a record).
func (r *SpillReader) Next() (posting.TokenEntry, error) {
	if r.err != nil {
		return posting.TokenEntry{}, r.err
	}
	length, err := readVarint(r.r)
	if err == io.EOF {
		r.err = io.EOF
		return posting.TokenEntry{}, io.EOF
	}
	if err != nil {
		return posting.TokenEntry{}, fmt.Errorf("segment: reading spill record length: %w", err)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return posting.TokenEntry{}, fmt.Errorf("segment: reading spill record: %w", err)
	}
	entry, err := DecodeTokenEntry(payload)
	if err != nil {
		return posting.TokenEntry{}, err
	}
	return entry, nil
}

// Close releases the underlying file handle.
func (r *SpillReader) Close() error {
	return r.f.Close()
}

// readVarint reads a single protobuf-style varint from r, byte by byte.
// It returns io.EOF only if zero bytes were read before EOF (i.e. the
// footer has been reached cleanly).
func readVarint(r *bufio.Reader) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < 10; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i == 0 && err == io.EOF {
				return 0, io.EOF
			}
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, fmt.Errorf("segment: varint too long")
}
