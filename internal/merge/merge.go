// Package merge implements the K-way Merger: it merges N token-sorted
// spill files into a single token-sorted stream, combining entries for
// equal tokens across files. The merge is heap-driven, the same shape as
// the platform's shard-result merger applied here to sorted token streams
// instead of ranked score streams.
package merge

import (
	"container/heap"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/segment"
)

// heapItem holds one spill reader's current front entry.
type heapItem struct {
	entry  posting.TokenEntry
	reader *segment.SpillReader
	idx    int
}

type entryHeap []*heapItem

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].entry.Token < h[j].entry.Token }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(*heapItem)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Merger drains a set of spill files in token order, yielding one combined
// TokenEntry per distinct token across all inputs.
type Merger struct {
	readers []*segment.SpillReader
	h       entryHeap
}

// Open opens every spill file in paths and primes the merge heap.
func Open(paths []string) (*Merger, error) {
	m := &Merger{}
	for i, p := range paths {
		r, err := segment.OpenSpill(p)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("merge: opening %s: %w", p, err)
		}
		m.readers = append(m.readers, r)
		if err := m.pull(r, i); err != nil {
			m.Close()
			return nil, err
		}
	}
	heap.Init(&m.h)
	return m, nil
}

// pull reads the next entry from r and pushes it onto the heap, unless r
// is exhausted. A decode failure is returned, not swallowed: a corrupt
// spill file aborts the whole merge.
func (m *Merger) pull(r *segment.SpillReader, idx int) error {
	entry, err := r.Next()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("merge: reading spill %d: %w", idx, err)
	}
	heap.Push(&m.h, &heapItem{entry: entry, reader: r, idx: idx})
	return nil
}

// Next returns the next combined TokenEntry in ascending token order,
// unioning posting lists across every spill file that contains the same
// token. It returns (TokenEntry{}, false, nil) once all inputs are
// exhausted.
func (m *Merger) Next() (posting.TokenEntry, bool, error) {
	if m.h.Len() == 0 {
		return posting.TokenEntry{}, false, nil
	}
	top := heap.Pop(&m.h).(*heapItem)
	combined := top.entry
	if err := m.pull(top.reader, top.idx); err != nil {
		return posting.TokenEntry{}, false, err
	}
	for m.h.Len() > 0 && m.h[0].entry.Token == combined.Token {
		next := heap.Pop(&m.h).(*heapItem)
		combined = posting.Merge(combined, next.entry)
		if err := m.pull(next.reader, next.idx); err != nil {
			return posting.TokenEntry{}, false, err
		}
	}
	return combined, true, nil
}

// Close releases all underlying spill readers.
func (m *Merger) Close() error {
	var firstErr error
	for _, r := range m.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
