// Package merger combines per-shard ranked result lists into one global
// top-k list using a bounded min-heap, so merging stays O(n log k) no
// matter how many shards contribute.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/ranker"
)

// Merge folds every shard's ranked hits into a single descending top-k
// list with the same deterministic tie-breaking ranker.Order applies.
func Merge(shardResults [][]ranker.Hit, limit int) []ranker.Hit {
	if limit <= 0 {
		limit = 10
	}
	h := &hitHeap{}
	heap.Init(h)
	for _, results := range shardResults {
		for _, hit := range results {
			heap.Push(h, hit)
			if h.Len() > limit {
				heap.Pop(h)
			}
		}
	}
	result := make([]ranker.Hit, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ranker.Hit)
	}
	return result
}

// hitHeap is a min-heap on (score, then inverted URL/shard order) so the
// weakest surviving hit is always on top.
type hitHeap []ranker.Hit

func (h hitHeap) Len() int { return len(h) }

func (h hitHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	if h[i].URL != h[j].URL {
		return h[i].URL > h[j].URL
	}
	return h[i].Shard > h[j].Shard
}

func (h hitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x interface{}) {
	*h = append(*h, x.(ranker.Hit))
}

func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
