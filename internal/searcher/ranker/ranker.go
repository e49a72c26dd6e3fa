// Package ranker defines the scored-hit type shared by the query
// executor and the cross-shard merger, and the deterministic final
// ordering applied to every result list. The relevance scores themselves
// come from the index core's cosine rerank; this package only orders,
// rounds, and truncates.
package ranker

import (
	"math"
	"sort"
)

// Hit is one ranked search result.
type Hit struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
	Shard int     `json:"shard"`
}

// Round clamps a cosine score to four decimal places so serialized
// results compare stably across runs.
func Round(score float64) float64 {
	return math.Round(score*10000) / 10000
}

// Order sorts hits by descending score, breaking ties by URL then shard
// for a total, deterministic order, and truncates to limit (limit <= 0
// means no truncation).
func Order(hits []Hit, limit int) []Hit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].URL != hits[j].URL {
			return hits[i].URL < hits[j].URL
		}
		return hits[i].Shard < hits[j].Shard
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
