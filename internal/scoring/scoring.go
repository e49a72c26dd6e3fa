// Package scoring holds the term-weight formula shared by the Index
// Splitter (building document vectors) and the Searcher (TF-IDF
// upper-bound pruning), so that pruning stays admissible against the
// cosine rerank that follows it. The Searcher's query vector weights each
// distinct query term by its idf alone, which is this formula for a
// single untagged occurrence.
package scoring

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
)

// TagWeights maps structural tags to their scoring multipliers.
type TagWeights map[posting.Tag]float64

// DefaultTagWeights returns the chosen weighting: headings and titles
// outweigh body text, bold/strong text gets a small boost, untagged
// ("other") text is the baseline.
func DefaultTagWeights() TagWeights {
	return TagWeights{
		posting.TagTitle:  3.0,
		posting.TagH1:     3.0,
		posting.TagH2:     2.0,
		posting.TagH3:     2.0,
		posting.TagH4:     1.5,
		posting.TagH5:     1.5,
		posting.TagH6:     1.5,
		posting.TagBold:   1.3,
		posting.TagStrong: 1.3,
		posting.TagOther:  1.0,
	}
}

// TagBoost sums the per-tag multiplier for every tag present in a
// posting's tag-frequency breakdown, regardless of each tag's individual
// count.
func (w TagWeights) TagBoost(p posting.Posting) float64 {
	var boost float64
	for tag := range p.TagFrequency {
		mult, ok := w[tag]
		if !ok {
			mult = 1.0
		}
		boost += mult
	}
	if boost == 0 {
		boost = 1.0
	}
	return boost
}

// TermWeight computes (1 + log(frequency)) * idf(t) * tag_boost — the
// weight contributed by one posting to both the query-side TF-IDF
// upper-bound score and the document-vector entry for the same token.
func (w TagWeights) TermWeight(p posting.Posting, idf float64) float64 {
	if p.Frequency == 0 {
		return 0
	}
	tf := 1 + math.Log(float64(p.Frequency))
	return tf * idf * w.TagBoost(p)
}
