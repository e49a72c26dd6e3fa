package search

// Spellcheck implements edit-distance candidate suggestion for query
// terms absent from the index, used as an opt-in fallback on zero-hit
// queries. Candidates are generated at edit distance 1 (then 2) and
// checked against the df table's vocabulary; among in-vocabulary
// variants at the same distance, the one with the highest document
// frequency wins.

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// editsOne returns every string reachable from word by a single insertion,
// deletion, substitution, or transposition.
func editsOne(word string) []string {
	var out []string
	for i := 0; i <= len(word); i++ {
		// deletion
		if i < len(word) {
			out = append(out, word[:i]+word[i+1:])
		}
		// insertion
		for _, c := range alphabet {
			out = append(out, word[:i]+string(c)+word[i:])
		}
		if i < len(word) {
			// substitution
			for _, c := range alphabet {
				if byte(c) == word[i] {
					continue
				}
				out = append(out, word[:i]+string(c)+word[i+1:])
			}
			// transposition
			if i+1 < len(word) {
				out = append(out, word[:i]+string(word[i+1])+string(word[i])+word[i+2:])
			}
		}
	}
	return out
}

// Suggest returns the best edit-distance-1 (falling back to edit-
// distance-2) variant of term present in the index's vocabulary, or
// false if none is found. "Best" is highest document frequency, ties
// broken lexicographically for determinism.
func (s *Searcher) Suggest(term string) (string, bool) {
	if len(term) == 0 {
		return "", false
	}
	tried := map[string]struct{}{term: {}}
	if best, ok := s.bestVariant(editsOne(term), tried); ok {
		return best, true
	}
	firstRound := make([]string, 0, len(tried))
	for v := range tried {
		firstRound = append(firstRound, v)
	}
	var best string
	var bestDF uint32
	for _, first := range firstRound {
		c, ok := s.bestVariant(editsOne(first), tried)
		if !ok {
			continue
		}
		if df := s.dft.Lookup(c); df > bestDF || (df == bestDF && c < best) {
			best, bestDF = c, df
		}
	}
	return best, bestDF > 0
}

// bestVariant picks the highest-df in-vocabulary candidate from one
// round of edits, recording every candidate in tried.
func (s *Searcher) bestVariant(candidates []string, tried map[string]struct{}) (string, bool) {
	var best string
	var bestDF uint32
	for _, c := range candidates {
		if _, seen := tried[c]; seen {
			continue
		}
		tried[c] = struct{}{}
		if df := s.dft.Lookup(c); df > bestDF || (df == bestDF && df > 0 && c < best) {
			best, bestDF = c, df
		}
	}
	return best, bestDF > 0
}
