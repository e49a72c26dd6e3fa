// Package textpipeline turns raw HTML documents into normalized, tagged
// tokens: HTML parsing and structural-tag attribution, tokenization,
// stop-word removal, and suffix-based normalization.
package textpipeline

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
)

// maxTokenLength caps individual token length as a defensive measure
// against pathological input (e.g. base64 blobs mistaken for text).
const maxTokenLength = 64

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// TaggedToken is a single normalized token together with the structural
// tag its source text run was found under.
type TaggedToken struct {
	Term string
	Tag  posting.Tag
}

// Tokenize splits a plain-text run into normalized tokens with the given
// tag attribution, applying lower-casing, stop-word removal, length
// capping, and suffix normalization.
func Tokenize(text string, tag posting.Tag) []TaggedToken {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]TaggedToken, 0, len(words)/2)
	for _, word := range words {
		if len(word) < 2 || len(word) > maxTokenLength {
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		normalized := normalize(word)
		if normalized == "" {
			continue
		}
		tokens = append(tokens, TaggedToken{Term: normalized, Tag: tag})
	}
	return tokens
}

// normalize applies a suffix-stripping normalizer standing in for a full
// lemmatizer: it collapses common inflectional endings to a shared root so
// that "indexes"/"indexing"-style variants collide on the same token.
// Irregular forms ("ran") are left as they are, and doubled consonants are
// not undone ("running" becomes "runn", "runs" becomes "run").
func normalize(word string) string {
	suffixes := []struct {
		suffix      string
		replacement string
		minLen      int
	}{
		{"ational", "ate", 2},
		{"tional", "tion", 2},
		{"encies", "ence", 2},
		{"ances", "ance", 2},
		{"ments", "ment", 2},
		{"izing", "ize", 2},
		{"ating", "ate", 2},
		{"iness", "y", 2},
		{"ously", "ous", 2},
		{"ively", "ive", 2},
		{"eness", "ene", 2},
		{"tion", "t", 3},
		{"sion", "s", 3},
		{"ying", "y", 2},
		{"ling", "l", 3},
		{"ies", "y", 2},
		{"ing", "", 3},
		{"ers", "er", 2},
		{"est", "", 3},
		{"ful", "", 3},
		{"ous", "", 3},
		{"ess", "", 3},
		{"ble", "", 3},
		{"ed", "", 3},
		{"er", "", 3},
		{"ly", "", 3},
		{"es", "", 3},
		{"s", "", 3},
	}
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
