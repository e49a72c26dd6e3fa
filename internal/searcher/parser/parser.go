// Package parser turns a raw query string into a QueryPlan: the ranked
// free-text terms plus an optional NOT exclusion list. Terms are run
// through the same text pipeline the index builder uses, so query and
// index always agree on the vocabulary.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/textpipeline"
)

// QueryPlan is the parsed form of a search query.
type QueryPlan struct {
	Terms        []string
	ExcludeTerms []string
	RawQuery     string
}

// Parse splits query into ranked terms and NOT-prefixed exclusions. The
// NOT operator applies to the word that follows it; everything else is a
// ranked term. Words that normalize away (stop words, punctuation-only)
// are dropped.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		Terms:        make([]string, 0),
		ExcludeTerms: make([]string, 0),
		RawQuery:     query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	words := strings.Fields(query)
	excludeNext := false
	for _, word := range words {
		if strings.ToUpper(word) == "NOT" {
			excludeNext = true
			continue
		}
		tokens := textpipeline.Tokenize(word, posting.TagOther)
		if len(tokens) == 0 {
			excludeNext = false
			continue
		}
		for _, t := range tokens {
			if excludeNext {
				plan.ExcludeTerms = append(plan.ExcludeTerms, t.Term)
			} else {
				plan.Terms = append(plan.Terms, t.Term)
			}
		}
		excludeNext = false
	}
	return plan
}
