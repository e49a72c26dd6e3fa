package search

import "strings"

// snippetWindow is the number of characters of context kept on each side
// of a matched term.
const snippetWindow = 80

// Snippet extracts a short window of content around the first occurrence
// of any term in terms, falling back to the document's leading text if
// none match. It is a pure post-processing helper for a caller that holds
// a hit's stored content; it plays no part in ranking or pruning.
func Snippet(content string, terms []string) string {
	lower := strings.ToLower(content)
	best := -1
	for _, term := range terms {
		if term == "" {
			continue
		}
		if idx := strings.Index(lower, strings.ToLower(term)); idx >= 0 && (best == -1 || idx < best) {
			best = idx
		}
	}
	if best == -1 {
		if len(content) <= 2*snippetWindow {
			return strings.TrimSpace(content)
		}
		return strings.TrimSpace(content[:2*snippetWindow]) + "…"
	}
	start := best - snippetWindow
	if start < 0 {
		start = 0
	}
	end := best + snippetWindow
	if end > len(content) {
		end = len(content)
	}
	snippet := strings.TrimSpace(content[start:end])
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(content) {
		snippet = snippet + "…"
	}
	return snippet
}
