package textpipeline

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
)

var tagByAtom = map[atom.Atom]posting.Tag{
	atom.Title:  posting.TagTitle,
	atom.H1:     posting.TagH1,
	atom.H2:     posting.TagH2,
	atom.H3:     posting.TagH3,
	atom.H4:     posting.TagH4,
	atom.H5:     posting.TagH5,
	atom.H6:     posting.TagH6,
	atom.B:      posting.TagBold,
	atom.Strong: posting.TagStrong,
}

// skippedElements are structural elements whose text content carries no
// searchable meaning.
var skippedElements = map[atom.Atom]struct{}{
	atom.Script: {}, atom.Style: {}, atom.Noscript: {},
}

// TagText is one run of text extracted from an HTML document, together
// with the nearest weighted ancestor tag it fell under (posting.TagOther
// if none of the weighted tags is an ancestor).
type TagText struct {
	Text string
	Tag  posting.Tag
}

// ExtractTagged parses an HTML document and returns every text run paired
// with its nearest structurally-weighted ancestor, mirroring the reference
// tokenizer's BeautifulSoup-based tag walk.
func ExtractTagged(htmlContent string) ([]TagText, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}
	var runs []TagText
	var walk func(n *html.Node, current posting.Tag)
	walk = func(n *html.Node, current posting.Tag) {
		if n.Type == html.ElementNode {
			if _, skip := skippedElements[n.DataAtom]; skip {
				return
			}
			if tag, ok := tagByAtom[n.DataAtom]; ok {
				current = tag
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				runs = append(runs, TagText{Text: text, Tag: current})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, current)
		}
	}
	walk(doc, posting.TagOther)
	return runs, nil
}

// TokenizeHTML extracts and tokenizes an entire HTML document, returning
// every tagged token found across all text runs.
func TokenizeHTML(htmlContent string) ([]TaggedToken, error) {
	runs, err := ExtractTagged(htmlContent)
	if err != nil {
		return nil, err
	}
	var tokens []TaggedToken
	for _, run := range runs {
		tokens = append(tokens, Tokenize(run.Text, run.Tag)...)
	}
	return tokens, nil
}
