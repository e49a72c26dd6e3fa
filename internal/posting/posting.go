// Package posting defines the inverted-index data model: postings, posting
// lists, and token entries shared by the builder, merger, splitter, and
// searcher.
package posting

// Tag identifies the structural HTML context a token occurrence was found
// in. Weighted tags influence scoring (via tag weights); duplicate
// detection works on term frequencies alone and does not use them.
type Tag int

const (
	TagOther Tag = iota
	TagTitle
	TagH1
	TagH2
	TagH3
	TagH4
	TagH5
	TagH6
	TagBold
	TagStrong
)

// Names used for config lookups and diagnostics; index matches the Tag
// constants above.
var TagNames = [...]string{
	TagOther:  "other",
	TagTitle:  "title",
	TagH1:     "h1",
	TagH2:     "h2",
	TagH3:     "h3",
	TagH4:     "h4",
	TagH5:     "h5",
	TagH6:     "h6",
	TagBold:   "b",
	TagStrong: "strong",
}

func (t Tag) String() string {
	if int(t) < len(TagNames) {
		return TagNames[t]
	}
	return "unknown"
}

// Posting records one document's occurrences of a single token: the total
// frequency and a breakdown by structural tag.
type Posting struct {
	DocID         uint32
	Frequency     uint32
	TagFrequency  map[Tag]uint32
}

// PostingList is kept in strictly ascending DocID order with no duplicate
// doc ids, as required by the merge and search algorithms.
type PostingList []Posting

// TokenEntry is a token's full occurrence record: its document frequency
// (len(Postings)) plus the ascending posting list itself.
type TokenEntry struct {
	Token    string
	Postings PostingList
}

// DocFreq returns the number of distinct documents containing this token.
func (e TokenEntry) DocFreq() int {
	return len(e.Postings)
}

// Merge combines two TokenEntry values for the same token (as produced by
// two different spill files during the K-way merge): posting lists are
// unioned on DocID, with per-doc frequencies and tag frequencies summed for
// any DocID appearing in both. Both inputs must already be sorted by DocID;
// the result is sorted by DocID.
func Merge(a, b TokenEntry) TokenEntry {
	out := TokenEntry{Token: a.Token, Postings: make(PostingList, 0, len(a.Postings)+len(b.Postings))}
	i, j := 0, 0
	for i < len(a.Postings) && j < len(b.Postings) {
		pa, pb := a.Postings[i], b.Postings[j]
		switch {
		case pa.DocID < pb.DocID:
			out.Postings = append(out.Postings, pa)
			i++
		case pa.DocID > pb.DocID:
			out.Postings = append(out.Postings, pb)
			j++
		default:
			out.Postings = append(out.Postings, combine(pa, pb))
			i++
			j++
		}
	}
	out.Postings = append(out.Postings, a.Postings[i:]...)
	out.Postings = append(out.Postings, b.Postings[j:]...)
	return out
}

func combine(a, b Posting) Posting {
	merged := Posting{
		DocID:        a.DocID,
		Frequency:    a.Frequency + b.Frequency,
		TagFrequency: make(map[Tag]uint32, len(a.TagFrequency)+len(b.TagFrequency)),
	}
	for tag, f := range a.TagFrequency {
		merged.TagFrequency[tag] += f
	}
	for tag, f := range b.TagFrequency {
		merged.TagFrequency[tag] += f
	}
	return merged
}
