package merge

import (
	"fmt"
	"sort"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/builder"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/textpipeline"
)

func tokens(text string) []textpipeline.TaggedToken {
	return textpipeline.Tokenize(text, posting.TagOther)
}

// buildSpills runs docs through a Builder with the given threshold and
// returns the resulting spill paths.
func buildSpills(t *testing.T, threshold int64, docs []string) []string {
	t.Helper()
	b := builder.New(t.TempDir(), threshold, nil)
	for i, text := range docs {
		if err := b.AddDocument(uint32(i), tokens(text)); err != nil {
			t.Fatalf("AddDocument(%d): %v", i, err)
		}
	}
	spills, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return spills
}

func drain(t *testing.T, paths []string) []posting.TokenEntry {
	t.Helper()
	m, err := Open(paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()
	var out []posting.TokenEntry
	for {
		entry, ok, err := m.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, entry)
	}
}

func testCorpus(n int) []string {
	docs := make([]string, n)
	for i := range docs {
		docs[i] = fmt.Sprintf("shared corpus token unique%d cluster%d text", i, i%5)
	}
	return docs
}

func TestMergedStreamSortedAndDistinct(t *testing.T) {
	entries := drain(t, buildSpills(t, 1<<10, testCorpus(60)))
	if len(entries) == 0 {
		t.Fatalf("merged stream is empty")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Token >= entries[i].Token {
			t.Errorf("merged tokens not strictly ascending: %q then %q", entries[i-1].Token, entries[i].Token)
		}
	}
}

func TestMergedPostingsAscendingNoDuplicates(t *testing.T) {
	entries := drain(t, buildSpills(t, 1<<10, testCorpus(60)))
	for _, e := range entries {
		if e.DocFreq() != len(e.Postings) {
			t.Errorf("df invariant broken for %q", e.Token)
		}
		for i := 1; i < len(e.Postings); i++ {
			if e.Postings[i-1].DocID >= e.Postings[i].DocID {
				t.Errorf("postings for %q not strictly ascending: %d then %d",
					e.Token, e.Postings[i-1].DocID, e.Postings[i].DocID)
			}
		}
	}
}

func TestMergeEquivalentToSingleFlush(t *testing.T) {
	docs := testCorpus(80)
	multi := drain(t, buildSpills(t, 1<<10, docs))
	single := drain(t, buildSpills(t, 1<<30, docs))

	if len(multi) != len(single) {
		t.Fatalf("token counts differ: %d (multi-spill) vs %d (single-spill)", len(multi), len(single))
	}
	for i := range multi {
		if multi[i].Token != single[i].Token {
			t.Fatalf("token order differs at %d: %q vs %q", i, multi[i].Token, single[i].Token)
		}
		if multi[i].DocFreq() != single[i].DocFreq() {
			t.Errorf("df differs for %q: %d vs %d", multi[i].Token, multi[i].DocFreq(), single[i].DocFreq())
		}
		for j := range multi[i].Postings {
			mp, sp := multi[i].Postings[j], single[i].Postings[j]
			if mp.DocID != sp.DocID || mp.Frequency != sp.Frequency {
				t.Errorf("posting differs for %q at %d: %+v vs %+v", multi[i].Token, j, mp, sp)
			}
		}
	}
}

func TestMergeCombinesAcrossFiles(t *testing.T) {
	// Every document shares the token "shared"; with a tight threshold it
	// lands in several spill files and must be unioned back into one
	// entry covering every doc id.
	docs := testCorpus(40)
	spills := buildSpills(t, 1<<10, docs)
	if len(spills) < 2 {
		t.Fatalf("test needs multiple spills, got %d", len(spills))
	}
	entries := drain(t, spills)
	shared := tokens("shared")[0].Term
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Token >= shared })
	if i == len(entries) || entries[i].Token != shared {
		t.Fatalf("token %q missing from merged stream", shared)
	}
	if entries[i].DocFreq() != len(docs) {
		t.Errorf("df(%q) = %d, want %d", shared, entries[i].DocFreq(), len(docs))
	}
}

func TestMergeNoInputs(t *testing.T) {
	m, err := Open(nil)
	if err != nil {
		t.Fatalf("Open with no inputs: %v", err)
	}
	defer m.Close()
	if _, ok, err := m.Next(); ok || err != nil {
		t.Errorf("empty merge should be immediately exhausted, got ok=%v err=%v", ok, err)
	}
}
