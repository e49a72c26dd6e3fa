package scoring

import (
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
)

func TestTermWeightFormula(t *testing.T) {
	w := DefaultTagWeights()
	p := posting.Posting{
		DocID:        1,
		Frequency:    8,
		TagFrequency: map[posting.Tag]uint32{posting.TagOther: 8},
	}
	idf := 1.5
	want := (1 + math.Log(8)) * idf * 1.0
	if got := w.TermWeight(p, idf); math.Abs(got-want) > 1e-12 {
		t.Errorf("TermWeight = %v, want %v", got, want)
	}
}

func TestTermWeightZeroFrequency(t *testing.T) {
	w := DefaultTagWeights()
	if got := w.TermWeight(posting.Posting{Frequency: 0}, 2.0); got != 0 {
		t.Errorf("TermWeight of empty posting = %v, want 0", got)
	}
}

func TestTagBoostSumsPresentTags(t *testing.T) {
	w := DefaultTagWeights()
	p := posting.Posting{
		Frequency: 3,
		TagFrequency: map[posting.Tag]uint32{
			posting.TagTitle: 1,
			posting.TagOther: 2,
		},
	}
	want := 3.0 + 1.0
	if got := w.TagBoost(p); math.Abs(got-want) > 1e-12 {
		t.Errorf("TagBoost = %v, want %v", got, want)
	}
}

func TestTagBoostDefaultsToBodyWeight(t *testing.T) {
	w := DefaultTagWeights()
	p := posting.Posting{Frequency: 1, TagFrequency: map[posting.Tag]uint32{}}
	if got := w.TagBoost(p); got != 1.0 {
		t.Errorf("TagBoost with no tags = %v, want 1.0", got)
	}
}

func TestTitleOutweighsBody(t *testing.T) {
	w := DefaultTagWeights()
	title := posting.Posting{Frequency: 1, TagFrequency: map[posting.Tag]uint32{posting.TagTitle: 1}}
	body := posting.Posting{Frequency: 1, TagFrequency: map[posting.Tag]uint32{posting.TagOther: 1}}
	if w.TermWeight(title, 1.0) <= w.TermWeight(body, 1.0) {
		t.Errorf("title match should outweigh body match")
	}
}
