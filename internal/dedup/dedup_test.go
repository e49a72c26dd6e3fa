package dedup

import "testing"

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		a, b uint64
		want int
	}{
		{0, 0, 0},
		{0xFF, 0, 8},
		{0b1010, 0b0101, 4},
		{^uint64(0), 0, 64},
	}
	for _, tt := range tests {
		if got := HammingDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("HammingDistance(%x, %x) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimHashDeterministic(t *testing.T) {
	freq := map[string]uint32{"quick": 3, "brown": 1, "fox": 2}
	if SimHash(freq) != SimHash(freq) {
		t.Errorf("SimHash not deterministic for identical input")
	}
}

func TestSimHashIgnoresContentOrder(t *testing.T) {
	a := map[string]uint32{"quick": 1, "brown": 1}
	b := map[string]uint32{"brown": 1, "quick": 1}
	if SimHash(a) != SimHash(b) {
		t.Errorf("SimHash should depend only on the frequency table")
	}
}

func TestDetectorExactDuplicate(t *testing.T) {
	d := NewDetector(HammingMax)
	freq := map[string]uint32{"quick": 1, "fox": 1}
	if _, dup := d.Check(0, "identical body", freq); dup {
		t.Fatalf("first document flagged as duplicate")
	}
	dupOf, dup := d.Check(1, "identical body", map[string]uint32{"unrelated": 9})
	if !dup || dupOf != 0 {
		t.Errorf("byte-identical content not caught: dup=%v of=%d", dup, dupOf)
	}
}

func TestDetectorNearDuplicate(t *testing.T) {
	d := NewDetector(HammingMax)
	freq := map[string]uint32{"quick": 5, "brown": 5, "fox": 5, "jump": 5}
	if _, dup := d.Check(0, "original text", freq); dup {
		t.Fatalf("first document flagged as duplicate")
	}
	// Different bytes, identical term distribution: SimHash distance 0.
	if dupOf, dup := d.Check(1, "reordered  text", freq); !dup || dupOf != 0 {
		t.Errorf("same-distribution document not caught as near-duplicate")
	}
}

func TestDetectorAcceptsDistinctDocuments(t *testing.T) {
	d := NewDetector(HammingMax)
	first := map[string]uint32{"quick": 3, "brown": 2, "fox": 1}
	second := map[string]uint32{"database": 4, "transaction": 2, "isolation": 3, "snapshot": 1}
	if _, dup := d.Check(0, "doc one", first); dup {
		t.Fatalf("first document rejected")
	}
	if _, dup := d.Check(1, "doc two", second); dup {
		t.Errorf("unrelated document rejected as near-duplicate")
	}
	// Both fingerprints are now recorded.
	if _, dup := d.Check(2, "doc one", first); !dup {
		t.Errorf("repeat of first document not caught")
	}
}

func TestIsNearDuplicateThreshold(t *testing.T) {
	base := uint64(0b1111)
	within := base ^ 0b0111 // distance 3
	beyond := base ^ 0b10111 // distance 4
	if !IsNearDuplicate(base, within, 3) {
		t.Errorf("distance 3 should be within threshold 3")
	}
	if IsNearDuplicate(base, beyond, 3) {
		t.Errorf("distance 4 should exceed threshold 3")
	}
}
