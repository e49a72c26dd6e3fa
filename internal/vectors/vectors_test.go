package vectors

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	v := Normalize(map[string]float64{"quick": 3, "fox": 4})
	if n := Norm(v); math.Abs(n-1.0) > 1e-9 {
		t.Errorf("normalized vector has norm %v, want 1", n)
	}
	if math.Abs(v["quick"]-0.6) > 1e-9 || math.Abs(v["fox"]-0.8) > 1e-9 {
		t.Errorf("normalized components = %v, want quick=0.6 fox=0.8", v)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := Normalize(map[string]float64{})
	if len(v) != 0 {
		t.Errorf("zero vector should normalize to empty, got %v", v)
	}
}

func TestCosineSimilarity(t *testing.T) {
	doc := Normalize(map[string]float64{"quick": 1, "fox": 1})
	tests := []struct {
		name  string
		query map[string]float64
		want  float64
	}{
		{"identical_direction", map[string]float64{"quick": 2, "fox": 2}, 1.0},
		{"orthogonal", map[string]float64{"lazy": 1}, 0.0},
		{"partial_overlap", map[string]float64{"quick": 1}, 1 / math.Sqrt2},
		{"empty_query", map[string]float64{}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.query, doc); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineBounds(t *testing.T) {
	doc := Normalize(map[string]float64{"a2": 1, "b2": 3, "c2": 2})
	query := map[string]float64{"a2": 5, "c2": 1}
	got := CosineSimilarity(query, doc)
	if got < 0 || got > 1 {
		t.Errorf("cosine score %v outside [0, 1]", got)
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := map[uint32]Vector{
		0: Normalize(map[string]float64{"quick": 1, "fox": 2}),
		1: Normalize(map[string]float64{"lazy": 3}),
		4: Normalize(map[string]float64{"brown": 1, "dog": 1, "fox": 1}),
	}
	for _, id := range []uint32{0, 1, 4} {
		if err := w.Write(id, want[id]); err != nil {
			t.Fatalf("Write(%d): %v", id, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	for id, wantVec := range want {
		got, ok, err := r.Get(id)
		if err != nil || !ok {
			t.Fatalf("Get(%d) = %v, %v", id, ok, err)
		}
		if len(got) != len(wantVec) {
			t.Fatalf("Get(%d) returned %d terms, want %d", id, len(got), len(wantVec))
		}
		for term, wv := range wantVec {
			if math.Abs(got[term]-wv) > 1e-12 {
				t.Errorf("doc %d term %q = %v, want %v", id, term, got[term], wv)
			}
		}
	}
	if _, ok, err := r.Get(99); err != nil || ok {
		t.Errorf("Get of absent doc id should be a clean miss, got ok=%v err=%v", ok, err)
	}
}
