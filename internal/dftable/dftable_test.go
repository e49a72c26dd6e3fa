package dftable

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestIDFFormula(t *testing.T) {
	tbl := New(1000)
	tests := []struct {
		df   uint32
		want float64
	}{
		{1, math.Log(1000)},
		{10, math.Log(100)},
		{1000, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := tbl.IDF(tt.df); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("IDF(%d) = %v, want %v", tt.df, got, tt.want)
		}
	}
}

func TestRareTermsWeighHigher(t *testing.T) {
	tbl := New(500)
	if tbl.IDF(2) <= tbl.IDF(100) {
		t.Errorf("rare term should have higher IDF than common term")
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tbl := New(42)
	tbl.Add("quick", 10)
	tbl.Add("brown", 3)
	tbl.Add("fox", 42)
	if err := tbl.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TotalDocs != 42 {
		t.Errorf("TotalDocs = %d, want 42", loaded.TotalDocs)
	}
	if !reflect.DeepEqual(loaded.DF, tbl.DF) {
		t.Errorf("DF map mismatch: %v vs %v", loaded.DF, tbl.DF)
	}
	if !loaded.Contains("quick") || loaded.Contains("lazy") {
		t.Errorf("vocabulary membership wrong")
	}
	if loaded.Lookup("brown") != 3 {
		t.Errorf("Lookup(brown) = %d, want 3", loaded.Lookup("brown"))
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	tbl := New(5)
	tbl.Add("quick", 2)
	if err := tbl.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	path := filepath.Join(dir, "df.bin")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading table file: %v", err)
	}
	raw[len(raw)/2] ^= 0xFF
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("writing corrupted file: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Errorf("Load of corrupted table should fail")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Errorf("Load with no df.bin should fail")
	}
}
