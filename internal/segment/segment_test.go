package segment

import (
	"io"
	"os"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
)

func sampleEntries() []posting.TokenEntry {
	return []posting.TokenEntry{
		{Token: "brown", Postings: posting.PostingList{
			{DocID: 0, Frequency: 2, TagFrequency: map[posting.Tag]uint32{posting.TagOther: 2}},
			{DocID: 3, Frequency: 1, TagFrequency: map[posting.Tag]uint32{posting.TagTitle: 1}},
		}},
		{Token: "fox", Postings: posting.PostingList{
			{DocID: 1, Frequency: 5, TagFrequency: map[posting.Tag]uint32{posting.TagOther: 4, posting.TagBold: 1}},
		}},
		{Token: "quick", Postings: posting.PostingList{
			{DocID: 0, Frequency: 1, TagFrequency: map[posting.Tag]uint32{posting.TagOther: 1}},
			{DocID: 1, Frequency: 3, TagFrequency: map[posting.Tag]uint32{posting.TagH1: 3}},
			{DocID: 2, Frequency: 1, TagFrequency: map[posting.Tag]uint32{posting.TagOther: 1}},
		}},
	}
}

func TestEncodeDecodeTokenEntry(t *testing.T) {
	for _, entry := range sampleEntries() {
		decoded, err := DecodeTokenEntry(EncodeTokenEntry(entry))
		if err != nil {
			t.Fatalf("decoding %q: %v", entry.Token, err)
		}
		if !reflect.DeepEqual(decoded, entry) {
			t.Errorf("round trip of %q changed entry:\n got %+v\nwant %+v", entry.Token, decoded, entry)
		}
	}
}

func TestSpillRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := CreateSpill(dir, 0)
	if err != nil {
		t.Fatalf("CreateSpill: %v", err)
	}
	entries := sampleEntries()
	for _, e := range entries {
		if err := w.Write(e); err != nil {
			t.Fatalf("Write(%q): %v", e.Token, err)
		}
	}
	path, err := w.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenSpill(path)
	if err != nil {
		t.Fatalf("OpenSpill: %v", err)
	}
	defer r.Close()

	var got []posting.TokenEntry
	for {
		entry, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, entry)
	}
	if !reflect.DeepEqual(got, entries) {
		t.Errorf("spill round trip changed entries:\n got %+v\nwant %+v", got, entries)
	}
}

func TestOpenSpillRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bogus.spl"
	if err := os.WriteFile(path, []byte("not a spill file at all"), 0o644); err != nil {
		t.Fatalf("writing bogus file: %v", err)
	}
	if _, err := OpenSpill(path); err == nil {
		t.Errorf("OpenSpill should reject a file without the spill magic")
	}
}

func TestPartitionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := CreatePartition(dir, "brown")
	if err != nil {
		t.Fatalf("CreatePartition: %v", err)
	}
	entries := sampleEntries()
	for _, e := range entries {
		if err := w.Write(e); err != nil {
			t.Fatalf("Write(%q): %v", e.Token, err)
		}
	}
	if smallest, ok := w.SmallestToken(); !ok || smallest != "brown" {
		t.Errorf("SmallestToken = %q,%v, want brown,true", smallest, ok)
	}
	path, err := w.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenPartition(path)
	if err != nil {
		t.Fatalf("OpenPartition: %v", err)
	}
	defer r.Close()

	for _, e := range entries {
		got, ok, err := r.Lookup(e.Token)
		if err != nil || !ok {
			t.Fatalf("Lookup(%q) = %v, %v", e.Token, ok, err)
		}
		if !reflect.DeepEqual(got, e) {
			t.Errorf("Lookup(%q) changed entry:\n got %+v\nwant %+v", e.Token, got, e)
		}
		if df := r.DocFreq(e.Token); df != uint32(e.DocFreq()) {
			t.Errorf("DocFreq(%q) = %d, want %d", e.Token, df, e.DocFreq())
		}
	}

	if _, ok, err := r.Lookup("zebra"); err != nil || ok {
		t.Errorf("Lookup of absent token should be a clean miss, got ok=%v err=%v", ok, err)
	}
	if df := r.DocFreq("zebra"); df != 0 {
		t.Errorf("DocFreq of absent token = %d, want 0", df)
	}

	tokens := r.Tokens()
	want := []string{"brown", "fox", "quick"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokens = %v, want ascending %v", tokens, want)
	}
}

func TestPartitionFileNaming(t *testing.T) {
	dir := t.TempDir()
	w, err := CreatePartition(dir, "alpha")
	if err != nil {
		t.Fatalf("CreatePartition: %v", err)
	}
	if err := w.Write(sampleEntries()[0]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path, err := w.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if want := dir + "/partition_alpha.bin"; path != want {
		t.Errorf("partition path = %q, want %q", path, want)
	}
}

func TestOpenPartitionDetectsCorruptDictionary(t *testing.T) {
	dir := t.TempDir()
	w, err := CreatePartition(dir, "brown")
	if err != nil {
		t.Fatalf("CreatePartition: %v", err)
	}
	for _, e := range sampleEntries() {
		if err := w.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	path, err := w.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading partition: %v", err)
	}
	// Flip a byte inside the dictionary region (just before the footer).
	raw[len(raw)-FooterSize-2] ^= 0xFF
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("writing corrupted partition: %v", err)
	}
	if _, err := OpenPartition(path); err == nil {
		t.Errorf("OpenPartition should reject a corrupted dictionary")
	}
}
