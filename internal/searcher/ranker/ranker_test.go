package ranker

import (
	"reflect"
	"testing"
)

func TestOrderDescendingWithDeterministicTies(t *testing.T) {
	hits := []Hit{
		{URL: "https://example.com/b", Score: 0.5, Shard: 1},
		{URL: "https://example.com/a", Score: 0.5, Shard: 0},
		{URL: "https://example.com/c", Score: 0.9, Shard: 2},
		{URL: "https://example.com/a", Score: 0.5, Shard: 3},
	}
	got := Order(hits, 0)
	want := []Hit{
		{URL: "https://example.com/c", Score: 0.9, Shard: 2},
		{URL: "https://example.com/a", Score: 0.5, Shard: 0},
		{URL: "https://example.com/a", Score: 0.5, Shard: 3},
		{URL: "https://example.com/b", Score: 0.5, Shard: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestOrderTruncates(t *testing.T) {
	hits := []Hit{
		{URL: "u1", Score: 0.1}, {URL: "u2", Score: 0.2}, {URL: "u3", Score: 0.3},
	}
	got := Order(hits, 2)
	if len(got) != 2 || got[0].URL != "u3" || got[1].URL != "u2" {
		t.Errorf("Order with limit 2 = %v", got)
	}
}

func TestRound(t *testing.T) {
	if got := Round(0.123456789); got != 0.1235 {
		t.Errorf("Round = %v, want 0.1235", got)
	}
	if got := Round(1.0); got != 1.0 {
		t.Errorf("Round(1.0) = %v", got)
	}
}
