package lifecycle

import "testing"

func TestHappyPathTransitions(t *testing.T) {
	m := New(Absent)
	for _, next := range []State{Building, Merging, Splitting, Ready} {
		if err := m.Transition(next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
	if !m.IsReady() {
		t.Errorf("machine should be ready after full walk")
	}
}

func TestIllegalTransitionsRejected(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Absent, Merging},
		{Absent, Ready},
		{Building, Splitting},
		{Building, Ready},
		{Merging, Building},
		{Ready, Merging},
	}
	for _, tt := range tests {
		m := New(tt.from)
		if err := m.Transition(tt.to); err == nil {
			t.Errorf("transition %s -> %s should be rejected", tt.from, tt.to)
		}
		if m.State() != tt.from {
			t.Errorf("failed transition mutated state to %s", m.State())
		}
	}
}

func TestRebuildFromReady(t *testing.T) {
	m := New(Ready)
	if err := m.Transition(Building); err != nil {
		t.Fatalf("ready -> building (rebuild) should be allowed: %v", err)
	}
}

func TestFailClearsToAbsent(t *testing.T) {
	for _, from := range []State{Building, Merging, Splitting, Ready} {
		m := New(from)
		m.Fail()
		if m.State() != Absent {
			t.Errorf("Fail from %s left state %s, want absent", from, m.State())
		}
	}
}

func TestRestore(t *testing.T) {
	m := New(Absent)
	m.Restore(Ready)
	if !m.IsReady() {
		t.Errorf("Restore(Ready) did not take effect")
	}
}

func TestStateStrings(t *testing.T) {
	want := map[State]string{
		Absent: "absent", Building: "building", Merging: "merging",
		Splitting: "splitting", Ready: "ready",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("%d.String() = %s, want %s", s, s.String(), name)
		}
	}
}
