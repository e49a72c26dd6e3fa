// Package lifecycle implements the index build/query state machine:
// ABSENT -> BUILDING -> MERGING -> SPLITTING -> READY. It gates concurrent
// build and query access to a single on-disk index the same way
// pkg/resilience.CircuitBreaker gates request flow through a single state
// value guarded by a mutex.
package lifecycle

import (
	"fmt"
	"log/slog"
	"sync"
)

// State is one phase of the index build/query lifecycle.
type State int

const (
	Absent State = iota
	Building
	Merging
	Splitting
	Ready
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Building:
		return "building"
	case Merging:
		return "merging"
	case Splitting:
		return "splitting"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Machine tracks the current lifecycle state of one index and serializes
// transitions. Queries must check IsReady before reading index state;
// builds must hold the machine for their entire run so a query never
// observes a half-written index.
type Machine struct {
	mu     sync.RWMutex
	state  State
	logger *slog.Logger
}

// New creates a Machine starting in the given state (Absent for a fresh
// index, Ready if on-disk artifacts were detected valid at startup).
func New(initial State) *Machine {
	return &Machine{
		state:  initial,
		logger: slog.Default().With("component", "index-lifecycle"),
	}
}

// State returns the current lifecycle state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsReady reports whether the index is in the Ready state and safe for
// concurrent queries.
func (m *Machine) IsReady() bool {
	return m.State() == Ready
}

// transitions enumerates the only state changes the machine permits.
var transitions = map[State][]State{
	Absent:    {Building},
	Building:  {Merging, Absent},
	Merging:   {Splitting, Absent},
	Splitting: {Ready, Absent},
	Ready:     {Building, Absent},
}

// Transition moves the machine to next, rejecting any transition not in
// the fixed state graph above.
func (m *Machine) Transition(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.logger.Info("lifecycle transition", "from", m.state, "to", next)
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("lifecycle: illegal transition %s -> %s", m.state, next)
}

// Restore forces the machine to state without walking the transition
// graph, used when adopting index artifacts another process built.
func (m *Machine) Restore(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Info("lifecycle restored", "from", m.state, "to", state)
	m.state = state
}

// Fail clears partial build state by forcing the machine back to Absent,
// regardless of the current state. Any fatal build error (or a forced
// rebuild) discards whatever was in progress.
func (m *Machine) Fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Warn("lifecycle reset to absent", "from", m.state)
	m.state = Absent
}
