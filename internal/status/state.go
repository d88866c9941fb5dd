// Package status provides the table-driven state machines behind the sync
// and composition lifecycles.
package status

import (
	"fmt"
	"slices"

	"github.com/matheus3301/freechat/internal/bus"
)

// State is a named lifecycle state.
type State string

// Table maps each state to the states it may move to. A state without an
// entry is terminal.
type Table map[State][]State

// Allows reports whether from may move to to.
func (t Table) Allows(from, to State) bool {
	return slices.Contains(t[from], to)
}

// Terminal reports whether no transition leaves s.
func (t Table) Terminal(s State) bool {
	return len(t[s]) == 0
}

// TransitionError is returned for a move the table does not allow.
type TransitionError struct {
	Subject  int64
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("conversation %d: invalid transition %s -> %s", e.Subject, e.From, e.To)
}

// StatusChange is the payload published for every accepted transition.
type StatusChange struct {
	Subject int64
	From    State
	To      State
}

// Machine holds the state of one conversation's lifecycle. It is owned by
// the event loop and must not be shared across goroutines.
type Machine struct {
	current State
	table   Table
	kind    string
	subject int64
	bus     *bus.Bus
}

// NewMachine creates a machine for subject in state initial. Accepted
// transitions are emitted on b as events of kind.
func NewMachine(b *bus.Bus, kind string, subject int64, initial State, table Table) *Machine {
	return &Machine{current: initial, table: table, kind: kind, subject: subject, bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State { return m.current }

// Is reports whether the current state is one of states.
func (m *Machine) Is(states ...State) bool {
	return slices.Contains(states, m.current)
}

// Transition moves to to, or returns a *TransitionError and stays put.
func (m *Machine) Transition(to State) error {
	if !m.table.Allows(m.current, to) {
		return &TransitionError{Subject: m.subject, From: m.current, To: to}
	}
	change := StatusChange{Subject: m.subject, From: m.current, To: to}
	m.current = to
	m.bus.Emit(m.kind, change)
	return nil
}
