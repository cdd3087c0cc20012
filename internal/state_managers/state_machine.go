package state_managers

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// StateMachine tracks the current state of a component and rejects
// transitions missing from its table.
type StateMachine[S ~string] struct {
	name             string
	state            S
	validTransitions map[S][]S
	logger           zerolog.Logger
	mu               sync.Mutex
}

// NewStateMachine creates a StateMachine starting in initial.
func NewStateMachine[S ~string](name string, initial S, transitions map[S][]S, logger zerolog.Logger) *StateMachine[S] {
	return &StateMachine[S]{
		name:             name,
		state:            initial,
		validTransitions: transitions,
		logger:           logger,
	}
}

// Current returns the current state.
func (m *StateMachine[S]) Current() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition moves to next if the table allows it.
func (m *StateMachine[S]) Transition(next S) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isValidTransition(next) {
		m.logger.Warn().
			Str("machine", m.name).
			Str("from", string(m.state)).
			Str("to", string(next)).
			Msg("Rejected state transition")
		return fmt.Errorf("%s: invalid transition from %s to %s", m.name, m.state, next)
	}

	m.logger.Debug().
		Str("machine", m.name).
		Str("from", string(m.state)).
		Str("to", string(next)).
		Msg("State transition")
	m.state = next
	return nil
}

// TransitionFrom moves to next only while the machine is in one of from.
// It returns false without error when the current state is not listed.
func (m *StateMachine[S]) TransitionFrom(next S, from ...S) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := false
	for _, s := range from {
		if m.state == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	if !m.isValidTransition(next) {
		return false, fmt.Errorf("%s: invalid transition from %s to %s", m.name, m.state, next)
	}
	m.state = next
	return true, nil
}

// isValidTransition checks the table for current -> next.
func (m *StateMachine[S]) isValidTransition(next S) bool {
	validStates, exists := m.validTransitions[m.state]
	if !exists {
		return false
	}
	for _, s := range validStates {
		if s == next {
			return true
		}
	}
	return false
}
