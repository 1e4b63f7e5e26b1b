package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc evaluates whether a transition may proceed. A non-nil error blocks it
// and is wrapped together with ErrGuardFailed.
type GuardFunc func(ctx context.Context) error

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows transitions to the target states
	Permit(toStates ...State) StateConfiguration

	// PermitIf allows a transition to the target state if the guard passes
	PermitIf(toState State, guard GuardFunc) StateConfiguration

	// RequireOnEntry registers a precondition for entering this state. Entry
	// preconditions run before the edge lookup, so a missing precondition is
	// reported even when the edge itself does not exist.
	RequireOnEntry(guard GuardFunc) StateConfiguration
}

// transition represents a state transition with optional guard
type transition struct {
	toState State
	guard   GuardFunc
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	builder     *stateMachineBuilder
	fromState   State
	transitions map[State]transition
	entryGuards []GuardFunc
}

// stateMachineBuilder implements StateMachineBuilder
type stateMachineBuilder struct {
	states         stateSet
	configurations map[State]*stateConfig
}

// stateMachine implements StateMachine
type stateMachine struct {
	states         stateSet
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder over a closed set of states
func NewBuilder(states ...State) StateMachineBuilder {
	return &stateMachineBuilder{
		states:         newStateSet(states),
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !b.states.contains(state) {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			builder:     b,
			fromState:   state,
			transitions: make(map[State]transition),
		}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !b.states.contains(initialState) {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Deep copy configurations so later Configure calls don't leak into built machines
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[State]transition, len(config.transitions))
		for to, t := range config.transitions {
			transitionsCopy[to] = t
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
			entryGuards: append([]GuardFunc{}, config.entryGuards...),
		}
	}

	return &stateMachine{
		states:         b.states,
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows transitions to the target states
func (c *stateConfig) Permit(toStates ...State) StateConfiguration {
	for _, to := range toStates {
		c.PermitIf(to, nil)
	}
	return c
}

// PermitIf allows a transition to the target state if the guard passes
func (c *stateConfig) PermitIf(toState State, guard GuardFunc) StateConfiguration {
	if !c.builder.states.contains(toState) {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions[toState] = transition{
		toState: toState,
		guard:   guard,
	}

	return c
}

// RequireOnEntry registers a precondition for entering this state
func (c *stateConfig) RequireOnEntry(guard GuardFunc) StateConfiguration {
	if guard != nil {
		c.entryGuards = append(c.entryGuards, guard)
	}
	return c
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if an edge to the target exists from the current state
func (m *stateMachine) CanFire(to State) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	_, exists = config.transitions[to]
	return exists
}

// Fire attempts to move to the target state
func (m *stateMachine) Fire(ctx context.Context, to State) error {
	if !m.states.contains(to) {
		return fmt.Errorf("%w: %s", ErrInvalidState, to)
	}

	if target, ok := m.configurations[to]; ok {
		for _, guard := range target.entryGuards {
			if err := guard(ctx); err != nil {
				return fmt.Errorf("%w: entering %s: %w", ErrGuardFailed, to, err)
			}
		}
	}

	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: cannot move from %s to %s (no configuration)", ErrInvalidTransition, m.currentState, to)
	}

	t, exists := config.transitions[to]
	if !exists {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, m.currentState, to)
	}

	if t.guard != nil {
		if err := t.guard(ctx); err != nil {
			return fmt.Errorf("%w: %s to %s: %w", ErrGuardFailed, m.currentState, to, err)
		}
	}

	m.currentState = t.toState
	return nil
}

// PermittedStates returns the states reachable from the current state, sorted
func (m *stateMachine) PermittedStates() []State {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []State{}
	}

	states := make([]State, 0, len(config.transitions))
	for to := range config.transitions {
		states = append(states, to)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	return states
}

// IsTerminal returns true if the current state has no outgoing edges
func (m *stateMachine) IsTerminal() bool {
	config, exists := m.configurations[m.currentState]
	return !exists || len(config.transitions) == 0
}
