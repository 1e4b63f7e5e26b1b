package workflow

import "context"

// StateMachine tracks a current state and validates transitions into target states
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if an edge to the target state exists from the current state.
	// Guards are not evaluated.
	CanFire(to State) bool

	// Fire attempts to move to the target state
	Fire(ctx context.Context, to State) error

	// PermittedStates returns the states reachable from the current state
	PermittedStates() []State

	// IsTerminal returns true if the current state has no outgoing edges
	IsTerminal() bool
}
