package workflow

import "errors"

// Fire checks a move in a fixed order and wraps the first failure with one of
// these sentinels: the target must be a registered state, then the target's
// entry preconditions must hold, then the current state must permit the edge,
// then the edge guard must pass.
var (
	// ErrInvalidState means the target is not one of the machine's states.
	// Callers surface it as a validation failure on the requested status.
	ErrInvalidState = errors.New("unknown status")

	// ErrGuardFailed means an entry precondition or edge guard rejected the
	// move. The guard's own error is wrapped alongside it and the state is
	// left unchanged.
	ErrGuardFailed = errors.New("precondition not met")

	// ErrInvalidTransition means the current state has no edge to the target,
	// including moves out of terminal states.
	ErrInvalidTransition = errors.New("status transition not permitted")
)
