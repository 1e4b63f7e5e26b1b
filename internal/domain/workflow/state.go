package workflow

// State is a node in a state machine. Each machine defines its own state set.
type State string

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// stateSet is the closed set of states a builder accepts
type stateSet map[State]bool

func newStateSet(states []State) stateSet {
	set := make(stateSet, len(states))
	for _, s := range states {
		set[s] = true
	}
	return set
}

// contains reports whether s belongs to the set
func (set stateSet) contains(s State) bool {
	return set[s]
}
