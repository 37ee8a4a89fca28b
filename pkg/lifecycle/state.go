// Package lifecycle runs the gateway process through a small state
// machine: start hooks open clients and listeners, stop hooks drain and
// close them in reverse order.
//
// The flow for a healthy process is:
//
//	Unknown → Starting → Running → Draining → Stopped
//
// Any non-terminal state may move to Failed. Both terminal states may move
// back to Starting.
package lifecycle

// State is a position in the service lifecycle. The zero value is not a
// valid state; services begin in [StateUnknown].
type State string

const (
	StateUnknown  State = "unknown"
	StateStarting State = "starting"
	// StateRunning is the only state in which [Service.Health] passes.
	StateRunning State = "running"
	// StateDraining is held while stop hooks run. Health fails so load
	// balancers stop routing new requests.
	StateDraining State = "draining"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

// String returns the lower-case state name.
func (s State) String() string {
	return string(s)
}

// Valid reports whether s is a recognised state.
func (s State) Valid() bool {
	switch s {
	case StateUnknown, StateStarting, StateRunning, StateDraining,
		StateStopped, StateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is Stopped or Failed.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}

// Transition matrix:
//
//	Unknown  → Starting, Failed
//	Starting → Running, Draining, Failed
//	Running  → Draining, Failed
//	Draining → Stopped, Failed
//	Stopped  → Starting
//	Failed   → Starting
var validTransitions = map[State][]State{
	StateUnknown:  {StateStarting, StateFailed},
	StateStarting: {StateRunning, StateDraining, StateFailed},
	StateRunning:  {StateDraining, StateFailed},
	StateDraining: {StateStopped, StateFailed},
	StateStopped:  {StateStarting},
	StateFailed:   {StateStarting},
}

// ValidTransition reports whether from may move to to. Same-state
// transitions are rejected.
func ValidTransition(from, to State) bool {
	if from == to {
		return false
	}
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
