package driver

import "fmt"

// State is a driver condition reported by the perception service.
type State string

// Known driver states.
const (
	// StateNormal means the driver looks alert.
	StateNormal State = "normal"
	// StateDrowsy means the driver's eyes stayed closed beyond the blink threshold.
	StateDrowsy State = "drowsy"
	// StateYawn means the driver is yawning.
	StateYawn State = "yawn"
	// StateNoFace means no face is currently detected in the frame.
	// It is a transient signal and is never persisted.
	StateNoFace State = "no_face"
)

// ParseState validates a raw state value from an inbound payload.
func ParseState(raw string) (State, error) {
	switch s := State(raw); s {
	case StateNormal, StateDrowsy, StateYawn, StateNoFace:
		return s, nil
	default:
		return "", fmt.Errorf("unknown driver state %q", raw)
	}
}

// Persistable reports whether the state is written to the record store.
// no_face only signals that detection lost the face, so it never becomes
// part of the durable history.
func (s State) Persistable() bool {
	switch s {
	case StateNormal, StateDrowsy, StateYawn:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the state.
func (s State) String() string {
	return string(s)
}
