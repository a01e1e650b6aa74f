package supervisor

import "time"

// State is the lifecycle state of a dependent service. Transitions are
// monotonic (Pending -> Starting -> Ready -> Stopped) except Failed ->
// Starting, which happens only for a Ready service with restart enabled.
type State int32

const (
	StatePending State = iota
	StateStarting
	StateReady
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalJSON renders states by name so transition logs and the HTTP status
// surface stay readable.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Transition records one observed state change. The supervisor keeps the
// full ordered log for the run; two runs with identical specs on a clean
// environment produce structurally identical logs.
type Transition struct {
	Service string    `json:"service"`
	From    State     `json:"from"`
	To      State     `json:"to"`
	At      time.Time `json:"at"`
}
