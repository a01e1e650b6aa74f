package supervisor

import "time"

// EventType classifies observable supervisor events.
type EventType string

const (
	EventStateChange     EventType = "state_change"
	EventDependencyCrash EventType = "dependency_crash"
	EventRestart         EventType = "restart"
	EventForegroundStart EventType = "foreground_start"
	EventForegroundExit  EventType = "foreground_exit"
)

// Event is emitted on the supervisor's event channel. Sends never block;
// a slow consumer loses events rather than stalling supervision.
type Event struct {
	Type       EventType `json:"type"`
	Service    string    `json:"service,omitempty"`
	From       State     `json:"from,omitempty"`
	To         State     `json:"to,omitempty"`
	PID        int       `json:"pid,omitempty"`
	ExitCode   int       `json:"exit_code,omitempty"`
	Err        error     `json:"-"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
