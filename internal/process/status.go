package process

import "time"

// Status is a point-in-time snapshot of a supervised child.
type Status struct {
	Name      string    `json:"name"`
	Running   bool      `json:"running"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
	ExitCode  int       `json:"exit_code"`
	Signal    string    `json:"signal,omitempty"` // set when the child died to a signal
	ExitErr   error     `json:"-"`
	Restarts  int       `json:"restarts"`
}
