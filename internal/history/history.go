package history

import (
	"context"
	"time"
)

// Event is one lifecycle record exported to external systems: a service
// state transition, or the foreground's start/exit.
type Event struct {
	Service    string    `json:"service"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	PID        int       `json:"pid"`
	ExitCode   int       `json:"exit_code"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink is a destination for history events (audit/analytics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
