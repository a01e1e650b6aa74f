package probe

// Probe is a strategy that determines whether a dependent service has
// finished initializing. Implementations may run a command, attempt a TCP
// connection, or stat a file. A Probe must be safe for concurrent use.
type Probe interface {
	// Ready returns true once the service is detected as ready.
	Ready() (bool, error)
	// Describe returns a human-readable description of the probe.
	Describe() string
}
