package client

import "time"

// ServiceStatus mirrors one dependent's entry in the /status payload.
type ServiceStatus struct {
	Name     string   `json:"name"`
	State    string   `json:"state"`
	PID      int      `json:"pid,omitempty"`
	Restarts int      `json:"restarts"`
	Probes   []string `json:"probes,omitempty"`
}

// ForegroundStatus mirrors the foreground slice of /status.
type ForegroundStatus struct {
	Running  bool   `json:"running"`
	PID      int    `json:"pid,omitempty"`
	ExitCode int    `json:"exit_code"`
	Signal   string `json:"signal,omitempty"`
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Services   []ServiceStatus  `json:"services"`
	Foreground ForegroundStatus `json:"foreground"`
}

// Transition is one entry of the /transitions log.
type Transition struct {
	Service string    `json:"service"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	At      time.Time `json:"at"`
}

// Usage is one child's latest resource sample from /usage.
type Usage struct {
	PID        int       `json:"pid"`
	Name       string    `json:"name"`
	CPUPercent float64   `json:"cpu_percent"`
	MemoryRSS  uint64    `json:"memory_rss"`
	MemoryMB   float64   `json:"memory_mb"`
	NumThreads int32     `json:"num_threads"`
	Timestamp  time.Time `json:"timestamp"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
