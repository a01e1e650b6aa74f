package main

import "time"

// Flag structs to decouple cobra from logic for testing.

// RunFlags configures the run command.
type RunFlags struct {
	ConfigPath string
	Listen     string // override [server].listen; empty keeps config value
	NoServer   bool   // disable the status API even when the config enables it
}

// ValidateFlags configures the validate command.
type ValidateFlags struct {
	ConfigPath string
}

// StatusFlags configures the status command.
type StatusFlags struct {
	APIUrl      string
	APITimeout  time.Duration
	Transitions bool // print the transition log instead of current states
	Watch       bool
	Interval    time.Duration
}
