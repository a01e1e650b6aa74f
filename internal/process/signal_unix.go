//go:build !windows

package process

import "syscall"

// signalGroup sends a signal to the child's process group.
func signalGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}

// processExists checks if a process exists.
func processExists(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
