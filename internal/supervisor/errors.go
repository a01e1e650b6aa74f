package supervisor

import (
	"fmt"
	"time"
)

// SetupExitCode is the reserved process exit code used only when the
// supervisor fails before the foreground ever launches. Once the foreground
// has started, its own exit code is always propagated unchanged.
const SetupExitCode = 97

// DependencyStartupError reports a dependent whose readiness probe never
// passed within its startup timeout (or that exited before becoming ready).
type DependencyStartupError struct {
	Service string
	Timeout time.Duration
	Err     error // underlying cause when the probe itself or the launch failed
}

func (e *DependencyStartupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dependency %s not ready within %s: %v", e.Service, e.Timeout, e.Err)
	}
	return fmt.Sprintf("dependency %s not ready within %s", e.Service, e.Timeout)
}

func (e *DependencyStartupError) Unwrap() error { return e.Err }

// DependencyCrashError reports a dependent that exited unexpectedly after
// reaching Ready. It is observational unless failTogether is configured.
type DependencyCrashError struct {
	Service string
	ExitErr error
}

func (e *DependencyCrashError) Error() string {
	if e.ExitErr != nil {
		return fmt.Sprintf("dependency %s exited unexpectedly: %v", e.Service, e.ExitErr)
	}
	return fmt.Sprintf("dependency %s exited unexpectedly", e.Service)
}

func (e *DependencyCrashError) Unwrap() error { return e.ExitErr }

// ForegroundLaunchError reports a foreground command that could not be
// started at all (not found, not executable). Always fatal.
type ForegroundLaunchError struct {
	Err error
}

func (e *ForegroundLaunchError) Error() string {
	return fmt.Sprintf("foreground launch failed: %v", e.Err)
}

func (e *ForegroundLaunchError) Unwrap() error { return e.Err }
