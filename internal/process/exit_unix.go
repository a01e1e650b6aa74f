//go:build !windows

package process

import (
	"errors"
	"os/exec"
	"syscall"
)

// exitStatus maps a cmd.Wait error to (exit code, signal name). A signaled
// child is reported with the shell convention 128+signum, so a SIGKILLed
// child yields 137 and a SIGTERMed one 143.
func exitStatus(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				sig := ws.Signal()
				return 128 + int(sig), sig.String()
			}
			return ws.ExitStatus(), ""
		}
		return ee.ExitCode(), ""
	}
	// Wait failed without an ExitError. A -1 here would wrap to 255 through
	// os.Exit, so report a plain failure instead.
	return 1, ""
}
