//go:build windows

package process

import (
	"errors"
	"os/exec"
)

// exitStatus maps a cmd.Wait error to (exit code, signal name). Windows has
// no signals; a terminated child reports its raw exit code.
func exitStatus(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), ""
	}
	// Wait failed without an ExitError. A -1 here would wrap to 255 through
	// os.Exit, so report a plain failure instead.
	return 1, ""
}
