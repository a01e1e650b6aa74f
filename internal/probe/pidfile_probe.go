package probe

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	gops "github.com/shirou/gopsutil/v4/process"
)

// PIDFileProbe reports ready once a pidfile exists and the PID on its first
// line refers to a live process. A stale pidfile left behind by a dead
// process is not ready.
type PIDFileProbe struct{ Path string }

func (p PIDFileProbe) Ready() (bool, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(data)), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return false, fmt.Errorf("invalid pid in %s: %w", p.Path, err)
	}
	if pid <= 0 {
		return false, nil
	}
	return gops.PidExists(int32(pid))
}

func (p PIDFileProbe) Describe() string { return "pidfile:" + p.Path }
