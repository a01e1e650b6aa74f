package process

import (
	"fmt"

	"github.com/okvern/forerun/internal/probe"
)

// Build converts a single config entry into a probe.Probe.
// name is used only for error messages.
func (pc ProbeConfig) Build(name string) (probe.Probe, error) {
	switch pc.Type {
	case "command":
		if pc.Command == "" {
			return nil, fmt.Errorf("probe command requires command for service %s", name)
		}
		return probe.CommandProbe{Command: pc.Command}, nil
	case "tcp":
		if pc.Address == "" {
			return nil, fmt.Errorf("probe tcp requires address for service %s", name)
		}
		return probe.TCPProbe{Address: pc.Address, DialTimeout: pc.Timeout}, nil
	case "file":
		if pc.Path == "" {
			return nil, fmt.Errorf("probe file requires path for service %s", name)
		}
		return probe.FileProbe{Path: pc.Path}, nil
	case "pidfile":
		if pc.Path == "" {
			return nil, fmt.Errorf("probe pidfile requires path for service %s", name)
		}
		return probe.PIDFileProbe{Path: pc.Path}, nil
	default:
		return nil, fmt.Errorf("unknown probe type %q for service %s", pc.Type, name)
	}
}
