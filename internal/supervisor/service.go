package supervisor

import (
	"github.com/okvern/forerun/internal/probe"
	"github.com/okvern/forerun/internal/process"
)

// service pairs an immutable spec with its owned child handle and current
// lifecycle state. State is guarded by the supervisor's mutex; only the
// supervisor mutates it.
type service struct {
	spec   process.Spec
	child  *process.Child
	probes []probe.Probe
	state  State
}

// ServiceStatus is the externally consumable view of one dependent.
type ServiceStatus struct {
	Name     string         `json:"name"`
	State    State          `json:"state"`
	PID      int            `json:"pid,omitempty"`
	Restarts int            `json:"restarts"`
	Probes   []string       `json:"probes,omitempty"`
	Process  process.Status `json:"process"`
}

func (s *service) status() ServiceStatus {
	snap := s.child.Snapshot()
	probes := make([]string, 0, len(s.probes))
	for _, p := range s.probes {
		probes = append(probes, p.Describe())
	}
	return ServiceStatus{
		Name:     s.spec.Name,
		State:    s.state,
		PID:      snap.PID,
		Restarts: snap.Restarts,
		Probes:   probes,
		Process:  snap,
	}
}
