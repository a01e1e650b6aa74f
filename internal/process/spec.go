package process

import (
	"os/exec"
	"strings"
	"time"

	"github.com/okvern/forerun/internal/logger"
	"github.com/okvern/forerun/internal/probe"
)

// ProbeConfig is a readiness probe entry as parsed from config files.
type ProbeConfig struct {
	Type    string        `json:"type" mapstructure:"type"`       // command, tcp, file, pidfile
	Command string        `json:"command" mapstructure:"command"` // for command probes
	Address string        `json:"address" mapstructure:"address"` // for tcp probes
	Path    string        `json:"path" mapstructure:"path"`       // for file probes
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"` // per-attempt dial timeout (tcp)
}

// Spec describes one supervised process. Specs are built once at
// configuration time and never mutated afterwards.
type Spec struct {
	Name           string            `json:"name"`
	Command        string            `json:"command"`         // command to start the process (shell-aware)
	WorkDir        string            `json:"work_dir"`        // optional working dir
	Env            []string          `json:"env"`             // optional extra env
	StartupTimeout time.Duration     `json:"startup_timeout"` // bound on the readiness wait
	Restart        bool              `json:"restart"`         // restart a Ready dependent that crashes
	Detached       bool              `json:"detached"`        // new session instead of new process group
	Foreground     bool              `json:"-"`               // inherit supervisor stdio when uncaptured
	Probes         []probe.Probe     `json:"-" mapstructure:"-"`
	ProbeConfigs   []ProbeConfig     `json:"probes" mapstructure:"probes"` // for config parsing
	Log            logger.FileConfig `json:"log"`                          // stdout/stderr capture
}

// BuildCommand constructs an *exec.Cmd for the spec's Command.
// It avoids invoking a shell when not necessary, and it respects an explicit
// shell invocation already present in the command string (e.g.
// "sh -c 'echo hi'"), avoiding double-wrapping with another shell.
func (s *Spec) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(s.Command)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	if _, afterC, ok := parseExplicitShell(cmdStr); ok {
		// Always use the absolute shell path to avoid PATH dependency when Env is overridden.
		// #nosec G204
		return exec.Command("/bin/sh", "-c", afterC)
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// BuildProbes materializes probe.Probe values from ProbeConfigs.
// Returns nil when no probe is declared; such services are trusted as soon
// as they start.
func (s *Spec) BuildProbes() ([]probe.Probe, error) {
	if len(s.Probes) > 0 {
		return s.Probes, nil
	}
	out := make([]probe.Probe, 0, len(s.ProbeConfigs))
	for _, pc := range s.ProbeConfigs {
		p, err := pc.Build(s.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// parseExplicitShell detects patterns like "sh -c <ARG>" or "/bin/sh -c <ARG>"
// at the beginning of cmdStr. It returns (shellPath, afterCArg, true) when
// matched, preserving the substring after "-c " verbatim to avoid breaking
// quoting.
func parseExplicitShell(cmdStr string) (string, string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	candidates := []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}
	for _, p := range candidates {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return strings.Fields(p)[0], after, true
		}
	}
	return "", "", false
}
