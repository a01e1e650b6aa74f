package process

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ErrAlreadyRunning is returned by Start when the previous run has not exited.
var ErrAlreadyRunning = errors.New("process already running")

// Child is an owned handle to one supervised OS process. The owner starts it,
// keeps the handle for later signaling, and observes its exit through ExitCh.
// Exactly one reaper goroutine (spawned by Start) waits on the process, so
// Stop and Kill never race on cmd.Wait.
type Child struct {
	spec      Spec
	mu        sync.Mutex
	cmd       *exec.Cmd
	status    Status
	stopping  bool
	restarts  int
	outCloser io.WriteCloser
	errCloser io.WriteCloser
	exited    chan struct{} // closed by the reaper when cmd.Wait returns
}

func New(spec Spec) *Child { return &Child{spec: spec} }

// Spec returns a copy of the immutable spec.
func (c *Child) Spec() Spec {
	return c.spec
}

// Start launches the child: builds the command, applies workdir, environment,
// stdio capture and process-group attributes, then spawns the reaper.
func (c *Child) Start(mergedEnv []string) error {
	c.mu.Lock()
	if c.status.Running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	spec := c.spec
	restarts := c.restarts
	c.mu.Unlock()

	cmd := spec.BuildCommand()
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(mergedEnv) > 0 {
		cmd.Env = mergedEnv
	}
	configureSysProcAttr(cmd, spec)

	var outW, errW io.WriteCloser
	if spec.Log.Dir != "" || spec.Log.StdoutPath != "" || spec.Log.StderrPath != "" {
		if spec.Log.Dir != "" {
			_ = os.MkdirAll(spec.Log.Dir, 0o750)
		}
		outW, errW, _ = spec.Log.Writers(spec.Name)
	}
	c.wireStdio(cmd, spec, outW, errW)

	if err := cmd.Start(); err != nil {
		if outW != nil {
			_ = outW.Close()
		}
		if errW != nil {
			_ = errW.Close()
		}
		return err
	}

	exited := make(chan struct{})
	c.mu.Lock()
	c.cmd = cmd
	c.outCloser = outW
	c.errCloser = errW
	c.exited = exited
	c.stopping = false
	c.status = Status{
		Name:      spec.Name,
		Running:   true,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
		Restarts:  restarts,
	}
	c.mu.Unlock()

	go c.reap(cmd, exited)
	return nil
}

// wireStdio attaches capture writers when configured; otherwise the
// foreground inherits the supervisor's stdio and dependents get /dev/null.
func (c *Child) wireStdio(cmd *exec.Cmd, spec Spec, outW, errW io.WriteCloser) {
	switch {
	case outW != nil:
		cmd.Stdout = outW
	case spec.Foreground:
		cmd.Stdout = os.Stdout
	default:
		cmd.Stdout, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	switch {
	case errW != nil:
		cmd.Stderr = errW
	case spec.Foreground:
		cmd.Stderr = os.Stderr
	default:
		cmd.Stderr, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	if spec.Foreground {
		cmd.Stdin = os.Stdin
	}
}

// reap waits for the process, records its exit status, closes capture
// writers, and signals ExitCh.
func (c *Child) reap(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	code, sig := exitStatus(err)
	c.mu.Lock()
	c.status.Running = false
	c.status.StoppedAt = time.Now()
	c.status.ExitErr = err
	c.status.ExitCode = code
	c.status.Signal = sig
	if c.outCloser != nil {
		_ = c.outCloser.Close()
		c.outCloser = nil
	}
	if c.errCloser != nil {
		_ = c.errCloser.Close()
		c.errCloser = nil
	}
	c.mu.Unlock()
	close(exited)
}

// ExitCh returns a channel closed when the current run has been reaped.
// Before the first Start it returns an already-closed channel.
func (c *Child) ExitCh() <-chan struct{} {
	c.mu.Lock()
	ch := c.exited
	c.mu.Unlock()
	if ch == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return ch
}

// Alive reports whether the current run is still executing.
func (c *Child) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Running
}

// Snapshot returns a copy of the current status.
func (c *Child) Snapshot() Status {
	c.mu.Lock()
	s := c.status
	c.mu.Unlock()
	return s
}

// PID returns the pid of the current run, or 0 when never started.
func (c *Child) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.PID
}

// StopRequested reports whether Stop has been called for the current run.
// Owners use it to suppress restart of a deliberately stopped service.
func (c *Child) StopRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopping
}

// IncRestarts bumps the restart counter for the next run.
func (c *Child) IncRestarts() int {
	c.mu.Lock()
	c.restarts++
	v := c.restarts
	c.mu.Unlock()
	return v
}

// Signal forwards a signal to the child's process group.
func (c *Child) Signal(sig syscall.Signal) error {
	c.mu.Lock()
	cmd := c.cmd
	running := c.status.Running
	c.mu.Unlock()
	if cmd == nil || cmd.Process == nil || !running {
		return nil
	}
	return signalGroup(cmd.Process.Pid, sig)
}

// Stop terminates the child: SIGTERM to the process group, a bounded grace
// period, then SIGKILL for stragglers. It returns once the reaper has
// observed the exit (best effort after a kill).
func (c *Child) Stop(grace time.Duration) error {
	c.mu.Lock()
	c.stopping = true
	cmd := c.cmd
	exited := c.exited
	running := c.status.Running
	c.mu.Unlock()
	if cmd == nil || cmd.Process == nil || !running {
		return nil
	}
	pid := cmd.Process.Pid
	_ = signalGroup(pid, syscall.SIGTERM)
	select {
	case <-exited:
	case <-time.After(grace):
		_ = signalGroup(pid, syscall.SIGKILL)
		select {
		case <-exited:
		case <-time.After(200 * time.Millisecond):
			// best-effort
		}
	}
	return c.Snapshot().ExitErr
}

// Kill sends SIGKILL to the process group and waits briefly for the reap.
func (c *Child) Kill() error {
	c.mu.Lock()
	c.stopping = true
	cmd := c.cmd
	exited := c.exited
	running := c.status.Running
	c.mu.Unlock()
	if cmd == nil || cmd.Process == nil || !running {
		return nil
	}
	_ = signalGroup(cmd.Process.Pid, syscall.SIGKILL)
	select {
	case <-exited:
	case <-time.After(200 * time.Millisecond):
		// best-effort
	}
	return c.Snapshot().ExitErr
}
