package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/okvern/forerun/internal/env"
	"github.com/okvern/forerun/internal/history"
	"github.com/okvern/forerun/internal/metrics"
	"github.com/okvern/forerun/internal/process"
)

// Policy selects the reaction to a dependent that misses its startup
// timeout.
type Policy int

const (
	// FailFast aborts the run before the foreground ever launches.
	FailFast Policy = iota
	// ProceedAnyway logs the miss and continues without the dependent.
	ProceedAnyway
)

// ParsePolicy maps config strings to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fail_fast", "failfast":
		return FailFast, nil
	case "proceed_anyway", "proceed":
		return ProceedAnyway, nil
	default:
		return FailFast, fmt.Errorf("unknown startup policy %q", s)
	}
}

// Options tune one supervision run.
type Options struct {
	PollInterval          time.Duration // readiness poll interval (default 200ms)
	GracePeriod           time.Duration // SIGTERM-to-SIGKILL window (default 5s)
	DefaultStartupTimeout time.Duration // for specs without one (default 10s)
	OnStartupTimeout      Policy
	FailTogether          bool // terminate the foreground when a Ready dependent dies
	Logger                *slog.Logger
	Sinks                 []history.Sink
	Env                   *env.Env
}

// Result is the final outcome of a run. Code is the foreground's own exit
// code whenever the foreground ran; it is SetupExitCode only when supervision
// failed before the foreground launched.
type Result struct {
	Code          int    `json:"code"`
	Signal        string `json:"signal,omitempty"`
	ForegroundRan bool   `json:"foreground_ran"`
	Err           error  `json:"-"`
}

// Supervisor starts the declared dependents in order, gates the foreground
// on their readiness, supervises the foreground to exit, and tears the
// dependents down in reverse order. One supervising goroutine owns the
// startup sequence; coordination with children happens only through process
// exits and readiness probes.
type Supervisor struct {
	opts   Options
	logger *slog.Logger
	envM   *env.Env
	sinks  []history.Sink

	fgSpec process.Spec
	fg     *process.Child

	mu          sync.Mutex
	services    []*service
	started     []*service // successfully launched, in start order
	transitions []Transition

	events   chan Event
	crashCh  chan *DependencyCrashError
	downCh   chan struct{}
	downOnce sync.Once
	watchWG  sync.WaitGroup
	ran      atomic.Bool
}

// New validates specs, materializes probes, and builds a Supervisor.
// Specs are immutable from here on.
func New(specs []process.Spec, foreground process.Spec, opts Options) (*Supervisor, error) {
	if foreground.Command == "" {
		return nil, errors.New("foreground command required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 200 * time.Millisecond
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 5 * time.Second
	}
	if opts.DefaultStartupTimeout <= 0 {
		opts.DefaultStartupTimeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	envM := opts.Env
	if envM == nil {
		envM = env.New()
	}
	seen := make(map[string]bool, len(specs))
	services := make([]*service, 0, len(specs))
	for _, sp := range specs {
		if sp.Name == "" {
			return nil, errors.New("service name required")
		}
		if sp.Command == "" {
			return nil, fmt.Errorf("service %s: command required", sp.Name)
		}
		if seen[sp.Name] {
			return nil, fmt.Errorf("duplicate service name %s", sp.Name)
		}
		seen[sp.Name] = true
		probes, err := sp.BuildProbes()
		if err != nil {
			return nil, err
		}
		services = append(services, &service{
			spec:   sp,
			child:  process.New(sp),
			probes: probes,
			state:  StatePending,
		})
	}
	foreground.Foreground = true
	if foreground.Name == "" {
		foreground.Name = "foreground"
	}
	return &Supervisor{
		opts:     opts,
		logger:   logger,
		envM:     envM,
		sinks:    opts.Sinks,
		fgSpec:   foreground,
		fg:       process.New(foreground),
		services: services,
		events:   make(chan Event, 128),
		crashCh:  make(chan *DependencyCrashError, 1),
		downCh:   make(chan struct{}),
	}, nil
}

// Events returns the supervisor's event stream. Events are dropped, never
// blocked on, when the consumer lags.
func (s *Supervisor) Events() <-chan Event { return s.events }

// Run executes the full supervision sequence and blocks until the foreground
// has exited and the dependents are torn down. Cancel ctx to request
// shutdown: the signal is forwarded to the foreground first, then teardown
// proceeds in reverse start order.
func (s *Supervisor) Run(ctx context.Context) Result {
	if !s.ran.CompareAndSwap(false, true) {
		return Result{Code: SetupExitCode, Err: errors.New("supervisor already run")}
	}

	for _, svc := range s.services {
		if err := ctx.Err(); err != nil {
			s.teardown()
			return Result{Code: SetupExitCode, Err: err}
		}
		if res, failed := s.startDependent(ctx, svc); failed {
			return res
		}
	}

	return s.runForeground(ctx)
}

// startDependent launches one dependent and waits for readiness. The second
// return value is true when the run must abort; res then carries the fatal
// result.
func (s *Supervisor) startDependent(ctx context.Context, svc *service) (res Result, failed bool) {
	name := svc.spec.Name
	timeout := s.timeoutFor(svc)
	s.setState(svc, StateStarting)
	s.logger.Info("starting dependency", "service", name, "command", svc.spec.Command)

	if err := svc.child.Start(s.envM.Merge(svc.spec.Env)); err != nil {
		serr := &DependencyStartupError{Service: name, Timeout: timeout, Err: err}
		s.setState(svc, StateFailed)
		if s.opts.OnStartupTimeout == FailFast {
			s.teardown()
			return Result{Code: SetupExitCode, Err: serr}, true
		}
		s.logger.Warn("continuing without dependency", "service", name, "error", serr)
		return Result{}, false
	}
	metrics.IncStart(name)
	s.markStarted(svc)

	if serr := s.waitReady(ctx.Done(), svc); serr != nil {
		s.setState(svc, StateFailed)
		if s.opts.OnStartupTimeout == FailFast {
			s.teardown()
			return Result{Code: SetupExitCode, Err: serr}, true
		}
		s.logger.Warn("continuing without dependency", "service", name, "error", serr)
		return Result{}, false
	}

	s.setState(svc, StateReady)
	s.logger.Info("dependency ready", "service", name, "pid", svc.child.PID())
	s.watchWG.Add(1)
	go func() {
		defer s.watchWG.Done()
		s.watch(svc)
	}()
	return Result{}, false
}

// runForeground launches and supervises the foreground process.
func (s *Supervisor) runForeground(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		s.teardown()
		return Result{Code: SetupExitCode, Err: err}
	}
	if err := s.fg.Start(s.envM.Merge(s.fgSpec.Env)); err != nil {
		ferr := &ForegroundLaunchError{Err: err}
		s.logger.Error("foreground launch failed", "command", s.fgSpec.Command, "error", err)
		s.teardown()
		return Result{Code: SetupExitCode, Err: ferr}
	}
	pid := s.fg.PID()
	s.logger.Info("foreground started", "name", s.fgSpec.Name, "pid", pid)
	s.emit(Event{Type: EventForegroundStart, Service: s.fgSpec.Name, PID: pid, OccurredAt: time.Now()})
	s.record(history.Event{Service: s.fgSpec.Name, From: StatePending.String(), To: "running", PID: pid, OccurredAt: time.Now().UTC()})

	fgExit := s.fg.ExitCh()
	ctxDone := ctx.Done()
	var runErr error
	for {
		select {
		case <-fgExit:
			st := s.fg.Snapshot()
			metrics.IncForegroundExit(st.ExitCode)
			s.logger.Info("foreground exited", "code", st.ExitCode, "signal", st.Signal)
			s.emit(Event{Type: EventForegroundExit, Service: s.fgSpec.Name, PID: st.PID, ExitCode: st.ExitCode, OccurredAt: time.Now()})
			s.record(history.Event{Service: s.fgSpec.Name, From: "running", To: "exited", PID: st.PID, ExitCode: st.ExitCode, Detail: st.Signal, OccurredAt: time.Now().UTC()})
			s.teardown()
			return Result{Code: st.ExitCode, Signal: st.Signal, ForegroundRan: true, Err: runErr}
		case cerr := <-s.crashCh:
			runErr = cerr
			s.logger.Error("dependency crashed; terminating foreground", "service", cerr.Service)
			_ = s.fg.Signal(syscall.SIGTERM)
			time.AfterFunc(s.opts.GracePeriod, func() { _ = s.fg.Kill() })
		case <-ctxDone:
			ctxDone = nil
			s.logger.Info("termination requested; forwarding to foreground", "pid", pid)
			_ = s.fg.Signal(syscall.SIGTERM)
			time.AfterFunc(s.opts.GracePeriod, func() { _ = s.fg.Kill() })
		}
	}
}

// waitReady polls the service's probes at the configured interval until all
// pass, the child dies, the timeout elapses, or done fires.
func (s *Supervisor) waitReady(done <-chan struct{}, svc *service) *DependencyStartupError {
	name := svc.spec.Name
	timeout := s.timeoutFor(svc)
	begin := time.Now()
	deadline := begin.Add(timeout)

	// With no probe declared, the service is trusted as soon as it runs.
	if len(svc.probes) == 0 {
		if !svc.child.Alive() {
			return &DependencyStartupError{Service: name, Timeout: timeout, Err: exitedBeforeReady(svc)}
		}
		return nil
	}

	t := time.NewTicker(s.opts.PollInterval)
	defer t.Stop()
	for {
		ok, err := s.probesReady(svc)
		if ok {
			metrics.ObserveReadyWait(name, time.Since(begin).Seconds())
			return nil
		}
		if err != nil {
			s.logger.Warn("readiness probe error", "service", name, "error", err)
		}
		if !svc.child.Alive() {
			return &DependencyStartupError{Service: name, Timeout: timeout, Err: exitedBeforeReady(svc)}
		}
		if time.Now().After(deadline) {
			return &DependencyStartupError{Service: name, Timeout: timeout}
		}
		select {
		case <-t.C:
		case <-done:
			return &DependencyStartupError{Service: name, Timeout: timeout, Err: context.Canceled}
		}
	}
}

// probesReady requires every declared probe to pass.
func (s *Supervisor) probesReady(svc *service) (bool, error) {
	var firstErr error
	for _, p := range svc.probes {
		ok, err := p.Ready()
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", p.Describe(), err)
		}
		if !ok {
			return false, firstErr
		}
	}
	return true, firstErr
}

// watch observes one Ready dependent until teardown. A crash is reported as
// an event; it escalates to foreground termination only under failTogether,
// and triggers a restart (Failed -> Starting) only when the spec allows it.
func (s *Supervisor) watch(svc *service) {
	name := svc.spec.Name
	for {
		select {
		case <-s.downCh:
			return
		case <-svc.child.ExitCh():
			if svc.child.StopRequested() {
				return
			}
			snap := svc.child.Snapshot()
			cerr := &DependencyCrashError{Service: name, ExitErr: snap.ExitErr}
			metrics.IncStop(name)
			s.setState(svc, StateFailed)
			s.logger.Warn("dependency exited unexpectedly", "service", name, "code", snap.ExitCode)
			s.emit(Event{Type: EventDependencyCrash, Service: name, PID: snap.PID, ExitCode: snap.ExitCode, Err: cerr, OccurredAt: time.Now()})
			if s.opts.FailTogether {
				select {
				case s.crashCh <- cerr:
				default:
				}
				return
			}
			if !svc.spec.Restart {
				return
			}
			// Teardown may have begun between the exit and here; a restart
			// now would outlive Run.
			select {
			case <-s.downCh:
				return
			default:
			}
			svc.child.IncRestarts()
			metrics.IncRestart(name)
			s.setState(svc, StateStarting)
			s.emit(Event{Type: EventRestart, Service: name, OccurredAt: time.Now()})
			if err := svc.child.Start(s.envM.Merge(svc.spec.Env)); err != nil {
				s.logger.Error("dependency restart failed", "service", name, "error", err)
				s.setState(svc, StateFailed)
				return
			}
			metrics.IncStart(name)
			// Teardown walks the started children once; a child launched
			// after that walk must be stopped here or it survives Run.
			select {
			case <-s.downCh:
				_ = svc.child.Stop(s.opts.GracePeriod)
				return
			default:
			}
			if serr := s.waitReady(s.downCh, svc); serr != nil {
				s.logger.Error("restarted dependency never became ready", "service", name, "error", serr)
				s.setState(svc, StateFailed)
				return
			}
			s.setState(svc, StateReady)
			s.logger.Info("dependency restarted", "service", name, "pid", svc.child.PID())
		}
	}
}

// teardown stops every started dependent in reverse start order: SIGTERM to
// the process group, grace period, then SIGKILL. It runs at most once, and
// does not return until every watcher has finished, so no watcher-driven
// restart can leave a child running past Run.
func (s *Supervisor) teardown() {
	s.downOnce.Do(func() { close(s.downCh) })
	s.mu.Lock()
	started := make([]*service, len(s.started))
	copy(started, s.started)
	s.mu.Unlock()
	for i := len(started) - 1; i >= 0; i-- {
		svc := started[i]
		if svc.child.Alive() {
			s.logger.Info("stopping dependency", "service", svc.spec.Name)
			_ = svc.child.Stop(s.opts.GracePeriod)
			metrics.IncStop(svc.spec.Name)
		}
		s.setState(svc, StateStopped)
	}
	s.watchWG.Wait()
}

// setState applies a transition, appends it to the log, and fans it out to
// metrics, the event channel, and history sinks.
func (s *Supervisor) setState(svc *service, to State) {
	s.mu.Lock()
	from := svc.state
	// Stopped is terminal; a watcher racing teardown must not re-open it.
	if from == to || from == StateStopped {
		s.mu.Unlock()
		return
	}
	svc.state = to
	tr := Transition{Service: svc.spec.Name, From: from, To: to, At: time.Now()}
	s.transitions = append(s.transitions, tr)
	s.mu.Unlock()

	metrics.RecordStateTransition(svc.spec.Name, from.String(), to.String())
	metrics.SetCurrentState(svc.spec.Name, from.String(), false)
	metrics.SetCurrentState(svc.spec.Name, to.String(), true)
	s.emit(Event{Type: EventStateChange, Service: svc.spec.Name, From: from, To: to, PID: svc.child.PID(), OccurredAt: tr.At})
	s.record(history.Event{
		Service:    svc.spec.Name,
		From:       from.String(),
		To:         to.String(),
		PID:        svc.child.PID(),
		ExitCode:   svc.child.Snapshot().ExitCode,
		OccurredAt: tr.At.UTC(),
	})
}

func (s *Supervisor) markStarted(svc *service) {
	s.mu.Lock()
	s.started = append(s.started, svc)
	s.mu.Unlock()
}

func (s *Supervisor) timeoutFor(svc *service) time.Duration {
	if svc.spec.StartupTimeout > 0 {
		return svc.spec.StartupTimeout
	}
	return s.opts.DefaultStartupTimeout
}

func (s *Supervisor) emit(e Event) {
	select {
	case s.events <- e:
	default:
	}
}

func (s *Supervisor) record(e history.Event) {
	for _, sink := range s.sinks {
		if err := sink.Send(context.Background(), e); err != nil {
			s.logger.Warn("history sink send failed", "error", err)
		}
	}
}

func exitedBeforeReady(svc *service) error {
	if err := svc.child.Snapshot().ExitErr; err != nil {
		return err
	}
	return errors.New("exited before ready")
}

// Transitions returns a copy of the ordered state transition log.
func (s *Supervisor) Transitions() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transition, len(s.transitions))
	copy(out, s.transitions)
	return out
}

// Statuses returns the current view of every declared dependent, in
// declaration order.
func (s *Supervisor) Statuses() []ServiceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ServiceStatus, 0, len(s.services))
	for _, svc := range s.services {
		st := svc.status()
		st.State = svc.state
		out = append(out, st)
	}
	return out
}

// ForegroundStatus returns the foreground child's current snapshot.
func (s *Supervisor) ForegroundStatus() process.Status {
	return s.fg.Snapshot()
}

// PIDs enumerates live children (dependents plus foreground) for usage
// sampling.
func (s *Supervisor) PIDs() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.services)+1)
	for _, svc := range s.services {
		if svc.child.Alive() {
			out[svc.spec.Name] = svc.child.PID()
		}
	}
	if s.fg.Alive() {
		out[s.fgSpec.Name] = s.fg.PID()
	}
	return out
}
