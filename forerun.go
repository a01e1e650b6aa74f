package forerun

import (
	"context"
	"net/http"

	cfg "github.com/okvern/forerun/internal/config"
	"github.com/okvern/forerun/internal/env"
	"github.com/okvern/forerun/internal/history"
	"github.com/okvern/forerun/internal/history/factory"
	"github.com/okvern/forerun/internal/metrics"
	"github.com/okvern/forerun/internal/process"
	iapi "github.com/okvern/forerun/internal/server"
	"github.com/okvern/forerun/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Options = supervisor.Options

type Result = supervisor.Result

type ProcessSpec = process.Spec

type ProbeConfig = process.ProbeConfig

type State = supervisor.State

type Transition = supervisor.Transition

type ServiceStatus = supervisor.ServiceStatus

type Event = supervisor.Event

type Policy = supervisor.Policy

const (
	FailFast      = supervisor.FailFast
	ProceedAnyway = supervisor.ProceedAnyway
)

// SetupExitCode is returned when supervision fails before the foreground
// launches. It is never produced by a foreground that actually ran.
const SetupExitCode = supervisor.SetupExitCode

type DependencyStartupError = supervisor.DependencyStartupError

type DependencyCrashError = supervisor.DependencyCrashError

type ForegroundLaunchError = supervisor.ForegroundLaunchError

type HistorySink = history.Sink

// Supervisor is a thin facade over internal/supervisor.Supervisor for
// embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

// NewFromConfig builds a Supervisor from a TOML config file.
func NewFromConfig(path string) (*Supervisor, error) {
	fc, err := cfg.Load(path)
	if err != nil {
		return nil, err
	}
	specs, err := fc.DependentSpecs()
	if err != nil {
		return nil, err
	}
	genv, err := fc.GlobalEnv()
	if err != nil {
		return nil, err
	}
	opts := Options{Env: genv, Logger: fc.SlogConfig().NewSlogger()}
	if fc.Policy != nil {
		pol, err := supervisor.ParsePolicy(fc.Policy.OnStartupTimeout)
		if err != nil {
			return nil, err
		}
		opts.OnStartupTimeout = pol
		opts.FailTogether = fc.Policy.FailTogether
		opts.PollInterval = fc.Policy.PollInterval
		opts.GracePeriod = fc.Policy.GracePeriod
		opts.DefaultStartupTimeout = fc.Policy.DefaultStartupTimeout
	}
	if fc.History != nil && fc.History.DSN != "" {
		sink, err := factory.NewSinkFromDSN(fc.History.DSN)
		if err != nil {
			return nil, err
		}
		opts.Sinks = append(opts.Sinks, sink)
	}
	inner, err := supervisor.New(specs, fc.ForegroundSpec(), opts)
	if err != nil {
		return nil, err
	}
	return &Supervisor{inner: inner}, nil
}

// NewSupervisor builds a Supervisor from in-process specs, for embedding.
func NewSupervisor(specs []ProcessSpec, foreground ProcessSpec, opts Options) (*Supervisor, error) {
	inner, err := supervisor.New(specs, foreground, opts)
	if err != nil {
		return nil, err
	}
	return &Supervisor{inner: inner}, nil
}

func (s *Supervisor) Run(ctx context.Context) Result { return s.inner.Run(ctx) }
func (s *Supervisor) Events() <-chan Event           { return s.inner.Events() }
func (s *Supervisor) Transitions() []Transition      { return s.inner.Transitions() }
func (s *Supervisor) Statuses() []ServiceStatus      { return s.inner.Statuses() }
func (s *Supervisor) PIDs() map[string]int           { return s.inner.PIDs() }

// NewEnv builds an environment composer for embedded use.
func NewEnv() *env.Env { return env.New() }

// NewHistorySink builds a transition sink from a DSN
// (sqlite://, postgres://, clickhouse://).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// NewHTTPServer starts the read-only status API for a running supervisor.
func NewHTTPServer(addr, basePath string, s *Supervisor) *http.Server {
	return iapi.NewServer(addr, basePath, s.inner, nil)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
