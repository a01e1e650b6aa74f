package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okvern/forerun/internal/config"
	"github.com/okvern/forerun/internal/history"
	"github.com/okvern/forerun/internal/history/factory"
	"github.com/okvern/forerun/internal/metrics"
	"github.com/okvern/forerun/internal/server"
	"github.com/okvern/forerun/internal/supervisor"
	"github.com/okvern/forerun/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
)

// runSupervisor is the main operation: start the dependents, supervise the
// foreground, and exit with the foreground's own exit code. It does not
// return on success.
func runSupervisor(f RunFlags) error {
	fc, err := config.Load(f.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := fc.SlogConfig().NewSlogger()
	slog.SetDefault(logger)

	specs, err := fc.DependentSpecs()
	if err != nil {
		return err
	}
	genv, err := fc.GlobalEnv()
	if err != nil {
		return err
	}

	opts := supervisor.Options{Logger: logger, Env: genv}
	if fc.Policy != nil {
		pol, err := supervisor.ParsePolicy(fc.Policy.OnStartupTimeout)
		if err != nil {
			return err
		}
		opts.OnStartupTimeout = pol
		opts.FailTogether = fc.Policy.FailTogether
		opts.PollInterval = fc.Policy.PollInterval
		opts.GracePeriod = fc.Policy.GracePeriod
		opts.DefaultStartupTimeout = fc.Policy.DefaultStartupTimeout
	}

	var sinks []history.Sink
	if fc.History != nil && fc.History.DSN != "" {
		sink, err := factory.NewSinkFromDSN(fc.History.DSN)
		if err != nil {
			return fmt.Errorf("history sink: %w", err)
		}
		sinks = append(sinks, sink)
		opts.Sinks = sinks
	}

	sup, err := supervisor.New(specs, fc.ForegroundSpec(), opts)
	if err != nil {
		return err
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Warn("metrics registration failed", "error", err)
	}

	// Status API plus per-child usage sampling, when enabled.
	listen := ""
	if fc.Server != nil && fc.Server.Enabled {
		listen = fc.Server.Listen
	}
	if f.Listen != "" {
		listen = f.Listen
	}
	if f.NoServer {
		listen = ""
	}
	var usage *metrics.UsageCollector
	if listen != "" {
		usage = metrics.NewUsageCollector(0, sup.PIDs)
		if err := usage.Register(prometheus.DefaultRegisterer); err != nil {
			logger.Warn("usage metrics registration failed", "error", err)
		}
		usage.Start()
		defer usage.Stop()
		srv := server.NewServer(listen, "", sup, usage)
		defer func() { _ = srv.Close() }()
		logger.Info("status api listening", "addr", listen)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := sup.Run(ctx)
	for _, sink := range sinks {
		if c, ok := sink.(io.Closer); ok {
			_ = c.Close()
		}
	}
	if res.Err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "forerun:", res.Err)
	}
	os.Exit(res.Code)
	return nil
}

// validateConfig loads the config, materializes specs and probes, and prints
// a summary without starting anything.
func validateConfig(f ValidateFlags) error {
	fc, err := config.Load(f.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	specs, err := fc.DependentSpecs()
	if err != nil {
		return err
	}
	if _, err := fc.GlobalEnv(); err != nil {
		return err
	}
	for _, sp := range specs {
		if _, err := sp.BuildProbes(); err != nil {
			return err
		}
	}
	if fc.Policy != nil {
		if _, err := supervisor.ParsePolicy(fc.Policy.OnStartupTimeout); err != nil {
			return err
		}
	}
	fmt.Printf("ok: %d dependent service(s), foreground %q\n", len(specs), fc.Foreground.Command)
	for _, sp := range specs {
		probes := "none"
		if n := len(sp.ProbeConfigs); n > 0 {
			probes = fmt.Sprintf("%d probe(s)", n)
		}
		fmt.Printf("  %-20s %s\n", sp.Name, probes)
	}
	return nil
}

// showStatus queries a running supervisor's status API.
func showStatus(f StatusFlags) error {
	c := client.New(client.Config{BaseURL: f.APIUrl, Timeout: f.APITimeout})
	ctx := context.Background()
	for {
		if f.Transitions {
			trs, err := c.Transitions(ctx)
			if err != nil {
				return err
			}
			printJSON(trs)
		} else {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			printJSON(st)
		}
		if !f.Watch {
			return nil
		}
		time.Sleep(f.Interval)
	}
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(b))
}
