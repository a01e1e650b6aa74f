package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	runFlags := &RunFlags{}
	validateFlags := &ValidateFlags{}
	statusFlags := &StatusFlags{}

	root := &cobra.Command{
		Use:   "forerun",
		Short: "Run a foreground process behind its dependencies",
		Long: `Forerun starts the dependent services a program needs, waits until their
readiness probes pass, runs the program in the foreground, and propagates
its exit code unchanged. When the program exits, the dependents are torn
down in reverse start order.

Examples:
  forerun run --config=forerun.toml
  forerun validate --config=forerun.toml
  forerun status --api-url=http://127.0.0.1:8917`,
	}

	root.AddCommand(
		createRunCommand(runFlags),
		createValidateCommand(validateFlags),
		createStatusCommand(statusFlags),
		createVersionCommand(),
	)
	return root
}

func createRunCommand(f *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start dependents, run the foreground, propagate its exit code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupervisor(*f)
		},
	}
	cmd.Flags().StringVar(&f.ConfigPath, "config", "forerun.toml", "path to TOML config file")
	cmd.Flags().StringVar(&f.Listen, "listen", "", "status API listen address (overrides [server].listen)")
	cmd.Flags().BoolVar(&f.NoServer, "no-server", false, "disable the status API")
	return cmd
}

func createValidateCommand(f *ValidateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(*f)
		},
	}
	cmd.Flags().StringVar(&f.ConfigPath, "config", "forerun.toml", "path to TOML config file")
	return cmd
}

func createStatusCommand(f *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running supervisor's status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(*f)
		},
	}
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "http://127.0.0.1:8917", "status API base URL")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	cmd.Flags().BoolVar(&f.Transitions, "transitions", false, "print the state transition log")
	cmd.Flags().BoolVar(&f.Watch, "watch", false, "poll continuously")
	cmd.Flags().DurationVar(&f.Interval, "interval", 2*time.Second, "watch interval")
	return cmd
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the forerun version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("forerun", version)
		},
	}
}
