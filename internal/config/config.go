package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okvern/forerun/internal/env"
	"github.com/okvern/forerun/internal/logger"
	"github.com/okvern/forerun/internal/process"
	"github.com/spf13/viper"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Env        []string          `toml:"env" mapstructure:"env"`
	EnvFiles   []string          `toml:"env_files" mapstructure:"env_files"`
	UseOSEnv   bool              `toml:"use_os_env" mapstructure:"use_os_env"`
	Policy     *PolicyConfig     `toml:"policy" mapstructure:"policy"`
	Log        *LogConfig        `toml:"log" mapstructure:"log"`
	History    *HistoryConfig    `toml:"history" mapstructure:"history"`
	Server     *ServerConfig     `toml:"server" mapstructure:"server"`
	Services   []ServiceConfig   `toml:"services" mapstructure:"services"`
	Foreground *ForegroundConfig `toml:"foreground" mapstructure:"foreground"`
}

// PolicyConfig tunes startup and teardown behavior.
type PolicyConfig struct {
	OnStartupTimeout      string        `toml:"on_startup_timeout" mapstructure:"on_startup_timeout"`
	FailTogether          bool          `toml:"fail_together" mapstructure:"fail_together"`
	PollInterval          time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	GracePeriod           time.Duration `toml:"grace_period" mapstructure:"grace_period"`
	DefaultStartupTimeout time.Duration `toml:"default_startup_timeout" mapstructure:"default_startup_timeout"`
}

// LogConfig covers both the supervisor's own logger and default capture
// rotation for service output.
type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Format     string `toml:"format" mapstructure:"format"`
	Color      bool   `toml:"color" mapstructure:"color"`
	Dir        string `toml:"dir" mapstructure:"dir"`
	Stdout     string `toml:"stdout" mapstructure:"stdout"`
	Stderr     string `toml:"stderr" mapstructure:"stderr"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// HistoryConfig selects a transition history sink by DSN.
type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// ServerConfig enables the local status API.
type ServerConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

// ServiceConfig declares one dependent service.
type ServiceConfig struct {
	Name           string        `toml:"name" mapstructure:"name"`
	Command        string        `toml:"command" mapstructure:"command"`
	WorkDir        string        `toml:"workdir" mapstructure:"workdir"`
	Env            []string      `toml:"env" mapstructure:"env"`
	StartupTimeout time.Duration `toml:"startup_timeout" mapstructure:"startup_timeout"`
	Restart        bool          `toml:"restart" mapstructure:"restart"`
	Detached       bool          `toml:"detached" mapstructure:"detached"`
	Probes         []ProbeEntry  `toml:"probes" mapstructure:"probes"`
	Log            *LogConfig    `toml:"log" mapstructure:"log"`
}

// ForegroundConfig declares the foreground process.
type ForegroundConfig struct {
	Name    string   `toml:"name" mapstructure:"name"`
	Command string   `toml:"command" mapstructure:"command"`
	WorkDir string   `toml:"workdir" mapstructure:"workdir"`
	Env     []string `toml:"env" mapstructure:"env"`
}

// ProbeEntry is one readiness probe declaration.
type ProbeEntry struct {
	Type    string        `toml:"type" mapstructure:"type"`
	Command string        `toml:"command" mapstructure:"command"`
	Address string        `toml:"address" mapstructure:"address"`
	Path    string        `toml:"path" mapstructure:"path"`
	Timeout time.Duration `toml:"timeout" mapstructure:"timeout"`
}

// Load parses a TOML config file.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}
	if fc.Foreground == nil || fc.Foreground.Command == "" {
		return nil, errors.New("config: foreground command required")
	}
	return &fc, nil
}

// GlobalEnv composes the base environment for all children.
// Precedence: OS env (when use_os_env), then env_files in order, then the
// top-level env list.
func (fc *FileConfig) GlobalEnv() (*env.Env, error) {
	e := env.New()
	if fc.UseOSEnv {
		e.FromOS()
	} else {
		e.EmptyBase()
	}
	for _, p := range fc.EnvFiles {
		pairs, err := loadEnvFile(p)
		if err != nil {
			return nil, err
		}
		for k, v := range pairs {
			e.Set(k, v)
		}
	}
	e.SetAll(fc.Env)
	return e, nil
}

// loadEnvFile parses a simple .env file with KEY=VALUE lines (no export, no
// quotes). Lines starting with # are ignored.
func loadEnvFile(path string) (map[string]string, error) {
	clean := filepath.Clean(path)
	b, err := os.ReadFile(clean)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '='); i >= 0 {
			k := strings.TrimSpace(line[:i])
			v := strings.TrimSpace(line[i+1:])
			m[k] = v
		}
	}
	return m, nil
}

// DependentSpecs converts the [[services]] blocks to process specs, in
// declaration order (which is also the start order).
func (fc *FileConfig) DependentSpecs() ([]process.Spec, error) {
	out := make([]process.Spec, 0, len(fc.Services))
	for _, sc := range fc.Services {
		if sc.Name == "" {
			return nil, errors.New("config: service name required")
		}
		if sc.Command == "" {
			return nil, fmt.Errorf("config: service %s: command required", sc.Name)
		}
		probes := make([]process.ProbeConfig, 0, len(sc.Probes))
		for _, pe := range sc.Probes {
			probes = append(probes, process.ProbeConfig{
				Type:    pe.Type,
				Command: pe.Command,
				Address: pe.Address,
				Path:    pe.Path,
				Timeout: pe.Timeout,
			})
		}
		out = append(out, process.Spec{
			Name:           sc.Name,
			Command:        sc.Command,
			WorkDir:        sc.WorkDir,
			Env:            sc.Env,
			StartupTimeout: sc.StartupTimeout,
			Restart:        sc.Restart,
			Detached:       sc.Detached,
			ProbeConfigs:   probes,
			Log:            fc.captureFor(sc.Log),
		})
	}
	return out, nil
}

// ForegroundSpec converts the [foreground] block. The foreground never
// captures output to files; it inherits the supervisor's stdio.
func (fc *FileConfig) ForegroundSpec() process.Spec {
	f := fc.Foreground
	return process.Spec{
		Name:       f.Name,
		Command:    f.Command,
		WorkDir:    f.WorkDir,
		Env:        f.Env,
		Foreground: true,
	}
}

// SlogConfig extracts the supervisor logger settings.
func (fc *FileConfig) SlogConfig() logger.Config {
	var c logger.Config
	if fc.Log != nil {
		c.Slog = logger.SlogConfig{Level: fc.Log.Level, Format: fc.Log.Format, Color: fc.Log.Color}
	}
	return c
}

// captureFor builds the per-service capture config: top-level [log] defaults
// overridden field by field by the service's own [services.log].
func (fc *FileConfig) captureFor(override *LogConfig) logger.FileConfig {
	var c logger.FileConfig
	if fc.Log != nil {
		c = fileCapture(*fc.Log)
	}
	if override != nil {
		o := fileCapture(*override)
		if o.Dir != "" {
			c.Dir = o.Dir
		}
		if o.StdoutPath != "" {
			c.StdoutPath = o.StdoutPath
		}
		if o.StderrPath != "" {
			c.StderrPath = o.StderrPath
		}
		if o.MaxSizeMB != 0 {
			c.MaxSizeMB = o.MaxSizeMB
		}
		if o.MaxBackups != 0 {
			c.MaxBackups = o.MaxBackups
		}
		if o.MaxAgeDays != 0 {
			c.MaxAgeDays = o.MaxAgeDays
		}
		if o.Compress {
			c.Compress = true
		}
	}
	return c
}

func fileCapture(lc LogConfig) logger.FileConfig {
	return logger.FileConfig{
		Dir:        lc.Dir,
		StdoutPath: lc.Stdout,
		StderrPath: lc.Stderr,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
		Compress:   lc.Compress,
	}
}
