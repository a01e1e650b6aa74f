package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forerun.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const fullConfig = `
use_os_env = true
env = ["GLOBAL=1"]

[policy]
on_startup_timeout = "proceed_anyway"
fail_together = true
poll_interval = "100ms"
grace_period = "3s"
default_startup_timeout = "20s"

[log]
level = "debug"
format = "json"
dir = "/var/log/forerun"
max_size_mb = 5

[history]
dsn = "sqlite://:memory:"

[server]
enabled = true
listen = "127.0.0.1:8917"

[foreground]
name = "app"
command = "python app.py"
workdir = "/srv/app"

[[services]]
name = "db"
command = "postgres -D /data"
startup_timeout = "30s"
restart = true

[[services.probes]]
type = "tcp"
address = "127.0.0.1:5432"

[[services]]
name = "cache"
command = "redis-server"

[services.log]
dir = "/var/log/cache"
`

func TestLoadFullConfig(t *testing.T) {
	fc, err := Load(writeConfig(t, fullConfig))
	if err != nil {
		t.Fatal(err)
	}
	if fc.Policy.OnStartupTimeout != "proceed_anyway" || !fc.Policy.FailTogether {
		t.Fatalf("policy=%+v", fc.Policy)
	}
	if fc.Policy.PollInterval != 100*time.Millisecond {
		t.Fatalf("poll_interval=%v", fc.Policy.PollInterval)
	}
	if fc.Policy.GracePeriod != 3*time.Second {
		t.Fatalf("grace_period=%v", fc.Policy.GracePeriod)
	}
	if fc.History.DSN != "sqlite://:memory:" {
		t.Fatalf("history=%+v", fc.History)
	}
	if !fc.Server.Enabled || fc.Server.Listen != "127.0.0.1:8917" {
		t.Fatalf("server=%+v", fc.Server)
	}
}

func TestDependentSpecs(t *testing.T) {
	fc, err := Load(writeConfig(t, fullConfig))
	if err != nil {
		t.Fatal(err)
	}
	specs, err := fc.DependentSpecs()
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 2 {
		t.Fatalf("specs=%d", len(specs))
	}
	db := specs[0]
	if db.Name != "db" || db.StartupTimeout != 30*time.Second || !db.Restart {
		t.Fatalf("db=%+v", db)
	}
	if len(db.ProbeConfigs) != 1 || db.ProbeConfigs[0].Type != "tcp" {
		t.Fatalf("db probes=%+v", db.ProbeConfigs)
	}
	// top-level [log] provides capture defaults, per-service overrides win
	if db.Log.Dir != "/var/log/forerun" || db.Log.MaxSizeMB != 5 {
		t.Fatalf("db log=%+v", db.Log)
	}
	if specs[1].Log.Dir != "/var/log/cache" {
		t.Fatalf("cache log=%+v", specs[1].Log)
	}
}

func TestForegroundSpec(t *testing.T) {
	fc, err := Load(writeConfig(t, fullConfig))
	if err != nil {
		t.Fatal(err)
	}
	fg := fc.ForegroundSpec()
	if fg.Name != "app" || fg.Command != "python app.py" || fg.WorkDir != "/srv/app" {
		t.Fatalf("fg=%+v", fg)
	}
	if !fg.Foreground {
		t.Fatal("foreground flag not set")
	}
}

func TestLoadRejectsMissingForeground(t *testing.T) {
	if _, err := Load(writeConfig(t, `[[services]]
name = "a"
command = "true"
`)); err == nil {
		t.Fatal("config without foreground accepted")
	}
}

func TestDependentSpecsValidation(t *testing.T) {
	fc := &FileConfig{
		Services:   []ServiceConfig{{Command: "true"}},
		Foreground: &ForegroundConfig{Command: "true"},
	}
	if _, err := fc.DependentSpecs(); err == nil {
		t.Fatal("unnamed service accepted")
	}
	fc.Services = []ServiceConfig{{Name: "a"}}
	if _, err := fc.DependentSpecs(); err == nil || !strings.Contains(err.Error(), "a") {
		t.Fatalf("err=%v", err)
	}
}

func TestGlobalEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "app.env")
	if err := os.WriteFile(envFile, []byte("# comment\nFROM_FILE=file\nSHARED=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fc := &FileConfig{
		UseOSEnv: false,
		EnvFiles: []string{envFile},
		Env:      []string{"SHARED=toplevel", "EXTRA=1"},
	}
	e, err := fc.GlobalEnv()
	if err != nil {
		t.Fatal(err)
	}
	m := make(map[string]string)
	for _, kv := range e.Merge(nil) {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	if m["FROM_FILE"] != "file" {
		t.Fatalf("FROM_FILE=%q", m["FROM_FILE"])
	}
	if m["SHARED"] != "toplevel" {
		t.Fatalf("top-level env must override files: SHARED=%q", m["SHARED"])
	}
	if len(m) != 3 {
		t.Fatalf("unexpected env: %v", m)
	}
}

func TestGlobalEnvMissingFile(t *testing.T) {
	fc := &FileConfig{EnvFiles: []string{"/nonexistent/forerun.env"}}
	if _, err := fc.GlobalEnv(); err == nil {
		t.Fatal("missing env file accepted")
	}
}
