package forerun

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func requireUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func TestFacadeRunPropagatesExitCode(t *testing.T) {
	requireUnix(t)
	deps := []ProcessSpec{{Name: "dep", Command: "sleep 30"}}
	fg := ProcessSpec{Name: "fg", Command: "sh -c 'exit 4'"}
	s, err := NewSupervisor(deps, fg, Options{GracePeriod: time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res := s.Run(context.Background())
	if res.Code != 4 {
		t.Fatalf("code=%d, want 4", res.Code)
	}
	if len(s.Transitions()) == 0 {
		t.Fatal("empty transition log")
	}
}

func TestFacadeNewFromConfig(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	cfg := filepath.Join(dir, "forerun.toml")
	body := `use_os_env = true

[policy]
grace_period = "1s"

[foreground]
command = "sh -c 'exit 0'"

[[services]]
name = "dep"
command = "sleep 30"
`
	if err := os.WriteFile(cfg, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	res := s.Run(context.Background())
	if res.Code != 0 {
		t.Fatalf("code=%d err=%v", res.Code, res.Err)
	}
}

func TestFacadeHTTPServer(t *testing.T) {
	requireUnix(t)
	s, err := NewSupervisor(nil, ProcessSpec{Name: "fg", Command: "sleep 5"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	srv := NewHTTPServer("127.0.0.1:0", "", s)
	defer func() { _ = srv.Close() }()
	if srv == nil {
		t.Fatal("nil server")
	}
}

func TestRegisterMetrics(t *testing.T) {
	if err := RegisterMetrics(prometheus.NewRegistry()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("register default: %v", err)
	}
}

func TestHistorySinkFactory(t *testing.T) {
	sink, err := NewHistorySink("sqlite://:memory:")
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := sink.(interface{ Close() error }); ok {
		defer func() { _ = c.Close() }()
	}
}
