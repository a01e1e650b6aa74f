package process

import (
	"strings"
	"testing"
	"time"
)

func TestBuildCommandPlain(t *testing.T) {
	s := Spec{Name: "t", Command: "echo hello world"}
	cmd := s.BuildCommand()
	if len(cmd.Args) != 3 || cmd.Args[1] != "hello" || cmd.Args[2] != "world" {
		t.Fatalf("args=%v", cmd.Args)
	}
	if strings.Contains(cmd.Path, "sh") {
		t.Fatalf("plain command must not use a shell: %s", cmd.Path)
	}
}

func TestBuildCommandMetachars(t *testing.T) {
	s := Spec{Name: "t", Command: "echo hi && echo there"}
	cmd := s.BuildCommand()
	if cmd.Args[0] != "/bin/sh" || cmd.Args[1] != "-c" {
		t.Fatalf("args=%v", cmd.Args)
	}
	if cmd.Args[2] != "echo hi && echo there" {
		t.Fatalf("shell arg=%q", cmd.Args[2])
	}
}

func TestBuildCommandExplicitShell(t *testing.T) {
	s := Spec{Name: "t", Command: "sh -c 'sleep 1; echo done'"}
	cmd := s.BuildCommand()
	if cmd.Args[0] != "/bin/sh" || cmd.Args[1] != "-c" {
		t.Fatalf("args=%v", cmd.Args)
	}
	// no double wrapping, quotes stripped
	if cmd.Args[2] != "sleep 1; echo done" {
		t.Fatalf("shell arg=%q", cmd.Args[2])
	}
}

func TestParseExplicitShell(t *testing.T) {
	cases := []struct {
		in    string
		after string
		ok    bool
	}{
		{"sh -c 'echo hi'", "echo hi", true},
		{"/bin/sh -c \"echo hi\"", "echo hi", true},
		{"sh -c echo", "echo", true},
		{"bash -c 'echo hi'", "", false},
		{"echo sh -c hi", "", false},
	}
	for _, c := range cases {
		_, after, ok := parseExplicitShell(c.in)
		if ok != c.ok || after != c.after {
			t.Fatalf("%q: after=%q ok=%v", c.in, after, ok)
		}
	}
}

func TestProbeConfigBuild(t *testing.T) {
	if _, err := (ProbeConfig{Type: "command", Command: "true"}).Build("svc"); err != nil {
		t.Fatalf("command: %v", err)
	}
	if _, err := (ProbeConfig{Type: "tcp", Address: "127.0.0.1:1", Timeout: time.Second}).Build("svc"); err != nil {
		t.Fatalf("tcp: %v", err)
	}
	if _, err := (ProbeConfig{Type: "file", Path: "/tmp/x"}).Build("svc"); err != nil {
		t.Fatalf("file: %v", err)
	}
	if _, err := (ProbeConfig{Type: "pidfile", Path: "/tmp/x.pid"}).Build("svc"); err != nil {
		t.Fatalf("pidfile: %v", err)
	}
	for _, pc := range []ProbeConfig{
		{Type: "command"},
		{Type: "tcp"},
		{Type: "file"},
		{Type: "pidfile"},
		{Type: "http"},
	} {
		if _, err := pc.Build("svc"); err == nil {
			t.Fatalf("expected error for %+v", pc)
		}
	}
}

func TestBuildProbes(t *testing.T) {
	s := Spec{
		Name: "db",
		ProbeConfigs: []ProbeConfig{
			{Type: "tcp", Address: "127.0.0.1:5432"},
			{Type: "file", Path: "/tmp/db.ready"},
		},
	}
	probes, err := s.BuildProbes()
	if err != nil {
		t.Fatal(err)
	}
	if len(probes) != 2 {
		t.Fatalf("probes=%d", len(probes))
	}
	// no declaration means no probes
	none := Spec{Name: "x"}
	probes, err = none.BuildProbes()
	if err != nil || len(probes) != 0 {
		t.Fatalf("probes=%v err=%v", probes, err)
	}
}
