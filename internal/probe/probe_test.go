package probe

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
)

func TestFileProbe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ready")

	p := FileProbe{Path: path}
	if ok, err := p.Ready(); err != nil || ok {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if ok, err := p.Ready(); err != nil || !ok {
		t.Fatalf("existing file: ok=%v err=%v", ok, err)
	}
	if got := p.Describe(); got != "file:"+path {
		t.Fatalf("describe=%q", got)
	}
}

func TestTCPProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()

	p := TCPProbe{Address: addr}
	if ok, err := p.Ready(); err != nil || !ok {
		t.Fatalf("listening: ok=%v err=%v", ok, err)
	}
	_ = ln.Close()
	if ok, err := p.Ready(); err != nil || ok {
		t.Fatalf("closed: ok=%v err=%v", ok, err)
	}
}

func TestPIDFileProbe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.pid")

	p := PIDFileProbe{Path: path}
	if ok, err := p.Ready(); err != nil || ok {
		t.Fatalf("missing pidfile: ok=%v err=%v", ok, err)
	}
	// our own pid is certainly alive
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if ok, err := p.Ready(); err != nil || !ok {
		t.Fatalf("live pid: ok=%v err=%v", ok, err)
	}
	// a stale pidfile must not count as ready
	if err := os.WriteFile(path, []byte("999999999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if ok, _ := p.Ready(); ok {
		t.Fatal("stale pid reported ready")
	}
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Ready(); err == nil {
		t.Fatal("garbage pidfile accepted")
	}
}

func TestCommandProbe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell commands")
	}
	ok, err := (CommandProbe{Command: "true"}).Ready()
	if err != nil || !ok {
		t.Fatalf("true: ok=%v err=%v", ok, err)
	}
	// non-zero exit means not ready, not an error
	ok, err = (CommandProbe{Command: "false"}).Ready()
	if err != nil || ok {
		t.Fatalf("false: ok=%v err=%v", ok, err)
	}
	// missing binary is a real probe error
	ok, err = (CommandProbe{Command: "/nonexistent/forerun-probe"}).Ready()
	if err == nil || ok {
		t.Fatalf("missing binary: ok=%v err=%v", ok, err)
	}
}

func TestCommandProbeShellMetachars(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell commands")
	}
	ok, err := (CommandProbe{Command: "test -n \"$HOME\" && true"}).Ready()
	if err != nil {
		t.Fatalf("shell probe: %v", err)
	}
	if !ok {
		t.Fatal("shell probe not ready")
	}
}
