package logger

import (
	"log/slog"
	"path/filepath"
	"testing"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

func TestNewSloggerLevels(t *testing.T) {
	debug := Config{Slog: SlogConfig{Level: "debug"}}.NewSlogger()
	if !debug.Enabled(nil, slog.LevelDebug) {
		t.Fatal("debug level not enabled")
	}
	warn := Config{Slog: SlogConfig{Level: "warn"}}.NewSlogger()
	if warn.Enabled(nil, slog.LevelInfo) {
		t.Fatal("info enabled at warn level")
	}
	// unknown level defaults to info
	def := Config{Slog: SlogConfig{Level: "bogus"}}.NewSlogger()
	if !def.Enabled(nil, slog.LevelInfo) || def.Enabled(nil, slog.LevelDebug) {
		t.Fatal("default level must be info")
	}
}

func TestWritersDirConvention(t *testing.T) {
	dir := t.TempDir()
	c := FileConfig{Dir: dir}
	outW, errW, err := c.Writers("db")
	if err != nil {
		t.Fatal(err)
	}
	lo, ok := outW.(*lj.Logger)
	if !ok {
		t.Fatalf("stdout writer: %T", outW)
	}
	if lo.Filename != filepath.Join(dir, "db.stdout.log") {
		t.Fatalf("stdout=%q", lo.Filename)
	}
	le := errW.(*lj.Logger)
	if le.Filename != filepath.Join(dir, "db.stderr.log") {
		t.Fatalf("stderr=%q", le.Filename)
	}
	if lo.MaxSize != DefaultMaxSizeMB || lo.MaxBackups != DefaultMaxBackups || lo.MaxAge != DefaultMaxAgeDays {
		t.Fatalf("rotation defaults: %+v", lo)
	}
}

func TestWritersExplicitPathsWin(t *testing.T) {
	dir := t.TempDir()
	c := FileConfig{
		Dir:        dir,
		StdoutPath: filepath.Join(dir, "custom.out"),
		MaxSizeMB:  42,
	}
	outW, errW, err := c.Writers("svc")
	if err != nil {
		t.Fatal(err)
	}
	lo := outW.(*lj.Logger)
	if lo.Filename != filepath.Join(dir, "custom.out") {
		t.Fatalf("stdout=%q", lo.Filename)
	}
	if lo.MaxSize != 42 {
		t.Fatalf("max size=%d", lo.MaxSize)
	}
	le := errW.(*lj.Logger)
	if le.Filename != filepath.Join(dir, "svc.stderr.log") {
		t.Fatalf("stderr=%q", le.Filename)
	}
}

func TestWritersNoneConfigured(t *testing.T) {
	outW, errW, err := FileConfig{}.Writers("svc")
	if err != nil {
		t.Fatal(err)
	}
	if outW != nil || errW != nil {
		t.Fatal("writers without any destination")
	}
}
