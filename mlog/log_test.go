package mlog

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	defer SetConfig(map[string]Level{"": LevelError})

	var b bytes.Buffer
	elog := slog.New(NewHandler(&b))

	SetConfig(map[string]Level{"": LevelError, "message": LevelDebug})
	New("message", elog).Debugx("resolving", errors.New("boom"), slog.String("charset", "koi8-r"))
	New("datetime", elog).Debug("not logged")
	New("datetime", elog).Error("logged")
	New("datetime", elog).Print("always")
	New("main", elog).With(slog.String("file", "x.eml")).Printx("config error", errors.New("bad"))
	New("main", elog).With(slog.String("file", "x.eml")).Info("not logged")

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	exp := []string{
		"debug: resolving (pkg: message; err: boom; charset: koi8-r)",
		"error: logged (pkg: datetime)",
		"print: always (pkg: datetime)",
		`print: "config error" (pkg: main; file: x.eml; err: bad)`,
	}
	if strings.Join(lines, "\n") != strings.Join(exp, "\n") {
		t.Fatalf("got:\n%s\nexpected:\n%s", b.String(), strings.Join(exp, "\n"))
	}
}

func TestLogfmt(t *testing.T) {
	Logfmt = true
	defer func() { Logfmt = false }()

	var b bytes.Buffer
	New("message", slog.New(NewHandler(&b))).Error("bad part", slog.String("boundary", "a b"))
	exp := `l=error m="bad part" pkg=message boundary="a b"` + "\n"
	if b.String() != exp {
		t.Fatalf("got %q, expected %q", b.String(), exp)
	}
}

func TestDefaultHandler(t *testing.T) {
	h1, ok1 := New("message", nil).Handler().(*handler)
	h2, ok2 := New("main", nil).Handler().(*handler)
	if !ok1 || !ok2 {
		t.Fatalf("default logger does not use mlog handler")
	}
	if h1.mu != h2.mu {
		t.Fatalf("default loggers do not share a lock")
	}
	if h1.pkg != "message" || h2.pkg != "main" {
		t.Fatalf("got pkgs %q and %q, expected message and main", h1.pkg, h2.pkg)
	}
}
