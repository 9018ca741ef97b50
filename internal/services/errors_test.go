package services_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"archivist/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcode", "h264", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcode", "h264", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestDiagnosticPrefersStderr(t *testing.T) {
	exitErr := &services.ExitError{Binary: "ffmpeg", Code: 1, Stderr: "line one\nInvalid data found\n"}
	wrapped := services.Wrap(services.ErrExternalTool, "transcode", "run", "", exitErr)
	if got := services.Diagnostic(wrapped); got != "line one\nInvalid data found" {
		t.Fatalf("unexpected diagnostic %q", got)
	}
	if services.ExitCode(wrapped) != 1 {
		t.Fatalf("expected exit code 1, got %d", services.ExitCode(wrapped))
	}
	plain := errors.New("plain")
	if services.Diagnostic(plain) != "plain" {
		t.Fatalf("expected error text for plain error")
	}
	if services.ExitCode(plain) != -1 {
		t.Fatalf("expected -1 for non-exit error")
	}
}

func TestElideKeepsHeadAndTail(t *testing.T) {
	if got := services.Elide("short", 10); got != "short" {
		t.Fatalf("unexpected elide result %q", got)
	}
	value := "transcode playable: " + strings.Repeat("frame=1 fps=30\n", 100) + "Conversion failed!"
	got := services.Elide(value, 200)
	if n := utf8.RuneCountInString(got); n != 200 {
		t.Fatalf("expected 200 runes, got %d", n)
	}
	if !strings.HasPrefix(got, "transcode playable") || !strings.HasSuffix(got, "Conversion failed!") {
		t.Fatalf("expected label and final line kept, got %q", got)
	}
	if !strings.Contains(got, "…") {
		t.Fatalf("expected elision marker in %q", got)
	}
}

func TestExecRunnerKeepsBoundedStderrTail(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "noisy")
	body := "#!/bin/sh\ni=0\nwhile [ $i -lt 3000 ]; do echo \"frame=$i ñandú speed=1.0x\" >&2; i=$((i+1)); done\necho 'Conversion failed!' >&2\nexit 1\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	_, err := services.ExecRunner{}.Run(context.Background(), script)
	var exitErr *services.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if len(exitErr.Stderr) > 4096 {
		t.Fatalf("expected bounded stderr, got %d bytes", len(exitErr.Stderr))
	}
	if !utf8.ValidString(exitErr.Stderr) {
		t.Fatal("stderr tail split a rune")
	}
	if !strings.HasSuffix(strings.TrimSpace(exitErr.Stderr), "Conversion failed!") {
		t.Fatalf("expected final line retained, got %q", exitErr.Stderr)
	}
	if !strings.Contains(exitErr.Error(), "Conversion failed!") {
		t.Fatalf("expected final line in error text, got %q", exitErr.Error())
	}
}

func TestExecRunnerCapturesExitCode(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fail")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho 'bad input' >&2\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	_, err := services.ExecRunner{}.Run(context.Background(), script)
	var exitErr *services.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Fatalf("expected exit code 3, got %d", exitErr.Code)
	}
	if !strings.Contains(exitErr.Stderr, "bad input") {
		t.Fatalf("expected stderr capture, got %q", exitErr.Stderr)
	}
}
