package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"archivist/internal/services"
	"archivist/internal/testsupport"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "Noop")
	requireContains(t, out, "Software")
	requireContains(t, out, "No assets registered")
}

func TestRegisterListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	source := filepath.Join(env.baseDir, "incoming", "notes.txt")
	if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(source, []byte("notes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, _, err := runCLI(t, []string{
		"register", "--kind", "file", "--container", "box-9", "--name", "notes.txt",
		"--source", source, "--dispatch", "--wait",
		"--metadata", `{"shelf":"B4"}`,
	}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	requireContains(t, out, "Registered ")
	requireContains(t, out, "Job completed")
	id := strings.Fields(strings.TrimPrefix(strings.SplitN(out, "\n", 2)[0], "Registered "))[0]

	out, _, err = runCLI(t, []string{"assets", "list", "--container", "box-9"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("assets list: %v", err)
	}
	requireContains(t, out, id)
	requireContains(t, out, "Completed")

	out, _, err = runCLI(t, []string{"assets", "show", id}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("assets show: %v", err)
	}
	requireContains(t, out, "Container:   box-9")
	requireContains(t, out, "Status:      Completed")

	out, _, err = runCLI(t, []string{"assets", "list", "--status", "bogus"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatalf("expected invalid status to fail, got %q", out)
	}
}

func TestErrorsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"errors", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("errors list: %v", err)
	}
	requireContains(t, out, "No errors recorded")
}

func TestDispatchPendingReportsMetadataOnly(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"register", "--kind", "file", "--container", "box-3", "--name", "lost.doc"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("register: %v", err)
	}
	out, _, err := runCLI(t, []string{"dispatch-pending", "--container", "box-3"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("dispatch-pending: %v", err)
	}
	requireContains(t, out, "Dispatched 0 asset(s)")
	requireContains(t, out, "source file missing")
}

func TestPresetsWorksWithoutDaemon(t *testing.T) {
	out, _, err := runCLI(t, []string{"presets"}, filepath.Join(t.TempDir(), "none.sock"), "")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	requireContains(t, out, "hd1080")
	requireContains(t, out, "prores_hq")
}

func TestMissingDaemonSocket(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfgPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, cfgPath, cfg)

	_, _, err := runCLI(t, []string{"status"}, filepath.Join(t.TempDir(), "missing.sock"), cfgPath)
	if err == nil {
		t.Fatal("expected dial error")
	}
	requireContains(t, err.Error(), "not found")
}

func TestEncodeRequiresPresetOrSettings(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"encode", "some-id"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected encode without preset to fail")
	}
	requireContains(t, err.Error(), "--preset or --settings")

	_, _, err = runCLI(t, []string{"encode", "some-id", "--preset", "nonexistent"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected unknown preset to fail")
	}
}

func TestLogsCommandReadsDaemonLog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfgPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, cfgPath, cfg)

	out, _, err := runCLI(t, []string{"logs"}, "", cfgPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No log entries available")

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := `{"msg":"claimed","asset_id":"a1"}` + "\n" + `{"msg":"claimed","asset_id":"b2"}` + "\n"
	if err := os.WriteFile(cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	out, _, err = runCLI(t, []string{"logs", "-n", "5", "--asset", "b2"}, "", cfgPath)
	if err != nil {
		t.Fatalf("logs --asset: %v", err)
	}
	requireContains(t, out, `"asset_id":"b2"`)
	if strings.Contains(out, `"a1"`) {
		t.Fatalf("expected filtered output, got %q", out)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfgPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, cfgPath, cfg)

	out, _, err := runCLI(t, []string{"stop"}, filepath.Join(t.TempDir(), "missing.sock"), cfgPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestTestNotifyCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
}

func TestExitStatus(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("wrap: %w", services.ErrValidation): 2,
		fmt.Errorf("wrap: %w", services.ErrNotFound):   3,
		errors.New("boom"): 1,
	}
	for err, want := range cases {
		if got := exitStatus(err); got != want {
			t.Fatalf("exitStatus(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestSocketPathPrecedence(t *testing.T) {
	flag := ""
	cfgPath := ""
	ctx := newCommandContext(&flag, &cfgPath)

	t.Setenv(socketEnv, "/run/archivist/env.sock")
	if got := ctx.socketPath(); got != "/run/archivist/env.sock" {
		t.Fatalf("expected env socket, got %q", got)
	}
	flag = "/tmp/flag.sock"
	if got := ctx.socketPath(); got != "/tmp/flag.sock" {
		t.Fatalf("expected flag socket, got %q", got)
	}
}
