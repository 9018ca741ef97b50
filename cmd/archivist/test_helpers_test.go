package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"archivist/internal/asset"
	"archivist/internal/config"
	"archivist/internal/daemon"
	"archivist/internal/encoder"
	"archivist/internal/ipc"
	"archivist/internal/logging"
	"archivist/internal/stage"
	"archivist/internal/storage"
	"archivist/internal/testsupport"
	"archivist/internal/workflow"
)

type noopStage struct {
	store *asset.Store
}

func (noopStage) Prepare(context.Context, *asset.Asset) error { return nil }
func (s noopStage) Execute(ctx context.Context, a *asset.Asset) error {
	return s.store.Complete(ctx, a.ID)
}
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *asset.Store
	socketPath string
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	l := testsupport.MustOpenLedger(t, store)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, workflow.Dependencies{
		Assets:   store,
		Ledger:   l,
		Storage:  storage.New(cfg.Paths.MediaRoot),
		Handlers: map[asset.Kind]stage.Handler{asset.KindFile: noopStage{store: store}},
	}, logger)
	d, err := daemon.New(cfg, daemon.Components{
		Assets:   store,
		Ledger:   l,
		Workflow: mgr,
		Encoder:  encoder.Report{Selected: encoder.Software()},
	}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}

	sockDir, err := os.MkdirTemp("", "arc")
	if err != nil {
		cancel()
		t.Fatalf("MkdirTemp: %v", err)
	}
	socketPath := filepath.Join(sockDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		srv.Close()
		d.Stop()
		cancel()
		os.RemoveAll(sockDir)
	})

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
