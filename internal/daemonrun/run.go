package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"archivist/internal/asset"
	"archivist/internal/config"
	"archivist/internal/daemon"
	"archivist/internal/deps"
	"archivist/internal/encoder"
	"archivist/internal/ipc"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/notifications"
	"archivist/internal/pipeline"
	"archivist/internal/preflight"
	"archivist/internal/reconcile"
	"archivist/internal/services"
	"archivist/internal/storage"
	"archivist/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the archivist daemon and blocks until a shutdown signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		FilePath:    cfg.LogPath(),
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	dependencies := preflight.CheckSystemDeps(signalCtx, cfg)
	logDependencySnapshot(logger, dependencies)
	if missing := deps.MissingRequired(dependencies); len(missing) > 0 {
		logging.WarnWithContext(logger, "required tools missing", "dependency_missing",
			logging.Strings("missing", missing),
			logging.String(logging.FieldImpact, "pipelines that need these tools will fail"),
		)
	}

	store, err := asset.Open(signalCtx, cfg.DatabasePath())
	if err != nil {
		logger.Error("open asset store", logging.Error(err))
		return err
	}
	l, err := ledger.New(signalCtx, store.DB())
	if err != nil {
		store.Close()
		return fmt.Errorf("open ledger: %w", err)
	}

	runner := services.ExecRunner{}
	prober := encoder.NewProber(cfg.FFmpegBinary(),
		encoder.WithRunner(runner),
		encoder.WithLogger(logger),
		encoder.WithTimeout(time.Duration(cfg.Tools.ProbeTimeoutSeconds)*time.Second),
	)
	report := prober.Probe(signalCtx)

	media := storage.New(cfg.Paths.MediaRoot)
	if err := media.EnsureAll(); err != nil {
		store.Close()
		return fmt.Errorf("create storage buckets: %w", err)
	}

	notifier := notifications.NewService(cfg)
	mgr := workflow.NewFromPipeline(cfg, store, l, &pipeline.Dependencies{
		Config:     cfg,
		Assets:     store,
		Ledger:     l,
		Storage:    media,
		Runner:     runner,
		Capability: report.Selected,
		Logger:     logger,
	}, notifier, logger)

	d, err := daemon.New(cfg, daemon.Components{
		Assets:     store,
		Ledger:     l,
		Workflow:   mgr,
		Reconciler: reconcile.New(cfg, store, logger),
		Encoder:    report,
		Notifier:   notifier,
	}, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// The pid file and socket belong to whichever instance holds the lock.
	if err := d.Lock(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("archivist daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, statuses []deps.Status) {
	args := []any{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range statuses {
		key := strings.ReplaceAll(strings.ToLower(status.Name), " ", "_")
		args = append(args, logging.Bool(key+"_available", status.Available))
		if status.Command != "" {
			args = append(args, logging.String(key+"_binary", status.Command))
		}
	}
	logger.Info("dependency snapshot", args...)
}
