package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"archivist/internal/asset"
	"archivist/internal/config"
	"archivist/internal/deps"
	"archivist/internal/encoder"
	"archivist/internal/ledger"
	"archivist/internal/logging"
	"archivist/internal/notifications"
	"archivist/internal/preflight"
	"archivist/internal/reconcile"
	"archivist/internal/workflow"
)

// Components are the long-lived services the daemon owns.
type Components struct {
	Assets     *asset.Store
	Ledger     *ledger.Ledger
	Workflow   *workflow.Manager
	Reconciler *reconcile.Reconciler
	Encoder    encoder.Report
	Notifier   notifications.Service
}

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	assets     *asset.Store
	ledger     *ledger.Ledger
	workflow   *workflow.Manager
	reconciler *reconcile.Reconciler
	encoder    encoder.Report
	notifier   notifications.Service
	metrics    *metricsServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
	MetricsBind  string
	Encoder      encoder.Report
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, c Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || c.Assets == nil || c.Workflow == nil {
		return nil, errors.New("daemon requires config, asset store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	notifier := c.Notifier
	if notifier == nil {
		notifier = notifications.Noop()
	}
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		assets:     c.Assets,
		ledger:     c.Ledger,
		workflow:   c.Workflow,
		reconciler: c.Reconciler,
		encoder:    c.Encoder,
		notifier:   notifier,
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}
	d.metrics = newMetricsServer(cfg.Metrics.Bind, d, logger)
	return d, nil
}

// ErrLocked reports that another daemon holds the instance lock.
var ErrLocked = errors.New("another archivist daemon instance is already running")

// Lock takes the instance lock without starting anything. Callers that
// create shared runtime files (pid file, control socket) take it first so a
// losing instance never touches them. Lock is a no-op when already held.
func (d *Daemon) Lock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquireLock()
}

func (d *Daemon) acquireLock() error {
	if d.lock.Locked() {
		return nil
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Start acquires the daemon lock if Lock was not called, launches the
// worker pool and metrics endpoint, dispatches pending assets once, and
// runs the periodic sweep.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.acquireLock(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.metrics.start(runCtx); err != nil {
		cancel()
		d.workflow.Stop()
		_ = d.lock.Unlock()
		return err
	}

	group, gctx := errgroup.WithContext(runCtx)
	sweeper := workflow.NewSweeper(d.workflow)
	group.Go(func() error {
		report, err := d.workflow.DispatchPending(gctx, "")
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.WarnWithContext(d.logger, "startup dispatch failed", "startup_dispatch_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "pending assets wait for the next sweep or a manual dispatch"),
			)
			return nil
		}
		d.logger.Info("startup dispatch finished",
			logging.String(logging.FieldEventType, "startup_dispatch"),
			logging.Int("submitted", len(report.Submitted)),
			logging.Int("skipped", len(report.Skipped)),
		)
		return nil
	})
	group.Go(func() error {
		return sweeper.Run(gctx)
	})

	d.cancel = cancel
	d.group = group
	d.running.Store(true)
	d.logger.Info("archivist daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("encoder_tier", string(d.encoder.Selected.Kind)),
		logging.Bool("sweep_enabled", sweeper.Enabled()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.cancel()
	if err := d.group.Wait(); err != nil {
		d.logger.Warn("background task failed", logging.Error(err))
	}
	d.workflow.Stop()
	d.metrics.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.cancel = nil
	d.group = nil
	d.running.Store(false)
	d.logger.Info("archivist daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon, including a lock taken by
// Lock when Start never ran.
func (d *Daemon) Close() error {
	d.Stop()
	d.mu.Lock()
	if d.lock.Locked() {
		_ = d.lock.Unlock()
	}
	d.mu.Unlock()
	return d.assets.Close()
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Workflow returns the dispatcher.
func (d *Daemon) Workflow() *workflow.Manager {
	return d.workflow
}

// Assets returns the asset store.
func (d *Daemon) Assets() *asset.Store {
	return d.assets
}

// Ledger returns the processing error ledger.
func (d *Daemon) Ledger() (*ledger.Ledger, error) {
	if d.ledger == nil {
		return nil, errors.New("error ledger unavailable")
	}
	return d.ledger, nil
}

// Reconcile runs the source-file reconciler.
func (d *Daemon) Reconcile(ctx context.Context, container string, dryRun bool) (reconcile.Report, error) {
	if d.reconciler == nil {
		return reconcile.Report{}, errors.New("reconciler unavailable")
	}
	report, err := d.reconciler.Run(ctx, container, dryRun)
	if err != nil || dryRun {
		return report, err
	}
	matched := 0
	for _, c := range report.Candidates {
		if c.Applied {
			matched++
		}
	}
	if matched > 0 || len(report.Unmatched) > 0 {
		payload := notifications.Payload{"matched": matched, "unmatched": len(report.Unmatched)}
		if nerr := d.notifier.Publish(ctx, notifications.EventReconcileCompleted, payload); nerr != nil {
			d.logger.Warn("reconcile notification failed",
				logging.String(logging.FieldEventType, "notification_failed"),
				logging.Error(nerr),
			)
		}
	}
	return report, nil
}

// Notifier returns the configured notification service.
func (d *Daemon) Notifier() notifications.Service {
	return d.notifier
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     d.workflow.Status(ctx),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		MetricsBind:  d.cfg.Metrics.Bind,
		Encoder:      d.encoder,
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
}

// MetricsAddr returns the metrics listener address, or "" when disabled.
func (d *Daemon) MetricsAddr() string {
	return d.metrics.Addr()
}
