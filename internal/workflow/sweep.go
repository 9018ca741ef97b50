package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"archivist/internal/logging"
)

// Sweeper periodically releases stuck assets and dispatches pending ones.
type Sweeper struct {
	manager    *Manager
	logger     *slog.Logger
	interval   time.Duration
	stuckAfter time.Duration
}

// NewSweeper creates a sweeper from the worker configuration.
func NewSweeper(m *Manager) *Sweeper {
	return &Sweeper{
		manager:    m,
		logger:     m.logger.With(logging.String(logging.FieldComponent, "workflow-sweep")),
		interval:   time.Duration(m.cfg.Workers.SweepIntervalSeconds) * time.Second,
		stuckAfter: time.Duration(m.cfg.Workers.StuckAfterMinutes) * time.Minute,
	}
}

// Enabled reports whether a sweep interval is configured.
func (s *Sweeper) Enabled() bool {
	return s.interval > 0
}

// Sweep runs one pass: stuck assets first, so a released asset is not
// picked up as pending in the same pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	var errs []error
	if s.stuckAfter > 0 {
		if _, err := s.manager.CancelStuck(ctx, s.stuckAfter); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := s.manager.DispatchPending(ctx, ""); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run sweeps on every tick until ctx ends. It returns immediately when
// no interval is configured.
func (s *Sweeper) Run(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					s.logger.Info("daemon shutting down, sweep cancelled")
					return nil
				}
				s.logger.Warn("sweep failed", logging.Error(err))
			}
		}
	}
}
