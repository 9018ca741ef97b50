package workflow

import (
	"context"
	"log/slog"

	"archivist/internal/logging"
)

// jobLogger returns the manager logger tagged with the job's asset,
// worker, and correlation fields.
func (m *Manager) jobLogger(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, m.logger)
}
